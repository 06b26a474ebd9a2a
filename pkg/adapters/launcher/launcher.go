// Package launcher starts and supervises the host runtime process (the Kit
// application with the render-service extension loaded). Only the command
// configured by the operator is ever executed; request payloads never reach
// the command line.
package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/mirislabs/renderd/internal/logging"
)

// Launcher runs one host process at a time.
type Launcher struct {
	command string
	args    []string
	dir     string
	env     []string
	logger  *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan error
}

// Option configures the Launcher.
type Option func(*Launcher)

// WithWorkDir sets the working directory for the host process.
func WithWorkDir(dir string) Option {
	return func(l *Launcher) { l.dir = dir }
}

// WithEnv appends environment variables (KEY=VALUE) for the host process.
func WithEnv(env []string) Option {
	return func(l *Launcher) { l.env = env }
}

// WithLogger configures a logger; host output is forwarded to it line by line.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

// New creates a Launcher for the given command and arguments.
func New(command string, args []string, opts ...Option) (*Launcher, error) {
	if command == "" {
		return nil, errors.New("launcher: command is required")
	}
	l := &Launcher{
		command: command,
		args:    args,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Start spawns the host process. It returns once the process is running;
// use Wait or Stop afterwards.
func (l *Launcher) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return errors.New("launcher: host already running")
	}

	cmd := exec.CommandContext(ctx, l.command, l.args...)
	cmd.Dir = l.dir
	if l.env != nil {
		cmd.Env = append(cmd.Environ(), l.env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("launcher: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("launcher: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launcher: start %s: %w", l.command, err)
	}

	go l.forward(stdout, "stdout")
	go l.forward(stderr, "stderr")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	l.cmd = cmd
	l.done = done
	l.logger.Info("host process started", "command", l.command, "pid", cmd.Process.Pid)
	return nil
}

// Wait blocks until the host process exits.
func (l *Launcher) Wait() error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()
	if done == nil {
		return errors.New("launcher: host not running")
	}
	return <-done
}

// Stop asks the host to terminate and kills it if it ignores the request
// before the context deadline.
func (l *Launcher) Stop(ctx context.Context) error {
	l.mu.Lock()
	cmd, done := l.cmd, l.done
	l.cmd, l.done = nil, nil
	l.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone.
		return nil
	}

	select {
	case <-done:
		l.logger.Info("host process stopped")
		return nil
	case <-ctx.Done():
		l.logger.Warn("host process did not stop in time, killing")
		_ = cmd.Process.Kill()
		<-done
		return nil
	case <-time.After(10 * time.Second):
		l.logger.Warn("host process did not stop in time, killing")
		_ = cmd.Process.Kill()
		<-done
		return nil
	}
}

// Running reports whether a host process is currently managed.
func (l *Launcher) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cmd != nil
}

func (l *Launcher) forward(r io.Reader, stream string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		l.logger.Info("host", "stream", stream, "line", scanner.Text())
	}
}
