// Package ports defines the driven-side interfaces of renderd: the renderer
// backend and the frame artifact store. Adapters implement these; the core
// service depends only on them.
package ports
