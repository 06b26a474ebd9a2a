// Package domain holds the core types shared by every renderd adapter:
// stage references, render requests, rendered frames and their encoded
// artifacts, plus the error taxonomy the HTTP layer maps to status codes.
package domain
