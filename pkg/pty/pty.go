// Package pty provides pseudo-terminal (PTY) functionality for running a
// command as though it were attached to a real terminal. It acquires
// master/slave pairs via standard PTY operations on Unix systems (Linux,
// Darwin) and configures the slave line discipline for raw byte passthrough.
package pty

// TerminalSize represents the dimensions of a terminal window in rows and columns.
type TerminalSize struct {
	Rows int // Number of rows (height) in the terminal
	Cols int // Number of columns (width) in the terminal
}
