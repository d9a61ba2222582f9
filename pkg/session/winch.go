//go:build linux || darwin
// +build linux darwin

package session

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"terminator/pkg/log"
	"terminator/pkg/pty"
)

// SyncTerminalSize propagates window size changes from the surrounding
// terminal to the child PTY until ctx is cancelled. It does nothing when
// the wrapper is not itself attached to a terminal.
func (s *Session) SyncTerminalSize(ctx context.Context) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)

	go func() {
		defer signal.Stop(sigCh)

		for {
			select {
			case <-sigCh:
				size, err := pty.GetTerminalSize()
				if err != nil {
					if s.verbose {
						log.ErrorMsg("can't identify terminal size: %s\n", err)
					}
					continue
				}
				if err := pty.SetTerminalSize(s.ptm, size); err != nil && s.verbose {
					log.ErrorMsg("can't set new terminal size: %s\n", err)
				}
				// Fd() inside the ioctl path may reset the blocking mode
				if err := unix.SetNonblock(s.ptmFd, true); err != nil && s.verbose {
					log.ErrorMsg("can't restore non-blocking master: %s\n", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
