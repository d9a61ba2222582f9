//go:build linux || darwin
// +build linux darwin

// Package session manages the lifetime of one command wrapped in a
// pseudo-terminal: it acquires the PTY pair, configures the slave line
// discipline, starts the child with the slave as its controlling terminal
// and maps the child's wait status to the wrapper's exit code.
package session

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"terminator/pkg/config"
	"terminator/pkg/log"
	"terminator/pkg/pty"
)

// ExitFailure is the fail-safe exit status. The wrapper finishes with it
// whenever the child terminates abnormally or anything else goes wrong.
const ExitFailure = 1

// Session represents one running wrapped command. The parent owns the
// master descriptor for the session's lifetime; the slave is only held
// until the child has inherited it.
type Session struct {
	ptm     *os.File
	ptmFd   int
	cmd     *exec.Cmd
	verbose bool
}

// Start acquires a PTY pair, switches the slave to raw passthrough mode and
// starts the command with the slave on its standard streams, in a new
// session with the slave as controlling terminal. On return the parent
// holds only the master side.
func Start(cfg *config.Config) (*Session, error) {
	ptm, pts, err := pty.NewPty()
	if err != nil {
		return nil, fmt.Errorf("pty.NewPty(): %s", err)
	}
	defer pts.Close() // the child keeps its own copies on stdin/stdout/stderr

	if err := pty.MakeRaw(pts); err != nil {
		ptm.Close()
		return nil, fmt.Errorf("pty.MakeRaw(pts): %s", err)
	}

	// hand the surrounding terminal's geometry to the child, if there is one
	if size, err := pty.GetTerminalSize(); err == nil {
		if err := pty.SetTerminalSize(ptm, size); err != nil && cfg.Verbose {
			log.ErrorMsg("can't set initial terminal size: %s\n", err)
		}
	}

	cmd := exec.Command(cfg.Program, cfg.Args...)
	cmd.Stdin = pts
	cmd.Stdout = pts
	cmd.Stderr = pts
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if err := cmd.Start(); err != nil {
		ptm.Close()
		return nil, fmt.Errorf("cmd.Start(): %s", err)
	}

	// Fd() drops the descriptor out of non-blocking mode, restore it so the
	// redirection channels never stall on the master
	ptmFd := int(ptm.Fd())
	if err := unix.SetNonblock(ptmFd, true); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		ptm.Close()
		return nil, fmt.Errorf("unix.SetNonblock(ptm): %s", err)
	}

	return &Session{
		ptm:     ptm,
		ptmFd:   ptmFd,
		cmd:     cmd,
		verbose: cfg.Verbose,
	}, nil
}

// Ptm returns the master side of the PTY. The session keeps ownership; the
// file stays valid until Close.
func (s *Session) Ptm() *os.File {
	return s.ptm
}

// PtmFd returns the master descriptor number for the redirection channels.
func (s *Session) PtmFd() int {
	return s.ptmFd
}

// Pid returns the child's process id.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// Kill terminates the child immediately.
func (s *Session) Kill() error {
	return s.cmd.Process.Kill()
}

// Wait blocks until the child terminates and maps its wait status to the
// wrapper's exit code. A normal exit yields the child's own code (0-255);
// abnormal termination keeps the fail-safe failure status.
func (s *Session) Wait() int {
	err := s.cmd.Wait()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Exited() {
			return status.ExitStatus()
		}
	}

	if s.verbose {
		log.InfoMsg("child did not exit normally: %s\n", err)
	}
	return ExitFailure
}

// Close releases the master descriptor. Call it only after the child has
// been waited on and both redirection channels have finished.
func (s *Session) Close() error {
	return s.ptm.Close()
}
