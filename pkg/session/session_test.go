//go:build linux || darwin
// +build linux darwin

package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"terminator/pkg/config"
	"terminator/pkg/pty"
)

// readMaster reads from the session's master side, retrying while the
// non-blocking descriptor has nothing to offer yet.
func readMaster(t *testing.T, s *Session) []byte {
	t.Helper()

	buf := make([]byte, 256)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := s.Ptm().Read(buf)
		if n > 0 {
			return buf[:n]
		}
		if err != nil && !errors.Is(err, syscall.EAGAIN) {
			t.Fatalf("reading master: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no output from child before deadline")
	return nil
}

// waitStatus runs s.Wait in the background and fails the test if the child
// does not terminate in time.
func waitStatus(t *testing.T, s *Session) int {
	t.Helper()

	statusCh := make(chan int, 1)
	go func() {
		statusCh <- s.Wait()
	}()

	select {
	case status := <-statusCh:
		return status
	case <-time.After(5 * time.Second):
		t.Fatal("child did not terminate")
		return -1
	}
}

func TestStartInvalidProgram(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Program: "/nonexistent/no-such-binary", Timeout: 100}
	if _, err := Start(cfg); err == nil {
		t.Error("Start() with nonexistent program did not fail")
	}
}

func TestWaitExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "clean exit", args: []string{"-c", "exit 0"}, want: 0},
		{name: "exit code 7", args: []string{"-c", "exit 7"}, want: 7},
		{name: "exit code 255", args: []string{"-c", "exit 255"}, want: 255},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := &config.Config{Program: "sh", Args: tc.args, Timeout: 100}
			sess, err := Start(cfg)
			if err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			defer sess.Close()

			if status := waitStatus(t, sess); status != tc.want {
				t.Errorf("Wait() = %d, want %d", status, tc.want)
			}
		})
	}
}

func TestWaitAfterKill(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Program: "cat", Timeout: 100}
	sess, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()

	if err := sess.Kill(); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	// abnormal termination keeps the fail-safe status
	if status := waitStatus(t, sess); status != ExitFailure {
		t.Errorf("Wait() = %d, want %d", status, ExitFailure)
	}
}

// not parallel: temporarily swaps os.Stdout for a PTY slave so the resize
// handler sees a terminal
func TestSyncTerminalSize(t *testing.T) {
	ptm, pts, err := pty.NewPty()
	if err != nil {
		t.Fatalf("pty.NewPty() error = %v", err)
	}
	defer ptm.Close()
	defer pts.Close()

	origStdout := os.Stdout
	os.Stdout = pts
	defer func() { os.Stdout = origStdout }()

	cfg := &config.Config{Program: "cat", Timeout: 100}
	sess, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()
	defer sess.Kill()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.SyncTerminalSize(ctx)

	// resize the stand-in after startup so only the signal handler can
	// carry the new geometry over
	want := pty.TerminalSize{Rows: 33, Cols: 117}
	if err := pty.SetTerminalSize(pts, want); err != nil {
		t.Fatalf("resizing stand-in terminal: %v", err)
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGWINCH); err != nil {
		t.Fatalf("raising SIGWINCH: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		ws, err := unix.IoctlGetWinsize(sess.PtmFd(), unix.TIOCGWINSZ)
		if err != nil {
			t.Fatalf("reading child terminal size: %v", err)
		}
		if int(ws.Row) == want.Rows && int(ws.Col) == want.Cols {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("child terminal size = %dx%d, want %dx%d",
				ws.Row, ws.Col, want.Rows, want.Cols)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// the resize path must leave the master non-blocking
	flags, err := unix.FcntlInt(uintptr(sess.PtmFd()), unix.F_GETFL, 0)
	if err != nil {
		t.Fatalf("fcntl(F_GETFL): %v", err)
	}
	if flags&unix.O_NONBLOCK == 0 {
		t.Error("master lost its non-blocking mode after a resize")
	}
}

func TestSessionPassthrough(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Program: "cat", Timeout: 100}
	sess, err := Start(cfg)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sess.Close()

	if sess.Pid() <= 0 {
		t.Errorf("Pid() = %d, want a real process id", sess.Pid())
	}

	// raw mode: no echo, no newline translation, so cat's copy comes back
	// byte for byte and exactly once
	if _, err := sess.Ptm().Write([]byte("hello\n")); err != nil {
		t.Fatalf("writing master: %v", err)
	}
	if got := readMaster(t, sess); !bytes.Equal(got, []byte("hello\n")) {
		t.Errorf("child produced %q, want %q", got, "hello\n")
	}

	// EOT reaches the line discipline as end of input and cat exits cleanly
	if _, err := sess.Ptm().Write([]byte{0x04}); err != nil {
		t.Fatalf("writing EOT: %v", err)
	}
	if status := waitStatus(t, sess); status != 0 {
		t.Errorf("Wait() = %d, want 0", status)
	}
}
