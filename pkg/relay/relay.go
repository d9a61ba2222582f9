//go:build linux || darwin
// +build linux darwin

// Package relay implements the unidirectional redirection channels that
// shuttle bytes between the wrapper's stdio and the PTY master. Each channel
// copies from a source descriptor to a destination descriptor using
// non-blocking, readiness-polled I/O with a bounded poll timeout, so that
// shutdown and peer hang-up are always observed within one tick.
package relay

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"terminator/pkg/log"
)

// eot is the end-of-transmission control byte understood by terminal line
// disciplines as "end of input".
const eot = 0x04

// bufferSize is the number of bytes moved per read.
const bufferSize = 8192

// Config describes one direction of copying. It is built once before the
// channel starts and never mutated afterwards. The descriptors are borrowed
// from the session, which keeps ownership.
type Config struct {
	ID      int           // distinguishes the two directions in traces
	Source  int           // descriptor to read from
	Dest    int           // descriptor to write to
	SendEOT bool          // emit EOT on source EOF if the destination is a terminal
	EndAll  bool          // set the shared shutdown flag after completion
	Timeout time.Duration // poll timeout, bounds shutdown latency
	Verbose bool          // per-tick debug traces
}

// Channel pumps bytes from Source to Dest until the source is exhausted, the
// destination hangs up, or the shared shutdown flag tells it to stop. A
// channel runs to completion exactly once and is then discarded.
type Channel struct {
	cfg  Config
	done *Flag

	buf    []byte
	offset int
	length int
}

// New creates a channel for one direction of copying. Both channels of a
// session must share the same flag.
func New(cfg Config, done *Flag) *Channel {
	return &Channel{
		cfg:  cfg,
		done: done,
		buf:  make([]byte, bufferSize),
	}
}

// Run executes the copy loop. It returns an error only for unexpected
// syscall failures; end-of-file on the source and hang-up on the destination
// are ordinary terminal transitions, not errors. A channel told to stop
// still drains whatever it has already buffered.
func (c *Channel) Run() error {
	fds := []unix.PollFd{
		{Fd: int32(c.cfg.Source), Events: unix.POLLIN},
		{Fd: int32(c.cfg.Dest), Events: unix.POLLOUT},
	}

	timeout := int(c.cfg.Timeout / time.Millisecond)

	keepGoing := true
	foundEOF := false

	for {
		if c.done.IsSet() {
			keepGoing = false
		}
		if !keepGoing && c.length == 0 {
			break
		}

		if _, err := unix.Poll(fds, timeout); err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %s", err)
		}

		// hang-up with no pending input means the source is exhausted
		if fds[0].Revents&unix.POLLHUP != 0 && fds[0].Revents&unix.POLLIN == 0 {
			c.debugf("hangup on source fd %d", c.cfg.Source)
			fds[0].Fd = -1
			foundEOF = true
		}

		// a dead destination aborts the channel, buffered bytes and all.
		// pipes report a closed read side as POLLERR rather than POLLHUP.
		if fds[1].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			c.debugf("hangup on destination fd %d", c.cfg.Dest)
			fds[1].Fd = -1
			keepGoing = false
			c.offset = 0
			c.length = 0
			continue
		}

		if keepGoing && !foundEOF && c.length == 0 && fds[0].Revents&unix.POLLIN != 0 {
			if err := c.fill(&fds[0], &foundEOF); err != nil {
				return err
			}
		}

		if fds[1].Revents&unix.POLLOUT != 0 {
			if c.length > 0 {
				if err := c.drain(); err != nil {
					return err
				}
			} else if foundEOF {
				if err := c.finish(); err != nil {
					return err
				}
				keepGoing = false
			}
		}
	}

	if c.cfg.EndAll {
		c.debugf("signaling all done")
		c.done.Set()
	}

	c.debugf("channel finished")
	return nil
}

// fill performs one read of up to the buffer's capacity. A zero-length read
// is the end-of-file signal and stops further polling of the source.
func (c *Channel) fill(src *unix.PollFd, foundEOF *bool) error {
	n, err := unix.Read(c.cfg.Source, c.buf)
	switch {
	case err == unix.EAGAIN:
		// spurious readiness on a non-blocking descriptor
	case err == unix.EIO:
		// a PTY master reads EIO once the slave side is gone
		c.debugf("source fd %d is gone", c.cfg.Source)
		src.Fd = -1
		*foundEOF = true
	case err != nil:
		return fmt.Errorf("read: %s", err)
	case n == 0:
		c.debugf("end of file on source fd %d", c.cfg.Source)
		src.Fd = -1
		*foundEOF = true
	default:
		c.offset = 0
		c.length = n
		c.debugf("read %d bytes from fd %d", n, c.cfg.Source)
	}
	return nil
}

// drain writes as many buffered bytes as the destination accepts. Partial
// writes are normal under non-blocking I/O; the remainder stays buffered for
// the next tick.
func (c *Channel) drain() error {
	n, err := unix.Write(c.cfg.Dest, c.buf[c.offset:c.offset+c.length])
	if err == unix.EAGAIN {
		return nil
	}
	if err != nil {
		return fmt.Errorf("write: %s", err)
	}
	if err := flush(c.cfg.Dest); err != nil {
		return fmt.Errorf("flush: %s", err)
	}

	c.offset += n
	c.length -= n
	c.debugf("wrote %d bytes to fd %d, %d remain in buffer", n, c.cfg.Dest, c.length)
	return nil
}

// finish emits the terminal transmission event once the source is exhausted
// and the buffer is drained: a single EOT byte for terminal-like
// destinations when configured, otherwise a zero-length write as a no-op
// marker.
func (c *Channel) finish() error {
	if c.cfg.SendEOT && term.IsTerminal(c.cfg.Dest) {
		if _, err := unix.Write(c.cfg.Dest, []byte{eot}); err != nil {
			return fmt.Errorf("write EOT: %s", err)
		}
		c.debugf("wrote EOT to fd %d", c.cfg.Dest)
	} else {
		if _, err := unix.Write(c.cfg.Dest, nil); err != nil {
			return fmt.Errorf("write: %s", err)
		}
	}
	if err := flush(c.cfg.Dest); err != nil {
		return fmt.Errorf("flush: %s", err)
	}
	return nil
}

// flush forces written bytes out before the next tick, in case the
// destination is closed out from under the channel. Terminals, pipes and
// sockets have nothing to fsync and say so; that is not a failure.
func flush(fd int) error {
	switch err := unix.Fsync(fd); err {
	case nil, unix.EINVAL, unix.ENOTTY, unix.EOPNOTSUPP:
		return nil
	default:
		return err
	}
}

func (c *Channel) debugf(format string, a ...interface{}) {
	if !c.cfg.Verbose {
		return
	}
	log.DebugMsg("channel %d: "+format+"\n", append([]interface{}{c.cfg.ID}, a...)...)
}
