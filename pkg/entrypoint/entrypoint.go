//go:build linux || darwin
// +build linux darwin

// Package entrypoint wires the PTY session, the two redirection channels
// and the exit-status relay into one complete wrapper run.
package entrypoint

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"terminator/pkg/config"
	"terminator/pkg/log"
	"terminator/pkg/relay"
	"terminator/pkg/session"
)

// osExit is swapped out in tests.
var osExit = os.Exit

// Run wraps the command from cfg in a fresh PTY session, relays the
// wrapper's stdin and stdout through it and returns the exit code the
// wrapper should finish with.
func Run(ctx context.Context, cfg *config.Config) (int, error) {
	return run(ctx, cfg, int(os.Stdin.Fd()), int(os.Stdout.Fd()))
}

func run(ctx context.Context, cfg *config.Config, stdinFd, stdoutFd int) (int, error) {
	sess, err := session.Start(cfg)
	if err != nil {
		return session.ExitFailure, fmt.Errorf("starting session: %s", err)
	}
	defer sess.Close()

	if cfg.Verbose {
		log.InfoMsg("running %s as pid %d\n", cfg.Program, sess.Pid())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess.SyncTerminalSize(ctx)

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	allDone := relay.NewFlag()

	input := relay.New(relay.Config{
		ID:      0,
		Source:  stdinFd,
		Dest:    sess.PtmFd(),
		SendEOT: true,
		Timeout: timeout,
		Verbose: cfg.Verbose,
	}, allDone)

	output := relay.New(relay.Config{
		ID:      1,
		Source:  sess.PtmFd(),
		Dest:    stdoutFd,
		EndAll:  true,
		Timeout: timeout,
		Verbose: cfg.Verbose,
	}, allDone)

	var wg sync.WaitGroup
	for _, ch := range []*relay.Channel{input, output} {
		wg.Add(1)
		go func(ch *relay.Channel) {
			defer wg.Done()
			if err := ch.Run(); err != nil {
				// a broken redirection has no recovery path, take the whole
				// wrapper down like any other unexpected syscall failure
				log.ErrorMsg("redirection: %s\n", err)
				sess.Kill()
				osExit(session.ExitFailure)
			}
		}(ch)
	}

	status := sess.Wait()

	// joining both channels guarantees buffered output is flushed before
	// the master descriptor goes away
	wg.Wait()

	return status, nil
}
