package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"terminator/pkg/config"
	"terminator/pkg/entrypoint"
	"terminator/pkg/log"
	"terminator/pkg/session"
)

// Version is overwritten with the real version during release builds.
var Version = "unknown"

func init() {
	// The library's default version flag claims the "v" shorthand, which
	// collides with --verbose/-v and panics at startup. Keep --version
	// long-form only.
	cli.VersionFlag = &cli.BoolFlag{
		Name:        "version",
		Usage:       "print the version",
		HideDefault: true,
		Local:       true,
	}
}

// VerboseFlag is the name of the flag to enable verbose redirection traces.
const VerboseFlag = "verbose"

// TimeoutFlag is the name of the flag to specify the poll timeout in milliseconds.
const TimeoutFlag = "timeout"

// newCommand builds the root CLI command. The wrapped child's exit code is
// written to status so main can mirror it.
func newCommand(status *int) *cli.Command {
	return &cli.Command{
		Name:      "terminator",
		Usage:     "run a command on a pseudo-terminal, relaying its I/O and exit code",
		ArgsUsage: "command [arg...]",
		Version:   Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:     VerboseFlag,
				Aliases:  []string{"v"},
				Usage:    "Verbose redirection traces",
				Value:    false,
				Required: false,
			},
			&cli.IntFlag{
				Name:     TimeoutFlag,
				Aliases:  []string{"t"},
				Usage:    "Poll timeout in milliseconds (bounds shutdown latency)",
				Value:    100,
				Required: false,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args()
			if args.Len() < 1 {
				return fmt.Errorf("insufficient command line arguments: specify a command to run")
			}

			cfg := &config.Config{
				Program: args.First(),
				Args:    args.Tail(),
				Verbose: cmd.Bool(VerboseFlag),
				Timeout: int(cmd.Int(TimeoutFlag)),
			}

			if errors := cfg.Validate(); len(errors) > 0 {
				log.ErrorMsg("Argument validation errors:\n")
				for _, err := range errors {
					log.ErrorMsg(" - %s\n", err)
				}
				return fmt.Errorf("exiting")
			}

			code, err := entrypoint.Run(ctx, cfg)
			if err != nil {
				return err
			}

			*status = code
			return nil
		},
	}
}

func main() {
	status := 0

	cmd := newCommand(&status)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.ErrorMsg("%s\n", err)
		os.Exit(session.ExitFailure)
	}

	os.Exit(status)
}
