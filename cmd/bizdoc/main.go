package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hanko-field/bizdoc/internal/platform/observability"
)

var version = "dev"

// appDeps carries process-level collaborators so commands can be exercised in tests.
type appDeps struct {
	stdin  io.Reader
	stdout io.Writer
	logger *zap.Logger
	// env replaces the system environment when non-nil.
	env map[string]string
}

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	app := newApp(appDeps{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		logger: baseLogger.Named("bizdoc"),
	})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bizdoc: %v\n", err)
		os.Exit(1)
	}
}

func newApp(deps appDeps) *cli.App {
	if deps.stdin == nil {
		deps.stdin = os.Stdin
	}
	if deps.stdout == nil {
		deps.stdout = os.Stdout
	}
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}

	return &cli.App{
		Name:    "bizdoc",
		Usage:   "edit and export invoices, quotes, estimates and receipts",
		Version: version,
		Writer:  deps.stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file consulted for BIZDOC_* settings",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			renderCommand(deps),
			previewCommand(deps),
			validateCommand(deps),
			serveCommand(deps),
		},
	}
}
