// Command ledger replays a CSV file of client transactions and prints the final
// state of every account to stdout. Diagnostics are logged to stderr.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/trufnetwork/ledger-go/core/config"
	"github.com/trufnetwork/ledger-go/core/ledger"
	"github.com/trufnetwork/ledger-go/core/logging"
	"github.com/trufnetwork/ledger-go/core/replay"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, ".env")
	if err != nil {
		fmt.Fprintf(stderr, "ledger: %v\n", err)
		if errors.Is(err, config.ErrUsage) {
			fmt.Fprintln(stderr, config.Usage)
			return exitUsage
		}
		return exitError
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(stderr, "ledger: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()
	logging.Set(logger)

	f, err := os.Open(cfg.InputPath)
	if err != nil {
		fmt.Fprintf(stderr, "ledger: open input: %v\n", err)
		return exitError
	}
	defer f.Close()

	l := ledger.New(ledger.WithLogger(logger))
	if _, err := replay.Run(ctx, f, stdout, l, replay.WithLogger(logger)); err != nil {
		logger.Error("replay failed", zap.Error(err))
		fmt.Fprintf(stderr, "ledger: %v\n", err)
		return exitError
	}
	return exitOK
}
