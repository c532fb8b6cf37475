// Package replay wires the CSV decoder, the ledger and the CSV encoder together.
package replay

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/trufnetwork/ledger-go/core/csvio"
	"github.com/trufnetwork/ledger-go/core/ledger"
	"github.com/trufnetwork/ledger-go/core/logging"
	"github.com/trufnetwork/ledger-go/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBufferSize = 256

// Summary describes a finished replay.
type Summary struct {
	RunID    string
	Decoded  int
	Applied  int
	Rejected int
	Clients  int
	// HaltErr is the decode error that stopped ingestion early, if any.
	HaltErr error
}

// Halted reports whether ingestion stopped on a malformed row.
func (s Summary) Halted() bool {
	return s.HaltErr != nil
}

type options struct {
	logger     *zap.Logger
	bufferSize int
	runID      string
}

type Option func(*options)

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBufferSize sets how many decoded transactions may wait for the ledger.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithRunID overrides the generated run id attached to log lines.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// Run decodes transactions from in, applies them to l in input order and writes
// the final account snapshots to out.
//
// Decoding runs in its own goroutine; l is only touched by the calling
// goroutine. A malformed row stops ingestion: it is logged and reported in
// Summary.HaltErr, and the accounts built so far are still written. Rejected
// transactions are counted and skipped. Run returns an error only when ctx is
// done or the output cannot be written.
func Run(ctx context.Context, in io.Reader, out io.Writer, l *ledger.Ledger, opts ...Option) (Summary, error) {
	o := options{
		logger:     logging.Logger,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	logger := o.logger.With(zap.String("run_id", o.runID))

	summary := Summary{RunID: o.runID}
	if err := ctx.Err(); err != nil {
		return summary, errors.Wrap(err, "replay interrupted")
	}
	txs := make(chan types.Transaction, o.bufferSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(txs)
		dec := csvio.NewDecoder(in)
		for {
			tx, err := dec.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				summary.HaltErr = err
				logger.Error("stopping ingestion on malformed row", zap.Error(err))
				return nil
			}

			select {
			case txs <- tx:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case tx, ok := <-txs:
				if !ok {
					return nil
				}
				summary.Decoded++
				if err := l.Apply(tx); err != nil {
					summary.Rejected++
					continue
				}
				summary.Applied++
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return summary, errors.Wrap(err, "replay interrupted")
	}

	summary.Clients = l.Len()
	if err := csvio.NewEncoder(out).Encode(l.Snapshots()); err != nil {
		return summary, errors.Wrap(err, "write accounts")
	}

	logger.Info("replay finished",
		zap.Int("decoded", summary.Decoded),
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("clients", summary.Clients),
		zap.Bool("halted", summary.Halted()),
	)
	return summary, nil
}
