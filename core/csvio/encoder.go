package csvio

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/trufnetwork/ledger-go/core/types"
)

var header = []string{"client", "available", "held", "total", "locked"}

type Encoder struct {
	w *csv.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: csv.NewWriter(w)}
}

// Encode writes the header followed by one row per snapshot, in the given order.
func (e *Encoder) Encode(snapshots []types.AccountSnapshot) error {
	if err := e.w.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}

	record := make([]string, len(header))
	for _, s := range snapshots {
		total, err := s.Total()
		if err != nil {
			return errors.Wrapf(err, "total for client %d", s.Client)
		}

		record[0] = strconv.FormatUint(uint64(s.Client), 10)
		record[1] = s.Available.String()
		record[2] = s.Held.String()
		record[3] = total.String()
		record[4] = strconv.FormatBool(s.Locked)
		if err := e.w.Write(record); err != nil {
			return errors.Wrapf(err, "write client %d", s.Client)
		}
	}

	e.w.Flush()
	return errors.Wrap(e.w.Error(), "flush")
}
