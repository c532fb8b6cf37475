// Package csvio converts between CSV rows and ledger values.
//
// Input rows are `type,client,tx,amount`. A header row is optional, trailing
// columns may be missing for disputes, resolves and chargebacks, and extra
// columns are ignored. Output rows are `client,available,held,total,locked`.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/trufnetwork/ledger-go/core/types"
)

const minFields = 3

// DecodeError reports a row that could not be turned into a transaction.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// rawRecord is a row after CSV splitting, before numeric parsing
type rawRecord struct {
	Type   string `validate:"required,oneof=deposit withdrawal dispute resolve chargeback"`
	Client string `validate:"required,number"`
	Tx     string `validate:"required,number"`
	Amount string
}

type Decoder struct {
	r        *csv.Reader
	validate *validator.Validate
	started  bool
}

func NewDecoder(r io.Reader) *Decoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Decoder{
		r:        cr,
		validate: validator.New(),
	}
}

// Next returns the next transaction, io.EOF when the input is exhausted, or a
// *DecodeError. The decoder does not resynchronise after an error.
func (d *Decoder) Next() (types.Transaction, error) {
	for {
		fields, err := d.r.Read()
		if err == io.EOF {
			return types.Transaction{}, io.EOF
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			return types.Transaction{}, &DecodeError{Line: line, Err: errors.Wrap(err, "read csv")}
		}
		line, _ := d.r.FieldPos(0)

		first := !d.started
		d.started = true
		if first && isHeader(fields) {
			continue
		}

		tx, err := d.decode(fields)
		if err != nil {
			return types.Transaction{}, &DecodeError{Line: line, Err: err}
		}
		return tx, nil
	}
}

func isHeader(fields []string) bool {
	return len(fields) > 0 && strings.EqualFold(strings.TrimSpace(fields[0]), "type")
}

func (d *Decoder) decode(fields []string) (types.Transaction, error) {
	if len(fields) < minFields {
		return types.Transaction{}, errors.Errorf("expected at least %d fields, got %d", minFields, len(fields))
	}

	raw := rawRecord{
		Type:   strings.ToLower(strings.TrimSpace(fields[0])),
		Client: strings.TrimSpace(fields[1]),
		Tx:     strings.TrimSpace(fields[2]),
	}
	if len(fields) > minFields {
		raw.Amount = strings.TrimSpace(fields[3])
	}
	if err := d.validate.Struct(raw); err != nil {
		return types.Transaction{}, errors.Wrap(err, "invalid row")
	}

	txType, err := types.ParseTxType(raw.Type)
	if err != nil {
		return types.Transaction{}, errors.WithStack(err)
	}
	client, err := strconv.ParseUint(raw.Client, 10, 16)
	if err != nil {
		return types.Transaction{}, errors.Wrapf(err, "invalid client id %q", raw.Client)
	}
	txID, err := strconv.ParseUint(raw.Tx, 10, 32)
	if err != nil {
		return types.Transaction{}, errors.Wrapf(err, "invalid tx id %q", raw.Tx)
	}

	tx := types.Transaction{
		Type:   txType,
		Client: types.ClientId(client),
		Tx:     types.TxId(txID),
		Amount: types.Zero(),
	}
	if txType.HasAmount() {
		if raw.Amount == "" {
			return types.Transaction{}, errors.Errorf("%s requires an amount", txType)
		}
		tx.Amount, err = types.ParseAmount(raw.Amount)
		if err != nil {
			return types.Transaction{}, err
		}
	}
	return tx, nil
}
