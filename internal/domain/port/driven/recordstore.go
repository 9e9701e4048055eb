// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/brmorais/cadastrohub/internal/domain/model"
)

// ErrSchemaMismatch indicates an update whose record length differs from the
// sheet's current column count. The update must be rejected, never partially
// applied.
var ErrSchemaMismatch = errors.New("record length does not match sheet column count")

// RemoteError wraps a transport, auth, or quota failure from the tabular
// store. Read failures fail soft at the application layer (empty table plus a
// surfaced warning); write failures are surfaced to the user with their input
// preserved.
type RemoteError struct {
	Op    string // "append", "fetch", or "update"
	Sheet string
	Err   error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sheet %s: %s: %v", e.Sheet, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// RecordStore defines the driven port for the remote tabular system of
// record. Rows are addressed positionally: logical index 0 is the first data
// row, stored at absolute row 2 (row 1 is always the header).
type RecordStore interface {
	// Append adds record as a single new row after the last existing row of
	// the named sheet.
	Append(ctx context.Context, sheetName string, record model.Record) error

	// Fetch reads the sheet's rectangular range (columns A..Z, all rows) and
	// materializes it as a Table. A sheet with no data beyond the header
	// yields an empty Table and a nil error.
	Fetch(ctx context.Context, sheetName string) (model.Table, error)

	// Update overwrites the data row at the given logical index with record.
	// The target range spans column A through the column matching the record
	// length, on the single absolute row logicalIndex+2.
	Update(ctx context.Context, sheetName string, logicalIndex int, record model.Record) error
}
