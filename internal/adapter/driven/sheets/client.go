// Package sheets implements the RecordStore port over the Google Sheets API.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*Client)(nil)

// valueInputOption makes the spreadsheet parse appended values the same way
// it would parse manual user entry (dates, numbers, formulas).
const valueInputOption = "USER_ENTERED"

// maxAttempts bounds retries on transient transport errors (429/5xx).
const maxAttempts = 3

// Client implements the driven.RecordStore port against one spreadsheet.
// All three operations are synchronous; the per-call context carries the
// deadline.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string

	// initialInterval seeds the retry backoff; shortened in tests.
	initialInterval time.Duration
}

// NewClient creates a Client for the given spreadsheet. Authentication is
// supplied through opts, typically option.WithTokenSource from the gcp
// adapter. Tests inject an httptest server via option.WithEndpoint,
// option.WithHTTPClient, and option.WithoutAuthentication.
func NewClient(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:             svc,
		spreadsheetID:   spreadsheetID,
		initialInterval: 500 * time.Millisecond,
	}, nil
}

// Append adds record as a single new row after the last existing row of the
// named sheet.
func (c *Client) Append(ctx context.Context, sheetName string, record model.Record) error {
	body := &gsheets.ValueRange{Values: [][]any{toCells(record)}}

	err := c.withRetry(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.
			Append(c.spreadsheetID, sheetName, body).
			ValueInputOption(valueInputOption).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return &driven.RemoteError{Op: "append", Sheet: sheetName, Err: err}
	}
	return nil
}

// Fetch reads columns A..Z of the named sheet and materializes the result.
// A sheet with only a header row (or nothing at all) yields an empty Table.
func (c *Client) Fetch(ctx context.Context, sheetName string) (model.Table, error) {
	var resp *gsheets.ValueRange

	err := c.withRetry(ctx, func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.
			Get(c.spreadsheetID, fetchRange(sheetName)).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return model.Table{}, &driven.RemoteError{Op: "fetch", Sheet: sheetName, Err: err}
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}
		rows = append(rows, row)
	}

	return model.NewTable(rows), nil
}

// Update overwrites the data row at logicalIndex with record, addressing
// exactly one row from column A through the record's terminal column.
func (c *Client) Update(ctx context.Context, sheetName string, logicalIndex int, record model.Record) error {
	rng := rowRange(sheetName, logicalIndex, len(record))
	body := &gsheets.ValueRange{Values: [][]any{toCells(record)}}

	err := c.withRetry(ctx, func() error {
		_, err := c.svc.Spreadsheets.Values.
			Update(c.spreadsheetID, rng, body).
			ValueInputOption(valueInputOption).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return &driven.RemoteError{Op: "update", Sheet: sheetName, Err: err}
	}
	return nil
}

// withRetry runs op with bounded exponential backoff on transient transport
// errors. Non-retryable failures abort immediately.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, maxAttempts-1), ctx))
}

// retryable reports whether err is a transient HTTP failure worth retrying:
// quota exhaustion (429) or a server-side 5xx.
func retryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case 429, 500, 502, 503:
		return true
	}
	return false
}

// toCells widens a record for the Sheets value body.
func toCells(record model.Record) []any {
	cells := make([]any, len(record))
	for i, v := range record {
		cells[i] = v
	}
	return cells
}

// cellString renders one cell value. The API returns cells as interface{}
// (usually string, occasionally nil for empty trailing cells).
func cellString(cell any) string {
	if cell == nil {
		return ""
	}
	if s, ok := cell.(string); ok {
		return s
	}
	return fmt.Sprint(cell)
}
