// Package schedule builds the client-facing view of the event schedule
// from raw spreadsheet rows: which start times exist per date and how many
// seats are declared across all active sessions.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Column layout of the Schedules sheet: Date | Time | TotalSeats | IsActive.
const (
	colDate = iota
	colTime
	colTotalSeats
	colIsActive
)

// DefaultReadRange is the fixed range the aggregator reads on every call.
const DefaultReadRange = "Schedules!A2:D"

// RowReader reads the raw cell values of an A1-notation range from the
// tabular store.  Implemented by sheets.Client.
type RowReader interface {
	ReadRange(ctx context.Context, a1 string) ([][]string, error)
}

// Result is the aggregated schedule: active start times grouped by date
// and the summed seat capacity across all active sessions.
type Result struct {
	Schedule   *ScheduleMap
	TotalSeats int
}

// Aggregator turns raw schedule rows into a Result.  It holds no state
// between calls; every GetSchedule re-reads the store so edits in the
// sheet show up on the next request.
type Aggregator struct {
	rows      RowReader
	readRange string
}

// NewAggregator binds an Aggregator to a row source.  readRange may be
// empty to use DefaultReadRange.
func NewAggregator(rows RowReader, readRange string) *Aggregator {
	if readRange == "" {
		readRange = DefaultReadRange
	}
	return &Aggregator{rows: rows, readRange: readRange}
}

// GetSchedule reads the schedule rows and aggregates them.  Row handling:
// rows without a date or time are dropped, rows whose active cell is not
// "TRUE" (case-insensitive) are dropped, and a seat-count cell that does
// not parse contributes 0 to the total while the row still appears in the
// schedule.  A store read failure fails the whole call; no partial result
// is returned.
func (a *Aggregator) GetSchedule(ctx context.Context) (Result, error) {
	rows, err := a.rows.ReadRange(ctx, a.readRange)
	if err != nil {
		return Result{}, fmt.Errorf("read schedule rows: %w", err)
	}

	out := Result{Schedule: NewScheduleMap()}
	for _, row := range rows {
		if !rowComplete(row) || !rowActive(row) {
			continue
		}
		out.Schedule.Add(cell(row, colDate), cell(row, colTime))
		if n, err := strconv.Atoi(strings.TrimSpace(cell(row, colTotalSeats))); err == nil {
			out.TotalSeats += n
		}
	}
	return out, nil
}

// rowComplete reports whether the row carries both a date and a time.
// Incomplete rows are a data-quality issue in the sheet and are excluded
// from the schedule and the capacity total alike.
func rowComplete(row []string) bool {
	return strings.TrimSpace(cell(row, colDate)) != "" && strings.TrimSpace(cell(row, colTime)) != ""
}

// rowActive reports whether the active cell equals the literal "TRUE",
// compared case-insensitively.  Anything else, including "1" or an empty
// cell, excludes the row.
func rowActive(row []string) bool {
	return strings.EqualFold(strings.TrimSpace(cell(row, colIsActive)), "TRUE")
}

// cell returns the column value or "" when the row is too short, which
// happens when trailing cells in the sheet are empty.
func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}
