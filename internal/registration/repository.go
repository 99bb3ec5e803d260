package registration

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Column layout of the Registrations sheet: Date | Time | Seat | Email | Phone.
const (
	colDate = iota
	colTime
	colSeat
	colEmail
	colPhone
)

// Default ranges for the Registrations sheet.  Reads cover the data rows,
// appends target the whole table so the API picks the first free row.
const (
	DefaultReadRange   = "Registrations!A2:E"
	DefaultAppendRange = "Registrations!A:E"
)

// Store is the tabular-store access the repository needs.  Implemented by
// sheets.Client.
type Store interface {
	ReadRange(ctx context.Context, a1 string) ([][]string, error)
	AppendRow(ctx context.Context, a1 string, row []string) error
}

// Repo reads and writes registrations.  Reads are never cached here; the
// sheet is the single source of truth and is re-read on every call.
type Repo struct {
	store       Store
	readRange   string
	appendRange string
	locks       *SeatLock
}

// NewRepo builds a Repo.  Empty ranges fall back to the defaults; locks
// may be nil, in which case write conflict checking relies on the re-read
// alone.
func NewRepo(store Store, readRange, appendRange string, locks *SeatLock) *Repo {
	if readRange == "" {
		readRange = DefaultReadRange
	}
	if appendRange == "" {
		appendRange = DefaultAppendRange
	}
	return &Repo{store: store, readRange: readRange, appendRange: appendRange, locks: locks}
}

// TakenSeats returns the distinct seat numbers already registered for the
// exact (date, time) session, ascending, together with the number of
// matching registration rows.  Rows with an unparseable or out-of-range
// seat cell are ignored.
func (r *Repo) TakenSeats(ctx context.Context, date, start string) ([]int, int, error) {
	rows, err := r.store.ReadRange(ctx, r.readRange)
	if err != nil {
		return nil, 0, fmt.Errorf("read registrations: %w", err)
	}
	seen := make(map[int]bool)
	count := 0
	for _, row := range rows {
		if rowCell(row, colDate) != date || rowCell(row, colTime) != start {
			continue
		}
		count++
		n, err := strconv.Atoi(strings.TrimSpace(rowCell(row, colSeat)))
		if err != nil || n < 1 || n > SeatCapacity {
			continue
		}
		seen[n] = true
	}
	seats := make([]int, 0, len(seen))
	for n := range seen {
		seats = append(seats, n)
	}
	sort.Ints(seats)
	return seats, count, nil
}

// Create appends a registration after verifying the seat is still free.
// The check is a re-read of the sheet guarded by a short-lived per-seat
// lock, so two clients racing for the same seat cannot both pass the
// check and append.  ErrSeatTaken is returned when the seat is already
// registered or currently locked by another request.
func (r *Repo) Create(ctx context.Context, reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	if r.locks != nil {
		ok, err := r.locks.Acquire(ctx, reg.Date, reg.Time, reg.Seat)
		if err != nil {
			return fmt.Errorf("acquire seat lock: %w", err)
		}
		if !ok {
			return ErrSeatTaken
		}
		defer r.locks.Release(ctx, reg.Date, reg.Time, reg.Seat)
	}
	taken, _, err := r.TakenSeats(ctx, reg.Date, reg.Time)
	if err != nil {
		return err
	}
	for _, n := range taken {
		if n == reg.Seat {
			return ErrSeatTaken
		}
	}
	row := []string{reg.Date, reg.Time, strconv.Itoa(reg.Seat), strings.TrimSpace(reg.Email), strings.TrimSpace(reg.Phone)}
	if err := r.store.AppendRow(ctx, r.appendRange, row); err != nil {
		return fmt.Errorf("append registration: %w", err)
	}
	return nil
}

func rowCell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
