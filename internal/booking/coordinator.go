// Package booking holds the client-side coordinator that keeps the seat
// availability view consistent while the user flips between dates and
// times faster than the network answers.  Every availability fetch is
// tagged with a monotonically increasing epoch; a completion whose epoch
// no longer matches the coordinator's current one is discarded, so a slow
// response for an old selection can never overwrite the view of a newer
// one.
package booking

import (
	"sort"

	"github.com/iliyamo/open-day-registration/internal/schedule"
)

// SeatCapacity is the fixed per-session seat grid size.  Seats are
// numbered 1..SeatCapacity.
const SeatCapacity = 20

// Phase describes the availability view for the currently selected
// session.
type Phase int

const (
	// PhaseUnloaded means no schedule has been loaded yet.
	PhaseUnloaded Phase = iota
	// PhaseNoSession means the schedule is loaded but offers no sessions.
	PhaseNoSession
	// PhaseFetching means an availability query is in flight for the
	// current target.
	PhaseFetching
	// PhaseReady means the taken-seat set for the current target is
	// current.
	PhaseReady
	// PhaseFailed means the last fetch for the current target failed; the
	// taken-seat set is unknown and seat picking is disabled.
	PhaseFailed
)

// Target identifies one bookable session.
type Target struct {
	Date string
	Time string
}

// Availability is the result of a taken-seats query for one session.
type Availability struct {
	TakenSeats []int
	Count      int
}

// FetchFunc issues the availability query for target.  The completion must
// be delivered back through ResolveAvailability together with the same
// epoch.  The coordinator never cancels an in-flight query; superseded
// completions are dropped by the epoch check instead.
type FetchFunc func(target Target, epoch uint64)

// Coordinator is the booking view state machine.  It is written for a
// single-threaded event loop (the TUI's update loop): all methods must be
// called from the same goroutine, and no method blocks.
type Coordinator struct {
	fetch FetchFunc

	sched *schedule.ScheduleMap
	total int

	phase  Phase
	target Target
	epoch  uint64

	taken map[int]bool
	count int
	seat  int // 0 = no seat selected
	err   error
}

// New returns a Coordinator in the unloaded phase.  fetch may be nil, in
// which case callers drive fetches themselves by observing Target and
// Epoch after each selection change.
func New(fetch FetchFunc) *Coordinator {
	return &Coordinator{fetch: fetch, taken: make(map[int]bool)}
}

// LoadSchedule installs a freshly fetched schedule.  With a non-empty
// schedule the first date and its first time are auto-selected, which
// immediately kicks off the first availability fetch.
func (c *Coordinator) LoadSchedule(s *schedule.ScheduleMap, totalSeats int) {
	c.sched = s
	c.total = totalSeats
	if s == nil || s.Len() == 0 {
		c.phase = PhaseNoSession
		c.target = Target{}
		c.resetView()
		return
	}
	date := s.Dates()[0]
	c.retarget(Target{Date: date, Time: s.Times(date)[0]})
}

// SelectDate switches to a date.  When the currently selected time does
// not exist on the new date, the date's first time is selected instead so
// the pairing stays valid.  Selecting the current date again is a no-op.
func (c *Coordinator) SelectDate(date string) {
	if c.sched == nil || c.sched.Times(date) == nil {
		return
	}
	next := Target{Date: date, Time: c.target.Time}
	if !c.sched.Contains(date, next.Time) {
		next.Time = c.sched.Times(date)[0]
	}
	if next == c.target {
		return
	}
	c.retarget(next)
}

// SelectTime switches to a time on the current date.  Times the date does
// not offer are ignored.
func (c *Coordinator) SelectTime(start string) {
	if c.sched == nil || !c.sched.Contains(c.target.Date, start) {
		return
	}
	next := Target{Date: c.target.Date, Time: start}
	if next == c.target {
		return
	}
	c.retarget(next)
}

// Refresh re-issues the availability query for the current target, for
// example after a failed registration, so the view never keeps presenting
// a possibly stale "seat free" state.
func (c *Coordinator) Refresh() {
	if c.target == (Target{}) {
		return
	}
	c.retarget(c.target)
}

// retarget enters a new (or re-entered) target: bump the epoch so any
// in-flight completion becomes stale, wipe the displayed availability and
// the seat selection, and issue the query.
func (c *Coordinator) retarget(next Target) {
	c.target = next
	c.epoch++
	c.resetView()
	c.phase = PhaseFetching
	if c.fetch != nil {
		c.fetch(next, c.epoch)
	}
}

// resetView clears the taken-seat set, the count and the seat selection.
func (c *Coordinator) resetView() {
	c.taken = make(map[int]bool)
	c.count = 0
	c.seat = 0
	c.err = nil
}

// ResolveAvailability applies a fetch completion.  Completions carrying an
// epoch other than the current one are discarded unconditionally; this is
// the single point where out-of-order network completions are ordered.
// It reports whether the result was applied.
func (c *Coordinator) ResolveAvailability(epoch uint64, result Availability, err error) bool {
	if epoch != c.epoch {
		return false
	}
	if err != nil {
		c.resetView()
		c.phase = PhaseFailed
		c.err = err
		return true
	}
	c.taken = make(map[int]bool, len(result.TakenSeats))
	for _, n := range result.TakenSeats {
		c.taken[n] = true
	}
	c.count = result.Count
	c.phase = PhaseReady
	if c.seat != 0 && c.taken[c.seat] {
		c.seat = 0
	}
	return true
}

// SelectSeat records the user's seat pick.  Picks are accepted only while
// the availability view is current and the seat is free; anything else is
// a no-op.  It reports whether the selection was accepted.
func (c *Coordinator) SelectSeat(n int) bool {
	if c.phase != PhaseReady || n < 1 || n > SeatCapacity || c.taken[n] {
		return false
	}
	c.seat = n
	return true
}

// ClearSeat drops the current seat selection.
func (c *Coordinator) ClearSeat() { c.seat = 0 }

// Phase returns the current availability view phase.
func (c *Coordinator) Phase() Phase { return c.phase }

// Target returns the currently selected session.
func (c *Coordinator) Target() Target { return c.target }

// Epoch returns the current request epoch.  It increases by exactly one
// per target entry and is never reset.
func (c *Coordinator) Epoch() uint64 { return c.epoch }

// SelectedSeat returns the picked seat number, or 0 when none is picked.
func (c *Coordinator) SelectedSeat() int { return c.seat }

// SeatTaken reports whether seat n is in the current taken-seat set.
func (c *Coordinator) SeatTaken(n int) bool { return c.taken[n] }

// TakenSeats returns the taken seat numbers in ascending order.
func (c *Coordinator) TakenSeats() []int {
	out := make([]int, 0, len(c.taken))
	for n := range c.taken {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// TakenCount returns the reported number of registrations for the current
// session.
func (c *Coordinator) TakenCount() int { return c.count }

// Schedule returns the loaded schedule, or nil before LoadSchedule.
func (c *Coordinator) Schedule() *schedule.ScheduleMap { return c.sched }

// TotalSeats returns the summed declared capacity across active sessions.
func (c *Coordinator) TotalSeats() int { return c.total }

// Err returns the failure from the last fetch when the phase is
// PhaseFailed, nil otherwise.
func (c *Coordinator) Err() error { return c.err }
