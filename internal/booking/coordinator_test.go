package booking

import (
	"errors"
	"reflect"
	"testing"

	"github.com/iliyamo/open-day-registration/internal/schedule"
)

// fetchRecorder captures every query the coordinator issues, in order.
type fetchRecorder struct {
	targets []Target
	epochs  []uint64
}

func (f *fetchRecorder) fetch(target Target, epoch uint64) {
	f.targets = append(f.targets, target)
	f.epochs = append(f.epochs, epoch)
}

func testSchedule() *schedule.ScheduleMap {
	s := schedule.NewScheduleMap()
	s.Add("2024-01-01", "10:00")
	s.Add("2024-01-01", "14:00")
	s.Add("2024-01-02", "09:00")
	return s
}

func TestLoadSchedule_AutoSelectsFirstDateAndTime(t *testing.T) {
	rec := &fetchRecorder{}
	c := New(rec.fetch)
	if c.Phase() != PhaseUnloaded {
		t.Fatalf("fresh coordinator must be unloaded, got %v", c.Phase())
	}

	c.LoadSchedule(testSchedule(), 60)

	if c.Phase() != PhaseFetching {
		t.Fatalf("expected fetching phase, got %v", c.Phase())
	}
	want := Target{Date: "2024-01-01", Time: "10:00"}
	if c.Target() != want {
		t.Fatalf("expected auto-selected target %v, got %v", want, c.Target())
	}
	if c.TotalSeats() != 60 {
		t.Fatalf("expected total 60, got %d", c.TotalSeats())
	}
	if len(rec.targets) != 1 || rec.targets[0] != want || rec.epochs[0] != 1 {
		t.Fatalf("expected one fetch for %v at epoch 1, got %v %v", want, rec.targets, rec.epochs)
	}
}

func TestLoadSchedule_EmptyScheduleHasNoSession(t *testing.T) {
	rec := &fetchRecorder{}
	c := New(rec.fetch)
	c.LoadSchedule(schedule.NewScheduleMap(), 0)
	if c.Phase() != PhaseNoSession {
		t.Fatalf("expected no-session phase, got %v", c.Phase())
	}
	if len(rec.targets) != 0 {
		t.Fatalf("no fetch expected for an empty schedule, got %v", rec.targets)
	}
}

func TestSelectDate_CorrectsInvalidTimePairing(t *testing.T) {
	rec := &fetchRecorder{}
	c := New(rec.fetch)
	c.LoadSchedule(testSchedule(), 60)
	c.SelectTime("14:00")

	// 2024-01-02 does not offer 14:00, so its first time is selected
	c.SelectDate("2024-01-02")
	want := Target{Date: "2024-01-02", Time: "09:00"}
	if c.Target() != want {
		t.Fatalf("expected corrected target %v, got %v", want, c.Target())
	}
}

func TestSelectDate_KeepsTimeWhenStillOffered(t *testing.T) {
	s := testSchedule()
	s.Add("2024-01-03", "10:00")
	c := New(nil)
	c.LoadSchedule(s, 0)

	c.SelectDate("2024-01-03")
	want := Target{Date: "2024-01-03", Time: "10:00"}
	if c.Target() != want {
		t.Fatalf("expected %v, got %v", want, c.Target())
	}
}

func TestSelection_NoOpsDoNotAdvanceEpoch(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)
	epoch := c.Epoch()

	c.SelectDate("2024-01-01")      // same date
	c.SelectTime("10:00")           // same time
	c.SelectDate("2024-09-09")      // unknown date
	c.SelectTime("23:59")           // time not offered on the date
	if c.Epoch() != epoch {
		t.Fatalf("no-op selections must not advance the epoch: %d -> %d", epoch, c.Epoch())
	}
}

func TestEpoch_MonotonicOnePerSelectionChange(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)
	before := c.Epoch()

	changes := []func(){
		func() { c.SelectTime("14:00") },
		func() { c.SelectDate("2024-01-02") },
		func() { c.SelectDate("2024-01-01") },
		func() { c.SelectTime("14:00") },
	}
	for _, change := range changes {
		change()
	}
	if c.Epoch() != before+uint64(len(changes)) {
		t.Fatalf("expected epoch %d, got %d", before+uint64(len(changes)), c.Epoch())
	}
}

func TestResolveAvailability_OutOfOrderCompletionIsDiscarded(t *testing.T) {
	rec := &fetchRecorder{}
	c := New(rec.fetch)
	c.LoadSchedule(testSchedule(), 60)

	// user flips from 10:00 (query Q1) to 14:00 (query Q2) before either
	// query resolves
	c.SelectTime("14:00")
	if len(rec.epochs) != 2 {
		t.Fatalf("expected two fetches, got %d", len(rec.epochs))
	}
	q1, q2 := rec.epochs[0], rec.epochs[1]

	// Q2 resolves first
	if applied := c.ResolveAvailability(q2, Availability{TakenSeats: []int{1, 2}, Count: 2}, nil); !applied {
		t.Fatal("current-epoch result must be applied")
	}
	// Q1 straggles in afterwards and must be dropped
	if applied := c.ResolveAvailability(q1, Availability{TakenSeats: []int{5, 6}, Count: 2}, nil); applied {
		t.Fatal("stale result must be discarded")
	}

	if c.Phase() != PhaseReady {
		t.Fatalf("expected ready phase, got %v", c.Phase())
	}
	if got := c.TakenSeats(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("view shows stale data: %v", got)
	}
}

func TestResolveAvailability_StaleErrorIsAlsoDiscarded(t *testing.T) {
	rec := &fetchRecorder{}
	c := New(rec.fetch)
	c.LoadSchedule(testSchedule(), 60)
	c.SelectTime("14:00")
	q1 := rec.epochs[0]

	c.ResolveAvailability(rec.epochs[1], Availability{TakenSeats: []int{3}, Count: 1}, nil)
	if applied := c.ResolveAvailability(q1, Availability{}, errors.New("timeout")); applied {
		t.Fatal("stale failure must be discarded")
	}
	if c.Phase() != PhaseReady || !c.SeatTaken(3) {
		t.Fatal("stale failure must not disturb the current view")
	}
}

func TestResolveAvailability_ClearsSeatNowTaken(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)
	c.ResolveAvailability(c.Epoch(), Availability{TakenSeats: []int{1}, Count: 1}, nil)
	if !c.SelectSeat(7) {
		t.Fatal("seat 7 should be selectable")
	}

	// a refresh for the same target reports seat 7 as taken
	c.Refresh()
	c.ResolveAvailability(c.Epoch(), Availability{TakenSeats: []int{1, 7}, Count: 2}, nil)
	if c.SelectedSeat() != 0 {
		t.Fatalf("selection must reset when the seat turns out taken, got %d", c.SelectedSeat())
	}
}

func TestResolveAvailability_PreservesFreeSelectionAcrossRefreshResult(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)
	c.ResolveAvailability(c.Epoch(), Availability{}, nil)
	c.SelectSeat(7)

	// same-epoch late duplicate: seat 7 still free, selection survives
	c.ResolveAvailability(c.Epoch(), Availability{TakenSeats: []int{1, 2}, Count: 2}, nil)
	if c.SelectedSeat() != 7 {
		t.Fatalf("free seat selection must be preserved, got %d", c.SelectedSeat())
	}
}

func TestRetarget_ClearsViewAndSeatImmediately(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)
	c.ResolveAvailability(c.Epoch(), Availability{TakenSeats: []int{2}, Count: 1}, nil)
	c.SelectSeat(5)

	c.SelectTime("14:00")
	if c.Phase() != PhaseFetching {
		t.Fatalf("expected fetching phase, got %v", c.Phase())
	}
	if len(c.TakenSeats()) != 0 || c.TakenCount() != 0 {
		t.Fatal("taken set must be cleared while the new fetch is in flight")
	}
	if c.SelectedSeat() != 0 {
		t.Fatal("seat selection must be cleared on target change")
	}
}

func TestSelectSeat_Rules(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)

	if c.SelectSeat(5) {
		t.Fatal("seat picks must be rejected while fetching")
	}
	c.ResolveAvailability(c.Epoch(), Availability{TakenSeats: []int{5}, Count: 1}, nil)
	if c.SelectSeat(5) {
		t.Fatal("taken seat pick must be a no-op")
	}
	if c.SelectSeat(0) || c.SelectSeat(SeatCapacity+1) {
		t.Fatal("out-of-range seats must be rejected")
	}
	if !c.SelectSeat(6) {
		t.Fatal("free in-range seat must be accepted")
	}
	if c.SelectedSeat() != 6 {
		t.Fatalf("expected seat 6, got %d", c.SelectedSeat())
	}
}

func TestResolveAvailability_FailureEntersFailedPhase(t *testing.T) {
	c := New(nil)
	c.LoadSchedule(testSchedule(), 60)

	if applied := c.ResolveAvailability(c.Epoch(), Availability{}, errors.New("network down")); !applied {
		t.Fatal("current-epoch failure must be applied")
	}
	if c.Phase() != PhaseFailed {
		t.Fatalf("expected failed phase, got %v", c.Phase())
	}
	if c.Err() == nil {
		t.Fatal("failure must be exposed")
	}
	if len(c.TakenSeats()) != 0 {
		t.Fatal("failed view must not show any taken set")
	}
	if c.SelectSeat(3) {
		t.Fatal("seat picks must be rejected while availability is unknown")
	}
}

func TestRefresh_BumpsEpochForSameTarget(t *testing.T) {
	rec := &fetchRecorder{}
	c := New(rec.fetch)
	c.LoadSchedule(testSchedule(), 60)
	target, epoch := c.Target(), c.Epoch()

	c.Refresh()
	if c.Target() != target {
		t.Fatalf("refresh must keep the target, got %v", c.Target())
	}
	if c.Epoch() != epoch+1 {
		t.Fatalf("refresh must supersede in-flight fetches, epoch %d -> %d", epoch, c.Epoch())
	}
	// the pre-refresh completion is now stale
	if applied := c.ResolveAvailability(epoch, Availability{TakenSeats: []int{9}, Count: 1}, nil); applied {
		t.Fatal("pre-refresh completion must be discarded")
	}
}
