package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/iliyamo/open-day-registration/internal/registration"
)

func TestFetchSchedule_PreservesDateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/schedule" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","schedule":{"2024-01-09":["10:00"],"2024-01-02":["09:00","11:00"]},"total":"40"}`))
	}))
	defer server.Close()

	c := New(server.URL, server.Client())
	sched, err := c.FetchSchedule(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if sched.TotalSeats != 40 {
		t.Fatalf("expected total 40, got %d", sched.TotalSeats)
	}
	if got := sched.Schedule.Dates(); !reflect.DeepEqual(got, []string{"2024-01-09", "2024-01-02"}) {
		t.Fatalf("server key order lost: %v", got)
	}
}

func TestFetchSchedule_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"status":"error","message":"sheet unreachable"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, server.Client()).FetchSchedule(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "sheet unreachable" {
		t.Fatalf("server message lost: %q", apiErr.Message)
	}
}

func TestFetchTakenSeats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("date"); got != "2024-01-01" {
			t.Fatalf("unexpected date %q", got)
		}
		if got := r.URL.Query().Get("time"); got != "10:00" {
			t.Fatalf("unexpected time %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","takenSeats":[2,5],"count":2}`))
	}))
	defer server.Close()

	seats, count, err := New(server.URL, server.Client()).FetchTakenSeats(context.Background(), "2024-01-01", "10:00")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !reflect.DeepEqual(seats, []int{2, 5}) || count != 2 {
		t.Fatalf("unexpected result: %v / %d", seats, count)
	}
}

func TestRegister_ConflictIsDetectable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reg registration.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if reg.Seat != 7 {
			t.Fatalf("unexpected seat %d", reg.Seat)
		}
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":"error","message":"seat is already taken, pick another one"}`))
	}))
	defer server.Close()

	err := New(server.URL, server.Client()).Register(context.Background(), registration.Registration{
		Date: "2024-01-01", Time: "10:00", Seat: 7, Email: "a@example.com", Phone: "99112233",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsSeatConflict(err) {
		t.Fatalf("conflict not detectable: %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer server.Close()

	err := New(server.URL, server.Client()).Register(context.Background(), registration.Registration{
		Date: "2024-01-01", Time: "10:00", Seat: 7, Email: "a@example.com", Phone: "99112233",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
