// Package registration implements the taken-seats query and the
// registration write over the Registrations sheet.
package registration

import (
	"errors"
	"fmt"
	"strings"
)

// Registration is one visitor booking for a session, as submitted by the
// client and as stored in the Registrations sheet.
type Registration struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Seat  int    `json:"seat"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// SeatCapacity mirrors the fixed 20-seat grid of a session.
const SeatCapacity = 20

// Validate checks the submitted fields against the same rules the
// original registration form enforced.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Date) == "" {
		return errors.New("date is required")
	}
	if strings.TrimSpace(r.Time) == "" {
		return errors.New("time is required")
	}
	if r.Seat < 1 || r.Seat > SeatCapacity {
		return fmt.Errorf("seat must be between 1 and %d", SeatCapacity)
	}
	if !validEmail(r.Email) {
		return errors.New("invalid email address")
	}
	if len(strings.TrimSpace(r.Phone)) < 5 {
		return errors.New("phone number is too short")
	}
	return nil
}

// validEmail accepts a minimal mailbox shape: non-empty local part and a
// domain containing a dot.  Deliverability is not this service's problem.
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	if strings.Contains(domain, "@") {
		return false
	}
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
