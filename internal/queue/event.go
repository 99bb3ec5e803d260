// Package queue defines message payloads exchanged over the message broker.
package queue

// RegistrationConfirmedEvent is published after a registration row has
// been written to the sheet.  It carries everything the notification
// consumer needs without re-reading the store.
type RegistrationConfirmedEvent struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Seat        int    `json:"seat"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ConfirmedAt string `json:"confirmed_at"`
}
