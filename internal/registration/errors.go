package registration

import "errors"

// ErrSeatTaken is returned when the requested seat is already registered
// for the session, or another request currently holds its write lock.
// Handlers translate this into an HTTP 409 response, which clients must
// not read as the seat having been booked for them.
var ErrSeatTaken = errors.New("seat already taken")
