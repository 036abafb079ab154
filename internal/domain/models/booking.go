package models

import (
	"errors"
	"time"
)

// Booking is a user's seat reservation against one excursion.
// Persisted as a seats+cancelled pair; State exposes it as a tagged variant.
type Booking struct {
	ID          int64
	ExcursionID int64
	UserID      int64
	Seats       int
	Cancelled   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookingState is either Active or Cancelled.
type BookingState interface {
	isBookingState()
}

type Active struct {
	Seats int
}

type Cancelled struct {
	LastSeats int
}

func (Active) isBookingState()    {}
func (Cancelled) isBookingState() {}

var ErrBookingCancelled = errors.New("booking already cancelled")

func (b Booking) State() BookingState {
	if b.Cancelled {
		return Cancelled{LastSeats: b.Seats}
	}
	return Active{Seats: b.Seats}
}

// AddSeats merges an additional request into an active booking.
func (b Booking) AddSeats(n int) (Booking, error) {
	if _, ok := b.State().(Active); !ok {
		return b, ErrBookingCancelled
	}
	b.Seats += n
	return b, nil
}

// Cancel applies a cancellation request. 0 < requested < seats is a partial
// cancellation; anything else cancels the whole booking and keeps the last seat count.
func (b Booking) Cancel(requested int) (Booking, bool, error) {
	active, ok := b.State().(Active)
	if !ok {
		return b, false, ErrBookingCancelled
	}
	if requested > 0 && requested < active.Seats {
		b.Seats = active.Seats - requested
		return b, true, nil
	}
	b.Cancelled = true
	return b, false, nil
}
