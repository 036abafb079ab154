package models

import (
	"errors"
	"testing"
)

func TestBookingStateVariant(t *testing.T) {
	b := Booking{Seats: 4}
	if st, ok := b.State().(Active); !ok || st.Seats != 4 {
		t.Fatalf("expected Active{4}, got %#v", b.State())
	}
	b.Cancelled = true
	if st, ok := b.State().(Cancelled); !ok || st.LastSeats != 4 {
		t.Fatalf("expected Cancelled{4}, got %#v", b.State())
	}
}

func TestBookingCancelPartialThenFull(t *testing.T) {
	b := Booking{Seats: 5}

	b, partial, err := b.Cancel(2)
	if err != nil || !partial {
		t.Fatalf("expected partial cancellation, partial=%v err=%v", partial, err)
	}
	if b.Seats != 3 || b.Cancelled {
		t.Fatalf("expected 3 active seats, got %+v", b)
	}

	b, partial, err = b.Cancel(3)
	if err != nil || partial {
		t.Fatalf("expected full cancellation, partial=%v err=%v", partial, err)
	}
	if !b.Cancelled || b.Seats != 3 {
		t.Fatalf("expected cancelled with seats retained, got %+v", b)
	}

	if _, _, err := b.Cancel(1); !errors.Is(err, ErrBookingCancelled) {
		t.Fatalf("expected ErrBookingCancelled, got %v", err)
	}
}

func TestBookingCancelZeroMeansAll(t *testing.T) {
	b, partial, err := Booking{Seats: 2}.Cancel(0)
	if err != nil || partial || !b.Cancelled || b.Seats != 2 {
		t.Fatalf("unexpected result %+v partial=%v err=%v", b, partial, err)
	}
}

func TestBookingAddSeatsRejectsCancelled(t *testing.T) {
	b, err := Booking{Seats: 2}.AddSeats(3)
	if err != nil || b.Seats != 5 {
		t.Fatalf("expected 5 seats, got %+v err=%v", b, err)
	}
	b.Cancelled = true
	if _, err := b.AddSeats(1); !errors.Is(err, ErrBookingCancelled) {
		t.Fatalf("expected ErrBookingCancelled, got %v", err)
	}
}
