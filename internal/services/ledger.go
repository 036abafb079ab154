package services

import (
	"context"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain/models"
)

// InventoryLedger answers how many seats of an excursion are committed and
// how many remain. Inside a transaction that holds the excursion row lock the
// answer is authoritative; on the plain reader it may be a moment stale.
type InventoryLedger struct {
	Excursions ExcursionRepository
	Bookings   BookingRepository
}

// BookedSeats sums seats of active bookings. Fails with NotFoundError when the
// excursion does not exist.
func (l InventoryLedger) BookedSeats(ctx context.Context, q intdb.Querier, excursionID int64) (int, error) {
	if _, err := l.Excursions.GetByID(ctx, q, excursionID); err != nil {
		return 0, err
	}
	return l.Bookings.SumActiveSeats(ctx, q, excursionID)
}

func (l InventoryLedger) AvailableSeats(ctx context.Context, q intdb.Querier, excursionID int64) (int, error) {
	e, err := l.Excursions.GetByID(ctx, q, excursionID)
	if err != nil {
		return 0, err
	}
	booked, err := l.Bookings.SumActiveSeats(ctx, q, excursionID)
	if err != nil {
		return 0, err
	}
	return AvailableSeats(e.AllPeople, booked), nil
}

// Fill reads an already loaded (or locked) excursion's booked aggregate.
func (l InventoryLedger) Fill(ctx context.Context, q intdb.Querier, e models.Excursion) (booked, available int, err error) {
	booked, err = l.Bookings.SumActiveSeats(ctx, q, e.ID)
	if err != nil {
		return 0, 0, err
	}
	return booked, AvailableSeats(e.AllPeople, booked), nil
}

// AvailableSeats is max(0, capacity - booked).
func AvailableSeats(capacity, booked int) int {
	if booked >= capacity {
		return 0
	}
	return capacity - booked
}
