package services

import (
	"context"
	"fmt"
	"time"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/pricing"
	"tourbackend/internal/utils"
)

// CancelWindow blocks cancellations fewer than Days whole days before start.
type CancelWindow struct {
	Enabled bool
	Days    int
}

// BookingService is the booking orchestrator: quote, book, cancel and the
// per-user booking list. Every seat mutation runs in one transaction that
// first locks the excursion row, so the availability check and the write see
// the same aggregate.
type BookingService struct {
	Store      TxRunner
	Excursions ExcursionRepository
	Bookings   BookingRepository
	Listing    ListingInvalidator
	Window     CancelWindow
	Now        func() time.Time
	RequestID  string
}

type QuoteResult struct {
	Excursion      models.Excursion
	BookedSlots    int
	AvailableSlots int
	Quote          pricing.Quote
}

type BookResult struct {
	Booking        models.Booking
	Merged         bool
	Quote          pricing.Quote
	AvailableSlots int
}

type CancelResult struct {
	Booking        models.Booking
	Partial        bool
	AvailableSlots int
}

// UserBooking is an active booking with its excursion and a price breakdown at
// the current fill of the other bookings.
type UserBooking struct {
	Booking   models.Booking
	Excursion models.Excursion
	Quote     pricing.Quote
}

type UserBookings struct {
	Items      []UserBooking
	TotalCents int64
}

func (s BookingService) ledger() InventoryLedger {
	return InventoryLedger{Excursions: s.Excursions, Bookings: s.Bookings}
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s BookingService) invalidate(ctx context.Context) {
	if s.Listing != nil {
		s.Listing.Invalidate(ctx)
	}
}

// Quote prices slots additional seats against the current fill. Nothing is written.
func (s BookingService) Quote(ctx context.Context, excursionID int64, slots int) (QuoteResult, error) {
	if slots < 1 {
		return QuoteResult{}, domain.ValidationError{Field: "slots", Msg: "must be at least 1"}
	}
	q := s.Store.Reader()
	e, err := s.Excursions.GetByID(ctx, q, excursionID)
	if err != nil {
		return QuoteResult{}, err
	}
	booked, available, err := s.ledger().Fill(ctx, q, e)
	if err != nil {
		return QuoteResult{}, err
	}
	quote, err := pricing.Compute(e.CostCents, slots, booked, e.AllPeople)
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteResult{Excursion: e, BookedSlots: booked, AvailableSlots: available, Quote: quote}, nil
}

// Book reserves slots seats for the caller, merging into their active booking
// on the excursion when one exists. No partial fulfilment.
func (s BookingService) Book(ctx context.Context, who domain.Identity, excursionID int64, slots int) (BookResult, error) {
	if !who.Authenticated() {
		return BookResult{}, domain.AuthenticationError{}
	}
	if slots < 1 {
		return BookResult{}, domain.ValidationError{Field: "slots", Msg: "must be at least 1"}
	}

	var res BookResult
	err := retryOnLockConflict(s.RequestID, "booking", "book", func() error {
		res = BookResult{}
		return s.Store.InTx(ctx, func(q intdb.Querier) error {
			e, err := s.Excursions.LockByID(ctx, q, excursionID)
			if err != nil {
				return err
			}
			booked, available, err := s.ledger().Fill(ctx, q, e)
			if err != nil {
				return err
			}
			if slots > available {
				return domain.CapacityExceededError{Requested: slots, Available: available}
			}
			quote, err := pricing.Compute(e.CostCents, slots, booked, e.AllPeople)
			if err != nil {
				return err
			}

			existing, err := s.Bookings.FindActive(ctx, q, excursionID, who.UserID)
			switch {
			case err == nil:
				merged, err := existing.AddSeats(slots)
				if err != nil {
					return domain.InternalError{Msg: "merge booking failed", Err: err}
				}
				if err := s.Bookings.UpdateSeats(ctx, q, merged.ID, merged.Seats); err != nil {
					return err
				}
				res.Booking = merged
				res.Merged = true
			case domain.IsNotFound(err):
				b := models.Booking{ExcursionID: excursionID, UserID: who.UserID, Seats: slots}
				id, err := s.Bookings.Create(ctx, q, b)
				if err != nil {
					return err
				}
				b.ID = id
				res.Booking = b
			default:
				return err
			}
			res.Quote = quote
			res.AvailableSlots = available - slots
			return nil
		})
	})
	if err != nil {
		utils.LogEvent(s.RequestID, "booking", "book_failed", fmt.Sprintf("excursion_id=%d user_id=%d slots=%d err=%v", excursionID, who.UserID, slots, err))
		return BookResult{}, err
	}

	s.invalidate(ctx)
	utils.LogEvent(s.RequestID, "booking", "book", fmt.Sprintf("excursion_id=%d user_id=%d booking_id=%d slots=%d merged=%t total=%s",
		excursionID, who.UserID, res.Booking.ID, slots, res.Merged, utils.FormatMoney(res.Quote.TotalCents)))
	return res, nil
}

// Cancel releases requested seats of the caller's active booking; zero (or at
// least the booked amount) cancels it entirely.
func (s BookingService) Cancel(ctx context.Context, who domain.Identity, excursionID int64, requested int) (CancelResult, error) {
	if !who.Authenticated() {
		return CancelResult{}, domain.AuthenticationError{}
	}
	if requested < 0 {
		return CancelResult{}, domain.ValidationError{Field: "slots", Msg: "must not be negative"}
	}

	var res CancelResult
	err := retryOnLockConflict(s.RequestID, "booking", "cancel", func() error {
		res = CancelResult{}
		return s.Store.InTx(ctx, func(q intdb.Querier) error {
			e, err := s.Excursions.LockByID(ctx, q, excursionID)
			if err != nil {
				return err
			}
			b, err := s.Bookings.FindActive(ctx, q, excursionID, who.UserID)
			if err != nil {
				return err
			}
			if err := s.checkWindow(e); err != nil {
				return err
			}

			updated, partial, err := b.Cancel(requested)
			if err != nil {
				return domain.NotFoundError{Resource: "booking", Err: err}
			}
			if partial {
				err = s.Bookings.UpdateSeats(ctx, q, b.ID, updated.Seats)
			} else {
				err = s.Bookings.MarkCancelled(ctx, q, b.ID)
			}
			if err != nil {
				return err
			}

			_, available, err := s.ledger().Fill(ctx, q, e)
			if err != nil {
				return err
			}
			res = CancelResult{Booking: updated, Partial: partial, AvailableSlots: available}
			return nil
		})
	})
	if err != nil {
		utils.LogEvent(s.RequestID, "booking", "cancel_failed", fmt.Sprintf("excursion_id=%d user_id=%d slots=%d err=%v", excursionID, who.UserID, requested, err))
		return CancelResult{}, err
	}

	s.invalidate(ctx)
	utils.LogEvent(s.RequestID, "booking", "cancel", fmt.Sprintf("excursion_id=%d user_id=%d booking_id=%d partial=%t remaining=%d",
		excursionID, who.UserID, res.Booking.ID, res.Partial, res.Booking.Seats))
	return res, nil
}

func (s BookingService) checkWindow(e models.Excursion) error {
	if !s.Window.Enabled {
		return nil
	}
	days := utils.WholeDaysUntil(s.now(), e.StartDate)
	if days < s.Window.Days {
		return domain.WindowClosedError{DaysLeft: days, MinDays: s.Window.Days}
	}
	return nil
}

// ListUserBookings prices every active booking of the caller against the
// seats held by everyone else on that excursion.
func (s BookingService) ListUserBookings(ctx context.Context, who domain.Identity) (UserBookings, error) {
	if !who.Authenticated() {
		return UserBookings{}, domain.AuthenticationError{}
	}
	q := s.Store.Reader()
	bookings, err := s.Bookings.ListActiveByUser(ctx, q, who.UserID)
	if err != nil {
		return UserBookings{}, err
	}

	ids := make([]int64, 0, len(bookings))
	seen := make(map[int64]bool, len(bookings))
	for _, b := range bookings {
		if !seen[b.ExcursionID] {
			seen[b.ExcursionID] = true
			ids = append(ids, b.ExcursionID)
		}
	}
	sums, err := s.Bookings.SumActiveSeatsByExcursions(ctx, q, ids)
	if err != nil {
		return UserBookings{}, err
	}

	out := UserBookings{Items: make([]UserBooking, 0, len(bookings))}
	for _, b := range bookings {
		e, err := s.Excursions.GetByID(ctx, q, b.ExcursionID)
		if err != nil {
			return UserBookings{}, err
		}
		item, err := priceBooking(b, e, sums[b.ExcursionID])
		if err != nil {
			return UserBookings{}, err
		}
		out.Items = append(out.Items, item)
		out.TotalCents += item.Quote.TotalCents
	}
	return out, nil
}

// ActiveBooking loads the caller's active booking on one excursion, priced the
// same way as ListUserBookings.
func (s BookingService) ActiveBooking(ctx context.Context, who domain.Identity, excursionID int64) (UserBooking, error) {
	if !who.Authenticated() {
		return UserBooking{}, domain.AuthenticationError{}
	}
	q := s.Store.Reader()
	e, err := s.Excursions.GetByID(ctx, q, excursionID)
	if err != nil {
		return UserBooking{}, err
	}
	b, err := s.Bookings.FindActive(ctx, q, excursionID, who.UserID)
	if err != nil {
		return UserBooking{}, err
	}
	sum, err := s.Bookings.SumActiveSeats(ctx, q, excursionID)
	if err != nil {
		return UserBooking{}, err
	}
	return priceBooking(b, e, sum)
}

func priceBooking(b models.Booking, e models.Excursion, activeSum int) (UserBooking, error) {
	fillBefore := activeSum - b.Seats
	if fillBefore < 0 {
		fillBefore = 0
	}
	quote, err := pricing.Compute(e.CostCents, b.Seats, fillBefore, e.AllPeople)
	if err != nil {
		return UserBooking{}, err
	}
	return UserBooking{Booking: b, Excursion: e, Quote: quote}, nil
}

// retryOnLockConflict runs fn again once after a deadlock or lock wait
// timeout. A second conflict is returned as ConcurrencyConflictError.
func retryOnLockConflict(requestID, module, action string, fn func() error) error {
	err := fn()
	if err == nil || !domain.IsConcurrencyConflict(err) {
		return err
	}
	utils.LogEvent(requestID, module, action+"_retry", err.Error())
	return fn()
}
