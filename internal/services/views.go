package services

import (
	"time"

	"tourbackend/internal/domain/models"
	"tourbackend/internal/pricing"
	"tourbackend/internal/utils"
)

// API representations. Money is exposed as decimal amounts.

type RoutePointView struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photo_url"`
	Order       int       `json:"order"`
	Day         *int      `json:"day,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RouteView struct {
	ID          int64            `json:"id"`
	Description string           `json:"description"`
	RoutePoints []RoutePointView `json:"route_points"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type ExcursionView struct {
	ID             int64      `json:"id"`
	StartPoint     string     `json:"start_point"`
	StartDate      string     `json:"start_date"`
	StartTime      string     `json:"start_time"`
	AllDays        int        `json:"all_days"`
	AllPeople      int        `json:"all_people"`
	AgeLimit       int        `json:"age_limit"`
	Cost           float64    `json:"cost"`
	AvailableSlots int        `json:"available_slots"`
	DiscountPrice  float64    `json:"discount_price"`
	RouteID        int64      `json:"route_id"`
	Route          *RouteView `json:"route,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type PriceView struct {
	SlotsBooked          int     `json:"slots_booked"`
	AllBookedSlots       int     `json:"all_booked_slots"`
	TotalSlots           int     `json:"total_slots"`
	SlotsWith25Discount  float64 `json:"slots_with_25_discount"`
	SlotsWith10Discount  float64 `json:"slots_with_10_discount"`
	SlotsWithoutDiscount float64 `json:"slots_without_discount"`
	Cost                 float64 `json:"cost"`
	DiscountPricePerSlot float64 `json:"discount_price_per_slot"`
	TotalCost            float64 `json:"total_cost"`
}

type BookingView struct {
	ID          int64     `json:"id"`
	ExcursionID int64     `json:"excursion_id"`
	UserID      int64     `json:"user_id"`
	Slots       int       `json:"slots"`
	Canceled    bool      `json:"canceled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewPriceView(q pricing.Quote) PriceView {
	return PriceView{
		SlotsBooked:          q.SlotsBooked,
		AllBookedSlots:       q.FillBefore,
		TotalSlots:           q.TotalSlots,
		SlotsWith25Discount:  q.BandASeats,
		SlotsWith10Discount:  q.BandBSeats,
		SlotsWithoutDiscount: q.BandCSeats,
		Cost:                 utils.AmountFromCents(q.UnitCostCents),
		DiscountPricePerSlot: utils.AmountFromCents(q.AveragePerSlotCents),
		TotalCost:            utils.AmountFromCents(q.TotalCents),
	}
}

func NewBookingView(b models.Booking) BookingView {
	return BookingView{
		ID:          b.ID,
		ExcursionID: b.ExcursionID,
		UserID:      b.UserID,
		Slots:       b.Seats,
		Canceled:    b.Cancelled,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func NewRoutePointView(p models.RoutePoint, photoURL func(string) string) RoutePointView {
	v := RoutePointView{
		ID:          p.ID,
		Description: p.Description,
		Order:       p.Order,
		Day:         p.Day,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if photoURL != nil {
		v.PhotoURL = photoURL(p.PhotoPath)
	}
	return v
}

func NewRouteView(r models.Route, photoURL func(string) string) RouteView {
	points := make([]RoutePointView, 0, len(r.Points))
	for _, p := range r.Points {
		points = append(points, NewRoutePointView(p, photoURL))
	}
	return RouteView{
		ID:          r.ID,
		Description: r.Description,
		RoutePoints: points,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewExcursionView renders an excursion with its current availability and the
// price of the next seat at the current fill.
func NewExcursionView(e models.Excursion, booked int, route *RouteView) ExcursionView {
	return ExcursionView{
		ID:             e.ID,
		StartPoint:     e.StartPoint,
		StartDate:      utils.FormatDate(e.StartDate),
		StartTime:      e.StartTime,
		AllDays:        e.AllDays,
		AllPeople:      e.AllPeople,
		AgeLimit:       e.AgeLimit,
		Cost:           utils.AmountFromCents(e.CostCents),
		AvailableSlots: AvailableSeats(e.AllPeople, booked),
		DiscountPrice:  utils.AmountFromCents(pricing.SeatPrice(e.CostCents, booked, e.AllPeople)),
		RouteID:        e.RouteID,
		Route:          route,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
