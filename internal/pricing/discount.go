// Package pricing computes fill-order dependent seat prices.
//
// Capacity is split into three cumulative fill bands: the first 30% of seats
// cost 75% of the unit cost, seats up to 50% fill cost 90%, the rest full
// price. A request is priced seat by seat against the fill level it starts
// from, so the same request gets cheaper the emptier the excursion is.
//
// Thresholds are fractions of capacity and may fall between whole seats
// (capacity 7 gives a 2.1 seat first band). All arithmetic is done in tenths
// of a seat and minor currency units so results are exact; only the final
// division to minor units is rounded (half up).
package pricing

import (
	"tourbackend/internal/domain"
)

const (
	bandAPercent = 75
	bandBPercent = 90
	bandCPercent = 100

	// thresholds in tenths of capacity
	firstThresholdTenths  = 3
	secondThresholdTenths = 5

	tenths = 10
)

// Quote is the price of one request plus the per-band breakdown.
// Band seat counts may be fractional, see package doc.
type Quote struct {
	UnitCostCents       int64   `json:"unit_cost_cents"`
	SlotsBooked         int     `json:"slots_booked"`
	FillBefore          int     `json:"fill_before"`
	TotalSlots          int     `json:"total_slots"`
	BandASeats          float64 `json:"slots_with_25_discount"`
	BandBSeats          float64 `json:"slots_with_10_discount"`
	BandCSeats          float64 `json:"slots_without_discount"`
	TotalCents          int64   `json:"total_cost_cents"`
	AveragePerSlotCents int64   `json:"discount_price_per_slot_cents"`
}

// Compute prices slotsBooked new seats on an excursion of totalSlots capacity
// where fillBefore seats are already taken by other active bookings.
func Compute(unitCostCents int64, slotsBooked, fillBefore, totalSlots int) (Quote, error) {
	if slotsBooked <= 0 {
		return Quote{}, domain.ValidationError{Field: "slots", Msg: "must be at least 1"}
	}
	if unitCostCents < 0 {
		return Quote{}, domain.ValidationError{Field: "cost", Msg: "must not be negative"}
	}
	if fillBefore < 0 {
		return Quote{}, domain.ValidationError{Field: "booked_slots", Msg: "must not be negative"}
	}

	q := Quote{
		UnitCostCents: unitCostCents,
		SlotsBooked:   slotsBooked,
		FillBefore:    fillBefore,
		TotalSlots:    totalSlots,
	}

	if totalSlots <= 0 {
		// no capacity to measure fill against: full price, no bands
		q.BandCSeats = float64(slotsBooked)
		q.TotalCents = unitCostCents * int64(slotsBooked)
		q.AveragePerSlotCents = unitCostCents
		return q, nil
	}

	slots := int64(slotsBooked) * tenths
	booked := int64(fillBefore) * tenths
	first := int64(totalSlots) * firstThresholdTenths
	second := int64(totalSlots) * secondThresholdTenths

	bandA := clamp(first-booked, 0, slots)
	roomB := clamp(second-booked, 0, slots)
	bandB := clamp(roomB-bandA, 0, slots-bandA)
	bandC := max64(0, slots-bandA-bandB)

	// tenths of a seat * percent * cents
	weighted := (bandA*bandAPercent + bandB*bandBPercent + bandC*bandCPercent) * unitCostCents
	const scale = tenths * 100

	q.BandASeats = float64(bandA) / tenths
	q.BandBSeats = float64(bandB) / tenths
	q.BandCSeats = float64(bandC) / tenths
	q.TotalCents = divRound(weighted, scale)
	q.AveragePerSlotCents = divRound(weighted, scale*int64(slotsBooked))
	return q, nil
}

// SeatPrice is the listing price of the next single seat at the current fill.
func SeatPrice(unitCostCents int64, fillBefore, totalSlots int) int64 {
	q, err := Compute(unitCostCents, 1, fillBefore, totalSlots)
	if err != nil {
		return unitCostCents
	}
	return q.AveragePerSlotCents
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// divRound divides non-negative n by positive d rounding half up.
func divRound(n, d int64) int64 {
	return (n + d/2) / d
}
