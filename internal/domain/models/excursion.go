package models

import "time"

// Excursion is a scheduled departure of a route with fixed seat capacity.
type Excursion struct {
	ID         int64
	StartPoint string
	StartDate  time.Time
	StartTime  string // HH:MM
	AllDays    int
	AllPeople  int
	AgeLimit   int
	CostCents  int64
	RouteID    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExcursionUpdate supports PATCH-style updates via key presence.
type ExcursionUpdate struct {
	StartPoint *string
	StartDate  *time.Time
	StartTime  *string
	AllDays    *int
	AllPeople  *int
	AgeLimit   *int
	CostCents  *int64
	RouteID    *int64
}

func (u ExcursionUpdate) Empty() bool {
	return u.StartPoint == nil && u.StartDate == nil && u.StartTime == nil && u.AllDays == nil &&
		u.AllPeople == nil && u.AgeLimit == nil && u.CostCents == nil && u.RouteID == nil
}

// Apply returns a copy of e with the present fields replaced.
func (u ExcursionUpdate) Apply(e Excursion) Excursion {
	if u.StartPoint != nil {
		e.StartPoint = *u.StartPoint
	}
	if u.StartDate != nil {
		e.StartDate = *u.StartDate
	}
	if u.StartTime != nil {
		e.StartTime = *u.StartTime
	}
	if u.AllDays != nil {
		e.AllDays = *u.AllDays
	}
	if u.AllPeople != nil {
		e.AllPeople = *u.AllPeople
	}
	if u.AgeLimit != nil {
		e.AgeLimit = *u.AgeLimit
	}
	if u.CostCents != nil {
		e.CostCents = *u.CostCents
	}
	if u.RouteID != nil {
		e.RouteID = *u.RouteID
	}
	return e
}
