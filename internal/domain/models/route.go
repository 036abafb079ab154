package models

import "time"

// Route is a descriptive itinerary composed of ordered route points.
type Route struct {
	ID          int64
	Description string
	Points      []RoutePoint
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoutePoint is a photographic waypoint. Day is only set when the point is
// loaded through a route (the day of the itinerary it belongs to).
type RoutePoint struct {
	ID          int64
	Description string
	PhotoPath   string
	Order       int
	Day         *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoutePointUpdate supports partial updates of a route point.
type RoutePointUpdate struct {
	Description *string
	Order       *int
	PhotoPath   *string
}

// RouteStop links a point into a route for a given itinerary day.
type RouteStop struct {
	PointID int64
	Day     *int
}
