package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/utils"
)

const maxDescriptionLen = 1000

// RouteInput is a create/update request. Stops is only applied when StopsSet.
type RouteInput struct {
	Description *string
	Stops       []models.RouteStop
	StopsSet    bool
}

type RouteService struct {
	Store       TxRunner
	Routes      RouteRepository
	RoutePoints RoutePointRepository
	Listing     ListingInvalidator
	PhotoURL    func(string) string
	RequestID   string
}

func (s RouteService) invalidate(ctx context.Context) {
	if s.Listing != nil {
		s.Listing.Invalidate(ctx)
	}
}

func (s RouteService) List(ctx context.Context) ([]RouteView, error) {
	routes, err := s.Routes.List(ctx, s.Store.Reader())
	if err != nil {
		return nil, err
	}
	return s.views(routes), nil
}

func (s RouteService) Get(ctx context.Context, id int64) (RouteView, error) {
	r, err := s.Routes.GetByID(ctx, s.Store.Reader(), id)
	if err != nil {
		return RouteView{}, err
	}
	return NewRouteView(r, s.PhotoURL), nil
}

func (s RouteService) Search(ctx context.Context, description string) ([]RouteView, error) {
	description = utils.NormalizeSpace(description)
	if description == "" {
		return nil, domain.ValidationError{Field: "description", Msg: "is required"}
	}
	routes, err := s.Routes.Search(ctx, s.Store.Reader(), description)
	if err != nil {
		return nil, err
	}
	return s.views(routes), nil
}

func (s RouteService) views(routes []models.Route) []RouteView {
	out := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		out = append(out, NewRouteView(r, s.PhotoURL))
	}
	return out
}

func (s RouteService) Create(ctx context.Context, who domain.Identity, in RouteInput) (RouteView, error) {
	if err := requireAdmin(who); err != nil {
		return RouteView{}, err
	}
	if in.Description == nil {
		return RouteView{}, domain.ValidationError{Field: "description", Msg: "is required"}
	}
	desc, err := validateDescription(*in.Description)
	if err != nil {
		return RouteView{}, err
	}
	if err := validateStops(in.Stops); err != nil {
		return RouteView{}, err
	}

	var id int64
	err = s.Store.InTx(ctx, func(q intdb.Querier) error {
		if err := s.requirePoints(ctx, q, in.Stops); err != nil {
			return err
		}
		newID, err := s.Routes.Create(ctx, q, desc)
		if err != nil {
			return err
		}
		id = newID
		return s.Routes.ReplaceStops(ctx, q, id, in.Stops)
	})
	if err != nil {
		return RouteView{}, err
	}
	utils.LogEvent(s.RequestID, "route", "create", fmt.Sprintf("route_id=%d points=%d", id, len(in.Stops)))
	return s.Get(ctx, id)
}

func (s RouteService) Update(ctx context.Context, who domain.Identity, id int64, in RouteInput) (RouteView, error) {
	if err := requireAdmin(who); err != nil {
		return RouteView{}, err
	}
	var desc string
	if in.Description != nil {
		d, err := validateDescription(*in.Description)
		if err != nil {
			return RouteView{}, err
		}
		desc = d
	}
	if in.StopsSet {
		if err := validateStops(in.Stops); err != nil {
			return RouteView{}, err
		}
	}

	err := s.Store.InTx(ctx, func(q intdb.Querier) error {
		if _, err := s.Routes.GetByID(ctx, q, id); err != nil {
			return err
		}
		if in.Description != nil {
			if err := s.Routes.UpdateDescription(ctx, q, id, desc); err != nil {
				return err
			}
		}
		if !in.StopsSet {
			return nil
		}
		if err := s.requirePoints(ctx, q, in.Stops); err != nil {
			return err
		}
		return s.Routes.ReplaceStops(ctx, q, id, in.Stops)
	})
	if err != nil {
		return RouteView{}, err
	}
	s.invalidate(ctx)
	utils.LogEvent(s.RequestID, "route", "update", fmt.Sprintf("route_id=%d stops_replaced=%t", id, in.StopsSet))
	return s.Get(ctx, id)
}

// Delete removes the route; its excursions and their bookings go with it
// through the foreign keys.
func (s RouteService) Delete(ctx context.Context, who domain.Identity, id int64) error {
	if err := requireAdmin(who); err != nil {
		return err
	}
	if err := s.Routes.Delete(ctx, s.Store.Reader(), id); err != nil {
		return err
	}
	s.invalidate(ctx)
	utils.LogEvent(s.RequestID, "route", "delete", fmt.Sprintf("route_id=%d", id))
	return nil
}

func (s RouteService) requirePoints(ctx context.Context, q intdb.Querier, stops []models.RouteStop) error {
	if len(stops) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(stops))
	for _, st := range stops {
		ids = append(ids, st.PointID)
	}
	found, err := s.RoutePoints.ExistingIDs(ctx, q, ids)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if !found[id] {
			return domain.ValidationError{Field: fmt.Sprintf("route_points.%d", i), Msg: "route point does not exist"}
		}
	}
	return nil
}

func validateDescription(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.ValidationError{Field: "description", Msg: "is required"}
	}
	if utf8.RuneCountInString(v) > maxDescriptionLen {
		return "", domain.ValidationError{Field: "description", Msg: "must not exceed 1000 characters"}
	}
	return v, nil
}

func validateStops(stops []models.RouteStop) error {
	seen := make(map[int64]bool, len(stops))
	for i, st := range stops {
		if st.PointID <= 0 {
			return domain.ValidationError{Field: fmt.Sprintf("route_points.%d", i), Msg: "route point does not exist"}
		}
		if seen[st.PointID] {
			return domain.ValidationError{Field: fmt.Sprintf("route_points.%d", i), Msg: "route point listed twice"}
		}
		seen[st.PointID] = true
		if st.Day != nil && *st.Day < 1 {
			return domain.ValidationError{Field: fmt.Sprintf("days.%d", i), Msg: "must be at least 1"}
		}
	}
	return nil
}
