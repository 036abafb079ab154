package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"tourbackend/internal/cache"
	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/utils"
)

// ExcursionPatch carries excursion fields as received from the API. Nil means
// the key was absent.
type ExcursionPatch struct {
	StartPoint *string
	StartDate  *string
	StartTime  *string
	AllDays    *int
	AllPeople  *int
	AgeLimit   *int
	Cost       *float64
	RouteID    *int64
}

type ExcursionService struct {
	Store      TxRunner
	Excursions ExcursionRepository
	Bookings   BookingRepository
	Routes     RouteRepository
	Cache      cache.ListingCache
	PhotoURL   func(string) string
	RequestID  string
}

func (s ExcursionService) listingCache() cache.ListingCache {
	if s.Cache != nil {
		return s.Cache
	}
	return cache.Nop{}
}

// List returns every excursion with availability and listing price. Served
// from the listing cache when warm.
func (s ExcursionService) List(ctx context.Context) ([]ExcursionView, error) {
	c := s.listingCache()
	if raw, ok := c.Get(ctx, cache.ListingKey); ok {
		var cached []ExcursionView
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}
	gen, cacheable := c.Generation(ctx)

	q := s.Store.Reader()
	list, err := s.Excursions.List(ctx, q)
	if err != nil {
		return nil, err
	}
	views, err := s.render(ctx, q, list)
	if err != nil {
		return nil, err
	}
	if !cacheable {
		return views, nil
	}
	if raw, err := json.Marshal(views); err == nil {
		c.Set(ctx, cache.ListingKey, raw, gen)
	}
	return views, nil
}

func (s ExcursionService) Get(ctx context.Context, id int64) (ExcursionView, error) {
	q := s.Store.Reader()
	e, err := s.Excursions.GetByID(ctx, q, id)
	if err != nil {
		return ExcursionView{}, err
	}
	views, err := s.render(ctx, q, []models.Excursion{e})
	if err != nil {
		return ExcursionView{}, err
	}
	return views[0], nil
}

// Search matches the start point or the description of any route point.
func (s ExcursionService) Search(ctx context.Context, title string) ([]ExcursionView, error) {
	title = utils.NormalizeSpace(title)
	if title == "" {
		return nil, domain.ValidationError{Field: "title", Msg: "is required"}
	}
	q := s.Store.Reader()
	list, err := s.Excursions.Search(ctx, q, title)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, q, list)
}

func (s ExcursionService) render(ctx context.Context, q intdb.Querier, list []models.Excursion) ([]ExcursionView, error) {
	ids := make([]int64, 0, len(list))
	routeIDs := make([]int64, 0, len(list))
	seenRoute := map[int64]bool{}
	for _, e := range list {
		ids = append(ids, e.ID)
		if !seenRoute[e.RouteID] {
			seenRoute[e.RouteID] = true
			routeIDs = append(routeIDs, e.RouteID)
		}
	}
	sums, err := s.Bookings.SumActiveSeatsByExcursions(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	routes := make(map[int64]*RouteView, len(routeIDs))
	for _, id := range routeIDs {
		r, err := s.Routes.GetByID(ctx, q, id)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		v := NewRouteView(r, s.PhotoURL)
		routes[id] = &v
	}

	out := make([]ExcursionView, 0, len(list))
	for _, e := range list {
		out = append(out, NewExcursionView(e, sums[e.ID], routes[e.RouteID]))
	}
	return out, nil
}

func (s ExcursionService) Create(ctx context.Context, who domain.Identity, in ExcursionPatch) (ExcursionView, error) {
	if err := requireAdmin(who); err != nil {
		return ExcursionView{}, err
	}
	upd, err := in.validate(true)
	if err != nil {
		return ExcursionView{}, err
	}
	e := upd.Apply(models.Excursion{})

	err = s.Store.InTx(ctx, func(q intdb.Querier) error {
		if err := s.requireRoute(ctx, q, e.RouteID); err != nil {
			return err
		}
		id, err := s.Excursions.Create(ctx, q, e)
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
	if err != nil {
		return ExcursionView{}, err
	}

	s.listingCache().Invalidate(ctx)
	utils.LogEvent(s.RequestID, "excursion", "create", fmt.Sprintf("excursion_id=%d capacity=%d", e.ID, e.AllPeople))
	return s.Get(ctx, e.ID)
}

// Update applies a partial update. Capacity may not drop below the seats
// already booked; the check runs under the excursion row lock.
func (s ExcursionService) Update(ctx context.Context, who domain.Identity, id int64, in ExcursionPatch) (ExcursionView, error) {
	if err := requireAdmin(who); err != nil {
		return ExcursionView{}, err
	}
	upd, err := in.validate(false)
	if err != nil {
		return ExcursionView{}, err
	}

	err = retryOnLockConflict(s.RequestID, "excursion", "update", func() error {
		return s.Store.InTx(ctx, func(q intdb.Querier) error {
			current, err := s.Excursions.LockByID(ctx, q, id)
			if err != nil {
				return err
			}
			if upd.Empty() {
				return nil
			}
			if upd.AllPeople != nil && *upd.AllPeople < current.AllPeople {
				booked, err := s.Bookings.SumActiveSeats(ctx, q, id)
				if err != nil {
					return err
				}
				if *upd.AllPeople < booked {
					return domain.ValidationError{Field: "all_people", Msg: fmt.Sprintf("cannot be lower than already booked slots (%d)", booked)}
				}
			}
			if upd.RouteID != nil && *upd.RouteID != current.RouteID {
				if err := s.requireRoute(ctx, q, *upd.RouteID); err != nil {
					return err
				}
			}
			return s.Excursions.Update(ctx, q, upd.Apply(current))
		})
	})
	if err != nil {
		return ExcursionView{}, err
	}

	s.listingCache().Invalidate(ctx)
	utils.LogEvent(s.RequestID, "excursion", "update", fmt.Sprintf("excursion_id=%d", id))
	return s.Get(ctx, id)
}

// Delete removes the excursion together with all its bookings.
func (s ExcursionService) Delete(ctx context.Context, who domain.Identity, id int64) error {
	if err := requireAdmin(who); err != nil {
		return err
	}
	var removed int64
	err := retryOnLockConflict(s.RequestID, "excursion", "delete", func() error {
		return s.Store.InTx(ctx, func(q intdb.Querier) error {
			if _, err := s.Excursions.LockByID(ctx, q, id); err != nil {
				return err
			}
			n, err := s.Bookings.DeleteByExcursion(ctx, q, id)
			if err != nil {
				return err
			}
			removed = n
			return s.Excursions.Delete(ctx, q, id)
		})
	})
	if err != nil {
		return err
	}

	s.listingCache().Invalidate(ctx)
	utils.LogEvent(s.RequestID, "excursion", "delete", fmt.Sprintf("excursion_id=%d bookings_removed=%d", id, removed))
	return nil
}

func (s ExcursionService) requireRoute(ctx context.Context, q intdb.Querier, routeID int64) error {
	ok, err := s.Routes.Exists(ctx, q, routeID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ValidationError{Field: "route_id", Msg: "route does not exist"}
	}
	return nil
}

func requireAdmin(who domain.Identity) error {
	if !who.Authenticated() {
		return domain.AuthenticationError{}
	}
	if !who.IsAdmin() {
		return domain.AuthorizationError{}
	}
	return nil
}

// validate checks present fields and converts them. With requireAll the
// mandatory creation fields must be present.
func (p ExcursionPatch) validate(requireAll bool) (models.ExcursionUpdate, error) {
	var u models.ExcursionUpdate
	missing := func(field string) error {
		return domain.ValidationError{Field: field, Msg: "is required"}
	}

	if p.StartPoint != nil {
		v := strings.TrimSpace(*p.StartPoint)
		if v == "" {
			return u, missing("start_point")
		}
		if utf8.RuneCountInString(v) > 255 {
			return u, domain.ValidationError{Field: "start_point", Msg: "must not exceed 255 characters"}
		}
		u.StartPoint = &v
	} else if requireAll {
		return u, missing("start_point")
	}

	if p.StartDate != nil {
		d, err := utils.ParseDate(*p.StartDate)
		if err != nil {
			return u, domain.ValidationError{Field: "start_date", Msg: "must be a date in YYYY-MM-DD format", Err: err}
		}
		u.StartDate = &d
	} else if requireAll {
		return u, missing("start_date")
	}

	if p.StartTime != nil {
		hm, ok := utils.NormalizeTimeHM(*p.StartTime)
		if !ok {
			return u, domain.ValidationError{Field: "start_time", Msg: "must be a time in HH:MM format"}
		}
		u.StartTime = &hm
	} else if requireAll {
		return u, missing("start_time")
	}

	if p.AllDays != nil {
		if *p.AllDays < 1 {
			return u, domain.ValidationError{Field: "all_days", Msg: "must be at least 1"}
		}
		u.AllDays = p.AllDays
	} else if requireAll {
		return u, missing("all_days")
	}

	if p.AllPeople != nil {
		if *p.AllPeople < 1 {
			return u, domain.ValidationError{Field: "all_people", Msg: "must be at least 1"}
		}
		u.AllPeople = p.AllPeople
	} else if requireAll {
		return u, missing("all_people")
	}

	if p.AgeLimit != nil {
		if *p.AgeLimit < 0 {
			return u, domain.ValidationError{Field: "age_limit", Msg: "must not be negative"}
		}
		u.AgeLimit = p.AgeLimit
	}

	if p.Cost != nil {
		if *p.Cost < 0 {
			return u, domain.ValidationError{Field: "cost", Msg: "must not be negative"}
		}
		cents := utils.CentsFromAmount(*p.Cost)
		u.CostCents = &cents
	} else if requireAll {
		return u, missing("cost")
	}

	if p.RouteID != nil {
		if *p.RouteID <= 0 {
			return u, domain.ValidationError{Field: "route_id", Msg: "route does not exist"}
		}
		u.RouteID = p.RouteID
	} else if requireAll {
		return u, missing("route_id")
	}
	return u, nil
}
