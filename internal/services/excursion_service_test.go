package services

import (
	"context"
	"sync"
	"testing"

	"tourbackend/internal/cache"
	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
)

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func int64Ptr(i int64) *int64     { return &i }
func floatPtr(f float64) *float64 { return &f }

func validPatch(routeID int64) ExcursionPatch {
	return ExcursionPatch{
		StartPoint: strPtr("  Kazan  "),
		StartDate:  strPtr("2030-06-01"),
		StartTime:  strPtr("09:30:00"),
		AllDays:    intPtr(3),
		AllPeople:  intPtr(10),
		Cost:       floatPtr(1499.99),
		RouteID:    int64Ptr(routeID),
	}
}

func TestExcursionCreateValidatesAndNormalizes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	v, err := f.excursion.Create(ctx, adminID, validPatch(f.routeID))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if v.StartPoint != "Kazan" || v.StartTime != "09:30" || v.Cost != 1499.99 || v.AvailableSlots != 10 {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.DiscountPrice != 1124.99 {
		t.Fatalf("expected first seat at 75%%, got %v", v.DiscountPrice)
	}
	if v.Route == nil || v.Route.ID != f.routeID {
		t.Fatalf("expected route attached, got %+v", v.Route)
	}

	bad := validPatch(f.routeID)
	bad.StartDate = strPtr("01.06.2030")
	if _, err := f.excursion.Create(ctx, adminID, bad); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for date, got %v", err)
	}
	missing := validPatch(f.routeID)
	missing.AllPeople = nil
	if _, err := f.excursion.Create(ctx, adminID, missing); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for missing capacity, got %v", err)
	}
	if _, err := f.excursion.Create(ctx, adminID, validPatch(9999)); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for unknown route, got %v", err)
	}
	if _, err := f.excursion.Create(ctx, userA, validPatch(f.routeID)); !domain.IsAuthorization(err) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestExcursionCapacityCannotDropBelowBooked(t *testing.T) {
	f := newFixture()
	ex := f.addExcursion(10, 100000, 30)
	ctx := context.Background()
	if _, err := f.bookings.Book(ctx, userA, ex, 6); err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err := f.excursion.Update(ctx, adminID, ex, ExcursionPatch{AllPeople: intPtr(5)})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	v, err := f.excursion.Update(ctx, adminID, ex, ExcursionPatch{AllPeople: intPtr(6), StartPoint: strPtr("Sviyazhsk")})
	if err != nil {
		t.Fatalf("shrinking to booked seats should pass: %v", err)
	}
	if v.AllPeople != 6 || v.AvailableSlots != 0 || v.StartPoint != "Sviyazhsk" {
		t.Fatalf("unexpected view %+v", v)
	}
	if _, err := f.excursion.Update(ctx, adminID, 404, ExcursionPatch{AllDays: intPtr(2)}); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExcursionDeleteCascadesBookings(t *testing.T) {
	f := newFixture()
	ex := f.addExcursion(10, 100000, 30)
	other := f.addExcursion(10, 100000, 30)
	ctx := context.Background()
	f.bookings.Book(ctx, userA, ex, 2)
	f.bookings.Book(ctx, userB, ex, 1)
	f.bookings.Cancel(ctx, userB, ex, 0)
	f.bookings.Book(ctx, userA, other, 1)

	if err := f.excursion.Delete(ctx, adminID, ex); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	for _, b := range (memBookings{f.db}).all() {
		if b.ExcursionID == ex {
			t.Fatalf("booking %d of deleted excursion survived", b.ID)
		}
	}
	if rows := (memBookings{f.db}).all(); len(rows) != 1 {
		t.Fatalf("expected the other excursion's booking to remain, got %d", len(rows))
	}
	if _, err := f.excursion.Get(ctx, ex); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExcursionSearchRequiresTitle(t *testing.T) {
	f := newFixture()
	f.addExcursion(10, 100000, 30)
	if _, err := f.excursion.Search(context.Background(), "   "); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got, err := f.excursion.Search(context.Background(), "kaz")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one match, got %d err=%v", len(got), err)
	}
}

type mapCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	gen         int64
	invalidated int
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Generation(context.Context) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, true
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, generation int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.gen {
		return
	}
	c.data[key] = value
}

func (c *mapCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.gen++
	delete(c.data, cache.ListingKey)
}

func (c *mapCache) cached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[cache.ListingKey]
	return ok
}

// listDuring runs hook right after the excursion rows are read, while the
// listing is still being rendered.
type listDuring struct {
	ExcursionRepository
	hook func()
}

func (r listDuring) List(ctx context.Context, q intdb.Querier) ([]models.Excursion, error) {
	list, err := r.ExcursionRepository.List(ctx, q)
	if r.hook != nil {
		r.hook()
	}
	return list, err
}

func TestExcursionListUsesCacheUntilBookingInvalidates(t *testing.T) {
	f := newFixture()
	ex := f.addExcursion(10, 100000, 30)
	ctx := context.Background()
	c := &mapCache{data: map[string][]byte{}}
	f.excursion.Cache = c
	f.bookings.Listing = c

	if _, err := f.excursion.List(ctx); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if !c.cached() {
		t.Fatalf("listing should be cached")
	}

	if _, err := f.bookings.Book(ctx, userA, ex, 3); err != nil {
		t.Fatalf("book: %v", err)
	}
	if c.invalidated != 1 {
		t.Fatalf("booking must invalidate the listing")
	}
	views, err := f.excursion.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if views[0].AvailableSlots != 7 {
		t.Fatalf("expected fresh availability 7, got %d", views[0].AvailableSlots)
	}
}

func TestExcursionListSkipsCacheWhenInvalidatedDuringRead(t *testing.T) {
	f := newFixture()
	ex := f.addExcursion(10, 100000, 30)
	ctx := context.Background()
	c := &mapCache{data: map[string][]byte{}}
	f.excursion.Cache = c
	f.bookings.Listing = c

	booked := false
	f.excursion.Excursions = listDuring{
		ExcursionRepository: memExcursions{f.db},
		hook: func() {
			if booked {
				return
			}
			booked = true
			if _, err := f.bookings.Book(ctx, userA, ex, 4); err != nil {
				t.Errorf("book: %v", err)
			}
		},
	}

	if _, err := f.excursion.List(ctx); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if c.cached() {
		t.Fatalf("listing rendered across an invalidation must not be cached")
	}

	views, err := f.excursion.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if views[0].AvailableSlots != 6 {
		t.Fatalf("expected availability 6, got %d", views[0].AvailableSlots)
	}
	if !c.cached() {
		t.Fatalf("listing should be cached once no invalidation interleaves")
	}
}
