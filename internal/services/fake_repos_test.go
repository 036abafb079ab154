package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
)

// memDB is an in-memory stand-in for MySQL. memTx serializes transactions
// with a single mutex, which models the excursion row lock, and rolls data
// back when the transaction body fails.
type memDB struct {
	mu         sync.Mutex
	nextID     int64
	excursions map[int64]models.Excursion
	bookings   map[int64]models.Booking
	routes     map[int64]models.Route
	stops      map[int64][]models.RouteStop
	points     map[int64]models.RoutePoint
	users      map[int64]models.User

	// lockFailures makes the next n LockByID calls fail with a deadlock.
	lockFailures int
}

func newMemDB() *memDB {
	return &memDB{
		excursions: map[int64]models.Excursion{},
		bookings:   map[int64]models.Booking{},
		routes:     map[int64]models.Route{},
		stops:      map[int64][]models.RouteStop{},
		points:     map[int64]models.RoutePoint{},
		users:      map[int64]models.User{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

type memSnapshot struct {
	nextID     int64
	excursions map[int64]models.Excursion
	bookings   map[int64]models.Booking
	routes     map[int64]models.Route
	stops      map[int64][]models.RouteStop
	points     map[int64]models.RoutePoint
	users      map[int64]models.User
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memDB) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		nextID:     m.nextID,
		excursions: copyMap(m.excursions),
		bookings:   copyMap(m.bookings),
		routes:     copyMap(m.routes),
		stops:      copyMap(m.stops),
		points:     copyMap(m.points),
		users:      copyMap(m.users),
	}
}

func (m *memDB) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.excursions = s.excursions
	m.bookings = s.bookings
	m.routes = s.routes
	m.stops = s.stops
	m.points = s.points
	m.users = s.users
}

type memTx struct {
	db   *memDB
	lock sync.Mutex
}

func (t *memTx) Reader() intdb.Querier { return nil }

func (t *memTx) InTx(ctx context.Context, fn func(q intdb.Querier) error) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	snap := t.db.snapshot()
	if err := fn(nil); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

type memExcursions struct{ db *memDB }

func (r memExcursions) GetByID(_ context.Context, _ intdb.Querier, id int64) (models.Excursion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.excursions[id]
	if !ok {
		return models.Excursion{}, domain.NotFoundError{Resource: "excursion"}
	}
	return e, nil
}

func (r memExcursions) LockByID(ctx context.Context, q intdb.Querier, id int64) (models.Excursion, error) {
	r.db.mu.Lock()
	if r.db.lockFailures > 0 {
		r.db.lockFailures--
		r.db.mu.Unlock()
		return models.Excursion{}, domain.ConcurrencyConflictError{Err: &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}}
	}
	r.db.mu.Unlock()
	return r.GetByID(ctx, q, id)
}

func (r memExcursions) List(_ context.Context, _ intdb.Querier) ([]models.Excursion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Excursion, 0, len(r.db.excursions))
	for _, e := range r.db.excursions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memExcursions) Search(ctx context.Context, q intdb.Querier, term string) ([]models.Excursion, error) {
	all, _ := r.List(ctx, q)
	out := []models.Excursion{}
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.StartPoint), strings.ToLower(term)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r memExcursions) Create(_ context.Context, _ intdb.Querier, e models.Excursion) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = r.db.id()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	r.db.excursions[e.ID] = e
	return e.ID, nil
}

func (r memExcursions) Update(_ context.Context, _ intdb.Querier, e models.Excursion) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.excursions[e.ID]; !ok {
		return domain.NotFoundError{Resource: "excursion"}
	}
	r.db.excursions[e.ID] = e
	return nil
}

func (r memExcursions) Delete(_ context.Context, _ intdb.Querier, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.excursions[id]; !ok {
		return domain.NotFoundError{Resource: "excursion"}
	}
	delete(r.db.excursions, id)
	return nil
}

type memBookings struct{ db *memDB }

func (r memBookings) SumActiveSeats(_ context.Context, _ intdb.Querier, excursionID int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	sum := 0
	for _, b := range r.db.bookings {
		if b.ExcursionID == excursionID && !b.Cancelled {
			sum += b.Seats
		}
	}
	return sum, nil
}

func (r memBookings) SumActiveSeatsByExcursions(ctx context.Context, q intdb.Querier, ids []int64) (map[int64]int, error) {
	out := map[int64]int{}
	for _, id := range ids {
		sum, _ := r.SumActiveSeats(ctx, q, id)
		if sum > 0 {
			out[id] = sum
		}
	}
	return out, nil
}

func (r memBookings) FindActive(_ context.Context, _ intdb.Querier, excursionID, userID int64) (models.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, b := range r.db.bookings {
		if b.ExcursionID == excursionID && b.UserID == userID && !b.Cancelled {
			return b, nil
		}
	}
	return models.Booking{}, domain.NotFoundError{Resource: "booking"}
}

func (r memBookings) Create(_ context.Context, _ intdb.Querier, b models.Booking) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.bookings {
		if other.ExcursionID == b.ExcursionID && other.UserID == b.UserID && !other.Cancelled {
			return 0, domain.ConflictError{Resource: "booking", Msg: "active booking already exists"}
		}
	}
	b.ID = r.db.id()
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	r.db.bookings[b.ID] = b
	return b.ID, nil
}

func (r memBookings) UpdateSeats(_ context.Context, _ intdb.Querier, id int64, seats int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok || b.Cancelled {
		return domain.NotFoundError{Resource: "booking"}
	}
	b.Seats = seats
	r.db.bookings[id] = b
	return nil
}

func (r memBookings) MarkCancelled(_ context.Context, _ intdb.Querier, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok || b.Cancelled {
		return domain.NotFoundError{Resource: "booking"}
	}
	b.Cancelled = true
	r.db.bookings[id] = b
	return nil
}

func (r memBookings) ListActiveByUser(_ context.Context, _ intdb.Querier, userID int64) ([]models.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Booking{}
	for _, b := range r.db.bookings {
		if b.UserID == userID && !b.Cancelled {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memBookings) DeleteByExcursion(_ context.Context, _ intdb.Querier, excursionID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for id, b := range r.db.bookings {
		if b.ExcursionID == excursionID {
			delete(r.db.bookings, id)
			n++
		}
	}
	return n, nil
}

// all returns every booking row, cancelled ones included.
func (r memBookings) all() []models.Booking {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Booking, 0, len(r.db.bookings))
	for _, b := range r.db.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memRoutes struct{ db *memDB }

func (r memRoutes) load(id int64) (models.Route, bool) {
	route, ok := r.db.routes[id]
	if !ok {
		return models.Route{}, false
	}
	route.Points = nil
	for _, st := range r.db.stops[id] {
		p := r.db.points[st.PointID]
		p.Day = st.Day
		route.Points = append(route.Points, p)
	}
	sort.SliceStable(route.Points, func(i, j int) bool { return route.Points[i].Order < route.Points[j].Order })
	return route, true
}

func (r memRoutes) List(_ context.Context, _ intdb.Querier) ([]models.Route, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Route{}
	for id := range r.db.routes {
		route, _ := r.load(id)
		out = append(out, route)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memRoutes) Search(ctx context.Context, q intdb.Querier, term string) ([]models.Route, error) {
	all, _ := r.List(ctx, q)
	out := []models.Route{}
	for _, route := range all {
		if strings.Contains(strings.ToLower(route.Description), strings.ToLower(term)) {
			out = append(out, route)
		}
	}
	return out, nil
}

func (r memRoutes) GetByID(_ context.Context, _ intdb.Querier, id int64) (models.Route, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	route, ok := r.load(id)
	if !ok {
		return models.Route{}, domain.NotFoundError{Resource: "route"}
	}
	return route, nil
}

func (r memRoutes) Exists(_ context.Context, _ intdb.Querier, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	_, ok := r.db.routes[id]
	return ok, nil
}

func (r memRoutes) PointsByRoutes(_ context.Context, _ intdb.Querier, ids []int64) (map[int64][]models.RoutePoint, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[int64][]models.RoutePoint{}
	for _, id := range ids {
		if route, ok := r.load(id); ok {
			out[id] = route.Points
		}
	}
	return out, nil
}

func (r memRoutes) Create(_ context.Context, _ intdb.Querier, description string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	id := r.db.id()
	r.db.routes[id] = models.Route{ID: id, Description: description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	return id, nil
}

func (r memRoutes) UpdateDescription(_ context.Context, _ intdb.Querier, id int64, description string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	route, ok := r.db.routes[id]
	if !ok {
		return domain.NotFoundError{Resource: "route"}
	}
	route.Description = description
	r.db.routes[id] = route
	return nil
}

func (r memRoutes) ReplaceStops(_ context.Context, _ intdb.Querier, routeID int64, stops []models.RouteStop) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.stops[routeID] = append([]models.RouteStop(nil), stops...)
	return nil
}

func (r memRoutes) Delete(_ context.Context, _ intdb.Querier, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.routes[id]; !ok {
		return domain.NotFoundError{Resource: "route"}
	}
	delete(r.db.routes, id)
	delete(r.db.stops, id)
	return nil
}

type memPoints struct{ db *memDB }

func (r memPoints) List(_ context.Context, _ intdb.Querier) ([]models.RoutePoint, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.RoutePoint{}
	for _, p := range r.db.points {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r memPoints) GetByID(_ context.Context, _ intdb.Querier, id int64) (models.RoutePoint, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.points[id]
	if !ok {
		return models.RoutePoint{}, domain.NotFoundError{Resource: "route point"}
	}
	return p, nil
}

func (r memPoints) NextOrder(_ context.Context, _ intdb.Querier) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	next := 1
	for _, p := range r.db.points {
		if p.Order >= next {
			next = p.Order + 1
		}
	}
	return next, nil
}

func (r memPoints) ExistingIDs(_ context.Context, _ intdb.Querier, ids []int64) (map[int64]bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[int64]bool{}
	for _, id := range ids {
		if _, ok := r.db.points[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r memPoints) Create(_ context.Context, _ intdb.Querier, p models.RoutePoint) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.id()
	r.db.points[p.ID] = p
	return p.ID, nil
}

func (r memPoints) Update(_ context.Context, _ intdb.Querier, p models.RoutePoint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.points[p.ID]; !ok {
		return domain.NotFoundError{Resource: "route point"}
	}
	r.db.points[p.ID] = p
	return nil
}

func (r memPoints) Delete(_ context.Context, _ intdb.Querier, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.points[id]; !ok {
		return domain.NotFoundError{Resource: "route point"}
	}
	delete(r.db.points, id)
	return nil
}

type memUsers struct{ db *memDB }

func (r memUsers) GetByID(_ context.Context, _ intdb.Querier, id int64) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, _ intdb.Querier, email string) (models.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "user"}
}

func (r memUsers) Create(_ context.Context, _ intdb.Querier, u models.User) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, other := range r.db.users {
		if other.Email == u.Email {
			return 0, domain.ConflictError{Resource: "user", Msg: "email already taken"}
		}
	}
	u.ID = r.db.id()
	r.db.users[u.ID] = u
	return u.ID, nil
}

type countingInvalidator struct {
	mu sync.Mutex
	n  int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// fixture wires every service against one memDB.
type fixture struct {
	db        *memDB
	tx        *memTx
	listing   *countingInvalidator
	bookings  BookingService
	excursion ExcursionService
	routeID   int64
}

var (
	adminID = domain.Identity{UserID: 1000, Role: domain.RoleAdmin}
	userA   = domain.Identity{UserID: 1, Role: domain.RoleUser}
	userB   = domain.Identity{UserID: 2, Role: domain.RoleUser}
)

func newFixture() *fixture {
	db := newMemDB()
	tx := &memTx{db: db}
	inv := &countingInvalidator{}
	routeID := db.id()
	db.routes[routeID] = models.Route{ID: routeID, Description: "Volga loop"}

	return &fixture{
		db:      db,
		tx:      tx,
		listing: inv,
		routeID: routeID,
		bookings: BookingService{
			Store:      tx,
			Excursions: memExcursions{db},
			Bookings:   memBookings{db},
			Listing:    inv,
			Window:     CancelWindow{Enabled: true, Days: 7},
		},
		excursion: ExcursionService{
			Store:      tx,
			Excursions: memExcursions{db},
			Bookings:   memBookings{db},
			Routes:     memRoutes{db},
		},
	}
}

// addExcursion stores an excursion starting startIn days from now.
func (f *fixture) addExcursion(capacity int, costCents int64, startIn int) int64 {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	id := f.db.id()
	start := time.Now().AddDate(0, 0, startIn)
	f.db.excursions[id] = models.Excursion{
		ID:         id,
		StartPoint: "Kazan",
		StartDate:  time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local),
		StartTime:  "09:00",
		AllDays:    3,
		AllPeople:  capacity,
		CostCents:  costCents,
		RouteID:    f.routeID,
	}
	return id
}
