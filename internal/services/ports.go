package services

import (
	"context"
	"io"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain/models"
)

// TxRunner hands out a connection for reads and runs transactional work.
// repositories.Store is the MySQL implementation.
type TxRunner interface {
	Reader() intdb.Querier
	InTx(ctx context.Context, fn func(q intdb.Querier) error) error
}

type ExcursionRepository interface {
	GetByID(ctx context.Context, q intdb.Querier, id int64) (models.Excursion, error)
	LockByID(ctx context.Context, q intdb.Querier, id int64) (models.Excursion, error)
	List(ctx context.Context, q intdb.Querier) ([]models.Excursion, error)
	Search(ctx context.Context, q intdb.Querier, term string) ([]models.Excursion, error)
	Create(ctx context.Context, q intdb.Querier, e models.Excursion) (int64, error)
	Update(ctx context.Context, q intdb.Querier, e models.Excursion) error
	Delete(ctx context.Context, q intdb.Querier, id int64) error
}

type BookingRepository interface {
	SumActiveSeats(ctx context.Context, q intdb.Querier, excursionID int64) (int, error)
	SumActiveSeatsByExcursions(ctx context.Context, q intdb.Querier, ids []int64) (map[int64]int, error)
	FindActive(ctx context.Context, q intdb.Querier, excursionID, userID int64) (models.Booking, error)
	Create(ctx context.Context, q intdb.Querier, b models.Booking) (int64, error)
	UpdateSeats(ctx context.Context, q intdb.Querier, id int64, seats int) error
	MarkCancelled(ctx context.Context, q intdb.Querier, id int64) error
	ListActiveByUser(ctx context.Context, q intdb.Querier, userID int64) ([]models.Booking, error)
	DeleteByExcursion(ctx context.Context, q intdb.Querier, excursionID int64) (int64, error)
}

type RouteRepository interface {
	List(ctx context.Context, q intdb.Querier) ([]models.Route, error)
	Search(ctx context.Context, q intdb.Querier, term string) ([]models.Route, error)
	GetByID(ctx context.Context, q intdb.Querier, id int64) (models.Route, error)
	Exists(ctx context.Context, q intdb.Querier, id int64) (bool, error)
	PointsByRoutes(ctx context.Context, q intdb.Querier, routeIDs []int64) (map[int64][]models.RoutePoint, error)
	Create(ctx context.Context, q intdb.Querier, description string) (int64, error)
	UpdateDescription(ctx context.Context, q intdb.Querier, id int64, description string) error
	ReplaceStops(ctx context.Context, q intdb.Querier, routeID int64, stops []models.RouteStop) error
	Delete(ctx context.Context, q intdb.Querier, id int64) error
}

type RoutePointRepository interface {
	List(ctx context.Context, q intdb.Querier) ([]models.RoutePoint, error)
	GetByID(ctx context.Context, q intdb.Querier, id int64) (models.RoutePoint, error)
	NextOrder(ctx context.Context, q intdb.Querier) (int, error)
	ExistingIDs(ctx context.Context, q intdb.Querier, ids []int64) (map[int64]bool, error)
	Create(ctx context.Context, q intdb.Querier, p models.RoutePoint) (int64, error)
	Update(ctx context.Context, q intdb.Querier, p models.RoutePoint) error
	Delete(ctx context.Context, q intdb.Querier, id int64) error
}

type UserRepository interface {
	GetByID(ctx context.Context, q intdb.Querier, id int64) (models.User, error)
	GetByEmail(ctx context.Context, q intdb.Querier, email string) (models.User, error)
	Create(ctx context.Context, q intdb.Querier, u models.User) (int64, error)
}

// ListingInvalidator drops cached excursion listings after seat or catalogue changes.
type ListingInvalidator interface {
	Invalidate(ctx context.Context)
}

// PhotoStore is the file-storage collaborator for route point photos.
type PhotoStore interface {
	SavePhoto(r io.Reader, dir string) (string, error)
	Delete(rel string) error
	URL(rel string) string
}
