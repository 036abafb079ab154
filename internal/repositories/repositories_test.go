package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var excursionRowColumns = []string{"id", "start_point", "start_date", "start_time", "all_days", "all_people", "age_limit", "cost", "route_id", "created_at", "updated_at"}

func TestExcursionLockByIDUsesForUpdate(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)

	mock.ExpectQuery(`FROM excursions e WHERE e.id=\? LIMIT 1 FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(excursionRowColumns).
			AddRow(int64(9), "Kazan", start, "10:30:00", 3, 10, 12, int64(150000), int64(2), now, now))

	e, err := ExcursionRepo{}.LockByID(context.Background(), db, 9)
	if err != nil {
		t.Fatalf("LockByID error: %v", err)
	}
	if e.StartTime != "10:30" || e.CostCents != 150000 || e.AllPeople != 10 {
		t.Fatalf("unexpected excursion %+v", e)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExcursionGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM excursions e WHERE e.id=\?`).WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(excursionRowColumns))

	_, err := ExcursionRepo{}.GetByID(context.Background(), db, 404)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestExcursionCreateStoresCostAsDecimal(t *testing.T) {
	db, mock := newMock(t)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.Local)

	mock.ExpectExec(`INSERT INTO excursions`).
		WithArgs("Kazan", "2026-07-01", "09:00", 2, 20, 0, int64(99950), int64(3)).
		WillReturnResult(sqlmock.NewResult(17, 1))

	id, err := ExcursionRepo{}.Create(context.Background(), db, models.Excursion{
		StartPoint: "Kazan", StartDate: start, StartTime: "09:00", AllDays: 2, AllPeople: 20, CostCents: 99950, RouteID: 3,
	})
	if err != nil || id != 17 {
		t.Fatalf("expected id 17, got %d err=%v", id, err)
	}
}

func TestExcursionDeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM excursions WHERE id=\?`).WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := (ExcursionRepo{}).Delete(context.Background(), db, 5); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestBookingSumActiveSeats(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(slots\), 0\)\s+FROM bookings\s+WHERE excursion_id=\? AND canceled=0`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(7))

	sum, err := BookingRepo{}.SumActiveSeats(context.Background(), db, 1)
	if err != nil || sum != 7 {
		t.Fatalf("expected 7, got %d err=%v", sum, err)
	}
}

func TestBookingSumActiveSeatsByExcursions(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`excursion_id IN \(\?,\?,\?\)\s+GROUP BY excursion_id`).
		WithArgs(int64(1), int64(2), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"excursion_id", "sum"}).AddRow(int64(1), 4).AddRow(int64(3), 9))

	sums, err := BookingRepo{}.SumActiveSeatsByExcursions(context.Background(), db, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sums[1] != 4 || sums[2] != 0 || sums[3] != 9 {
		t.Fatalf("unexpected sums %v", sums)
	}
}

func TestBookingFindActiveNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE excursion_id=\? AND user_id=\? AND canceled=0`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "excursion_id", "user_id", "slots", "canceled", "created_at", "updated_at"}))

	if _, err := (BookingRepo{}).FindActive(context.Background(), db, 1, 2); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestBookingCreateClassifiesDriverErrors(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO bookings`).WithArgs(int64(1), int64(2), 3).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectExec(`INSERT INTO bookings`).WithArgs(int64(1), int64(2), 3).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})

	b := models.Booking{ExcursionID: 1, UserID: 2, Seats: 3}
	if _, err := (BookingRepo{}).Create(context.Background(), db, b); !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if _, err := (BookingRepo{}).Create(context.Background(), db, b); !domain.IsConcurrencyConflict(err) {
		t.Fatalf("expected ConcurrencyConflictError, got %v", err)
	}
}

func TestBookingMarkCancelledOnlyTouchesActiveRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`UPDATE bookings SET canceled=1 WHERE id=\? AND canceled=0`).
		WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := (BookingRepo{}).MarkCancelled(context.Background(), db, 8); err != nil {
		t.Fatalf("MarkCancelled error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRouteGetByIDLoadsPointsWithDay(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM routes WHERE id=\?`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "description", "created_at", "updated_at"}).
			AddRow(int64(4), "Volga loop", now, now))
	mock.ExpectQuery(`FROM route_route_point rrp`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"route_id", "id", "description", "photo_path", "order", "day", "created_at", "updated_at"}).
			AddRow(int64(4), int64(10), "Kremlin", "route_points/a.jpg", 1, int64(1), now, now).
			AddRow(int64(4), int64(11), "Embankment", "", 2, nil, now, now))

	r, err := RouteRepo{}.GetByID(context.Background(), db, 4)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if len(r.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(r.Points))
	}
	if r.Points[0].Day == nil || *r.Points[0].Day != 1 || r.Points[1].Day != nil {
		t.Fatalf("unexpected days: %+v", r.Points)
	}
}

func TestRouteReplaceStopsRejectsDuplicatePoint(t *testing.T) {
	db, mock := newMock(t)
	day := 2
	mock.ExpectExec(`DELETE FROM route_route_point WHERE route_id=\?`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO route_route_point`).WithArgs(int64(4), int64(10), 2).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO route_route_point`).WithArgs(int64(4), int64(10), nil).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := RouteRepo{}.ReplaceStops(context.Background(), db, 4, []models.RouteStop{
		{PointID: 10, Day: &day},
		{PointID: 10},
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := UserRepo{}.Create(context.Background(), db, models.User{
		FirstName: "Anna", LastName: "Ivanova", Email: " Anna@Example.com ", PasswordHash: "x",
		BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.Local),
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}
