package repositories

import (
	"context"
	"database/sql"
	"errors"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
)

// BookingRepo persists bookings as a (slots, canceled) pair. Rows are never
// physically removed except through excursion deletion.
type BookingRepo struct{}

const bookingColumns = `id, excursion_id, user_id, slots, canceled, created_at, updated_at`

func scanBooking(row rowScanner) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.ExcursionID, &b.UserID, &b.Seats, &b.Cancelled, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// SumActiveSeats is the booked-seat aggregate of one excursion.
func (BookingRepo) SumActiveSeats(ctx context.Context, q intdb.Querier, excursionID int64) (int, error) {
	var sum int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(slots), 0)
		FROM bookings
		WHERE excursion_id=? AND canceled=0`, excursionID).Scan(&sum)
	if err != nil {
		return 0, internal("sum booked seats", err)
	}
	return sum, nil
}

// SumActiveSeatsByExcursions returns the aggregate for several excursions at
// once; excursions without bookings are absent from the map.
func (BookingRepo) SumActiveSeatsByExcursions(ctx context.Context, q intdb.Querier, ids []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT excursion_id, COALESCE(SUM(slots), 0)
		FROM bookings
		WHERE canceled=0 AND excursion_id IN (`+placeholders(len(ids))+`)
		GROUP BY excursion_id`, int64Args(ids)...)
	if err != nil {
		return nil, internal("sum booked seats", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var sum int
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, internal("scan booked seats", err)
		}
		out[id] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, internal("sum booked seats", err)
	}
	return out, nil
}

func (BookingRepo) FindActive(ctx context.Context, q intdb.Querier, excursionID, userID int64) (models.Booking, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE excursion_id=? AND user_id=? AND canceled=0
		LIMIT 1`, excursionID, userID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking", Err: err}
	}
	if err != nil {
		return models.Booking{}, internal("load booking", err)
	}
	return b, nil
}

// Create inserts an active booking. A second active row for the same
// (excursion, user) trips the active_marker unique key.
func (BookingRepo) Create(ctx context.Context, q intdb.Querier, b models.Booking) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO bookings (excursion_id, user_id, slots, canceled)
		VALUES (?, ?, ?, 0)`, b.ExcursionID, b.UserID, b.Seats)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "booking", Msg: "active booking already exists", Err: err}
		}
		return 0, internal("insert booking", err)
	}
	return res.LastInsertId()
}

func (BookingRepo) UpdateSeats(ctx context.Context, q intdb.Querier, id int64, seats int) error {
	res, err := q.ExecContext(ctx, `UPDATE bookings SET slots=? WHERE id=? AND canceled=0`, seats, id)
	if err != nil {
		return internal("update booking", err)
	}
	return requireAffected(res, "booking")
}

func (BookingRepo) MarkCancelled(ctx context.Context, q intdb.Querier, id int64) error {
	res, err := q.ExecContext(ctx, `UPDATE bookings SET canceled=1 WHERE id=? AND canceled=0`, id)
	if err != nil {
		return internal("cancel booking", err)
	}
	return requireAffected(res, "booking")
}

func (BookingRepo) ListActiveByUser(ctx context.Context, q intdb.Querier, userID int64) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id=? AND canceled=0
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, internal("list bookings", err)
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, internal("scan booking", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, internal("list bookings", err)
	}
	return out, nil
}

// DeleteByExcursion removes every booking row of an excursion, cancelled or not.
func (BookingRepo) DeleteByExcursion(ctx context.Context, q intdb.Querier, excursionID int64) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE excursion_id=?`, excursionID)
	if err != nil {
		return 0, internal("delete bookings", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
