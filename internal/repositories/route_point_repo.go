package repositories

import (
	"context"
	"database/sql"
	"errors"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
)

type RoutePointRepo struct{}

const routePointColumns = "id, description, COALESCE(photo_path, ''), `order`, created_at, updated_at"

func scanRoutePoint(row rowScanner) (models.RoutePoint, error) {
	var p models.RoutePoint
	err := row.Scan(&p.ID, &p.Description, &p.PhotoPath, &p.Order, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (RoutePointRepo) List(ctx context.Context, q intdb.Querier) ([]models.RoutePoint, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+routePointColumns+" FROM route_points ORDER BY `order`, id")
	if err != nil {
		return nil, internal("list route points", err)
	}
	defer rows.Close()

	out := []models.RoutePoint{}
	for rows.Next() {
		p, err := scanRoutePoint(rows)
		if err != nil {
			return nil, internal("scan route point", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, internal("list route points", err)
	}
	return out, nil
}

func (RoutePointRepo) GetByID(ctx context.Context, q intdb.Querier, id int64) (models.RoutePoint, error) {
	p, err := scanRoutePoint(q.QueryRowContext(ctx, "SELECT "+routePointColumns+" FROM route_points WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.RoutePoint{}, domain.NotFoundError{Resource: "route point", Err: err}
	}
	if err != nil {
		return models.RoutePoint{}, internal("load route point", err)
	}
	return p, nil
}

// NextOrder is one past the current maximum order.
func (RoutePointRepo) NextOrder(ctx context.Context, q intdb.Querier) (int, error) {
	var next int
	if err := q.QueryRowContext(ctx, "SELECT COALESCE(MAX(`order`), 0) + 1 FROM route_points").Scan(&next); err != nil {
		return 0, internal("next route point order", err)
	}
	return next, nil
}

// ExistingIDs reports which of ids are present.
func (RoutePointRepo) ExistingIDs(ctx context.Context, q intdb.Querier, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `SELECT id FROM route_points WHERE id IN (`+placeholders(len(ids))+`)`, int64Args(ids)...)
	if err != nil {
		return nil, internal("check route points", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, internal("scan route point id", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, internal("check route points", err)
	}
	return out, nil
}

func (RoutePointRepo) Create(ctx context.Context, q intdb.Querier, p models.RoutePoint) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO route_points (description, photo_path, `order`) VALUES (?, ?, ?)",
		p.Description, intdb.NullIfEmpty(p.PhotoPath), p.Order)
	if err != nil {
		return 0, internal("insert route point", err)
	}
	return res.LastInsertId()
}

func (RoutePointRepo) Update(ctx context.Context, q intdb.Querier, p models.RoutePoint) error {
	res, err := q.ExecContext(ctx,
		"UPDATE route_points SET description=?, photo_path=?, `order`=? WHERE id=?",
		p.Description, intdb.NullIfEmpty(p.PhotoPath), p.Order, p.ID)
	if err != nil {
		return internal("update route point", err)
	}
	return requireAffected(res, "route point")
}

func (RoutePointRepo) Delete(ctx context.Context, q intdb.Querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM route_points WHERE id=?`, id)
	if err != nil {
		return internal("delete route point", err)
	}
	return requireAffected(res, "route point")
}
