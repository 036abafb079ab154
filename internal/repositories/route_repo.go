package repositories

import (
	"context"
	"database/sql"
	"errors"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/utils"
)

type RouteRepo struct{}

func (RouteRepo) List(ctx context.Context, q intdb.Querier) ([]models.Route, error) {
	return queryRoutes(ctx, q, `SELECT id, description, created_at, updated_at FROM routes ORDER BY id`)
}

func (RouteRepo) Search(ctx context.Context, q intdb.Querier, term string) ([]models.Route, error) {
	return queryRoutes(ctx, q, `
		SELECT id, description, created_at, updated_at
		FROM routes
		WHERE description LIKE ?
		ORDER BY id`, utils.LikePattern(term))
}

func queryRoutes(ctx context.Context, q intdb.Querier, query string, args ...any) ([]models.Route, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internal("list routes", err)
	}
	out := []models.Route{}
	for rows.Next() {
		var r models.Route
		if err := rows.Scan(&r.ID, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			rows.Close()
			return nil, internal("scan route", err)
		}
		out = append(out, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, internal("list routes", err)
	}

	ids := make([]int64, 0, len(out))
	for _, r := range out {
		ids = append(ids, r.ID)
	}
	points, err := RouteRepo{}.PointsByRoutes(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Points = points[out[i].ID]
	}
	return out, nil
}

func (r RouteRepo) GetByID(ctx context.Context, q intdb.Querier, id int64) (models.Route, error) {
	var route models.Route
	err := q.QueryRowContext(ctx, `
		SELECT id, description, created_at, updated_at
		FROM routes WHERE id=? LIMIT 1`, id).Scan(&route.ID, &route.Description, &route.CreatedAt, &route.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Route{}, domain.NotFoundError{Resource: "route", Err: err}
	}
	if err != nil {
		return models.Route{}, internal("load route", err)
	}
	points, err := r.PointsByRoutes(ctx, q, []int64{id})
	if err != nil {
		return models.Route{}, err
	}
	route.Points = points[id]
	return route, nil
}

func (RouteRepo) Exists(ctx context.Context, q intdb.Querier, id int64) (bool, error) {
	var found int64
	err := q.QueryRowContext(ctx, `SELECT id FROM routes WHERE id=? LIMIT 1`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, internal("check route", err)
	}
	return true, nil
}

// PointsByRoutes loads the points of each route ordered by point order, with
// the itinerary day from the pivot.
func (RouteRepo) PointsByRoutes(ctx context.Context, q intdb.Querier, routeIDs []int64) (map[int64][]models.RoutePoint, error) {
	out := make(map[int64][]models.RoutePoint, len(routeIDs))
	if len(routeIDs) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT rrp.route_id, rp.id, rp.description, COALESCE(rp.photo_path, ''), rp.`+"`order`"+`, rrp.day,
		       rp.created_at, rp.updated_at
		FROM route_route_point rrp
		JOIN route_points rp ON rp.id = rrp.route_point_id
		WHERE rrp.route_id IN (`+placeholders(len(routeIDs))+`)
		ORDER BY rrp.route_id, rp.`+"`order`"+`, rp.id`, int64Args(routeIDs)...)
	if err != nil {
		return nil, internal("load route points", err)
	}
	defer rows.Close()

	for rows.Next() {
		var routeID int64
		var p models.RoutePoint
		var day sql.NullInt64
		if err := rows.Scan(&routeID, &p.ID, &p.Description, &p.PhotoPath, &p.Order, &day, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, internal("scan route point", err)
		}
		if day.Valid {
			d := int(day.Int64)
			p.Day = &d
		}
		out[routeID] = append(out[routeID], p)
	}
	if err := rows.Err(); err != nil {
		return nil, internal("load route points", err)
	}
	return out, nil
}

func (RouteRepo) Create(ctx context.Context, q intdb.Querier, description string) (int64, error) {
	res, err := q.ExecContext(ctx, `INSERT INTO routes (description) VALUES (?)`, description)
	if err != nil {
		return 0, internal("insert route", err)
	}
	return res.LastInsertId()
}

func (RouteRepo) UpdateDescription(ctx context.Context, q intdb.Querier, id int64, description string) error {
	res, err := q.ExecContext(ctx, `UPDATE routes SET description=? WHERE id=?`, description, id)
	if err != nil {
		return internal("update route", err)
	}
	return requireAffected(res, "route")
}

// ReplaceStops swaps the whole pivot for a route.
func (RouteRepo) ReplaceStops(ctx context.Context, q intdb.Querier, routeID int64, stops []models.RouteStop) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM route_route_point WHERE route_id=?`, routeID); err != nil {
		return internal("clear route points", err)
	}
	for _, s := range stops {
		var day any
		if s.Day != nil {
			day = *s.Day
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO route_route_point (route_id, route_point_id, day)
			VALUES (?, ?, ?)`, routeID, s.PointID, day); err != nil {
			if intdb.IsDuplicateKey(err) {
				return domain.ValidationError{Field: "route_points", Msg: "route point listed twice", Err: err}
			}
			return internal("attach route point", err)
		}
	}
	return nil
}

func (RouteRepo) Delete(ctx context.Context, q intdb.Querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM routes WHERE id=?`, id)
	if err != nil {
		return internal("delete route", err)
	}
	return requireAffected(res, "route")
}
