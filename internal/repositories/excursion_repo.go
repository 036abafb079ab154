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

// ExcursionRepo persists excursions. Cost is stored as DECIMAL(10,2) and
// handled as cents in Go.
type ExcursionRepo struct{}

const excursionColumns = `
	e.id, e.start_point, e.start_date, CAST(e.start_time AS CHAR), e.all_days, e.all_people,
	e.age_limit, CAST(ROUND(e.cost * 100) AS SIGNED), e.route_id, e.created_at, e.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExcursion(row rowScanner) (models.Excursion, error) {
	var e models.Excursion
	var startTime string
	if err := row.Scan(
		&e.ID, &e.StartPoint, &e.StartDate, &startTime, &e.AllDays, &e.AllPeople,
		&e.AgeLimit, &e.CostCents, &e.RouteID, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return models.Excursion{}, err
	}
	if hm, ok := utils.NormalizeTimeHM(startTime); ok {
		e.StartTime = hm
	} else {
		e.StartTime = startTime
	}
	return e, nil
}

func (ExcursionRepo) GetByID(ctx context.Context, q intdb.Querier, id int64) (models.Excursion, error) {
	return getExcursion(ctx, q, id, "")
}

// LockByID reads the excursion row with FOR UPDATE. It serializes every
// seat mutation for the excursion and must run inside a transaction.
func (ExcursionRepo) LockByID(ctx context.Context, q intdb.Querier, id int64) (models.Excursion, error) {
	return getExcursion(ctx, q, id, " FOR UPDATE")
}

func getExcursion(ctx context.Context, q intdb.Querier, id int64, suffix string) (models.Excursion, error) {
	row := q.QueryRowContext(ctx, `SELECT `+excursionColumns+` FROM excursions e WHERE e.id=? LIMIT 1`+suffix, id)
	e, err := scanExcursion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Excursion{}, domain.NotFoundError{Resource: "excursion", Err: err}
	}
	if err != nil {
		return models.Excursion{}, internal("load excursion", err)
	}
	return e, nil
}

func (ExcursionRepo) List(ctx context.Context, q intdb.Querier) ([]models.Excursion, error) {
	return queryExcursions(ctx, q, `SELECT `+excursionColumns+` FROM excursions e ORDER BY e.start_date, e.id`)
}

// Search matches the start point or any route point description of the excursion's route.
func (ExcursionRepo) Search(ctx context.Context, q intdb.Querier, term string) ([]models.Excursion, error) {
	pattern := utils.LikePattern(term)
	return queryExcursions(ctx, q, `
		SELECT `+excursionColumns+`
		FROM excursions e
		WHERE e.start_point LIKE ?
		   OR EXISTS (
			SELECT 1 FROM route_route_point rrp
			JOIN route_points rp ON rp.id = rrp.route_point_id
			WHERE rrp.route_id = e.route_id AND rp.description LIKE ?
		   )
		ORDER BY e.start_date, e.id`, pattern, pattern)
}

func queryExcursions(ctx context.Context, q intdb.Querier, query string, args ...any) ([]models.Excursion, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internal("list excursions", err)
	}
	defer rows.Close()

	out := []models.Excursion{}
	for rows.Next() {
		e, err := scanExcursion(rows)
		if err != nil {
			return nil, internal("scan excursion", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, internal("list excursions", err)
	}
	return out, nil
}

func (ExcursionRepo) Create(ctx context.Context, q intdb.Querier, e models.Excursion) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO excursions (start_point, start_date, start_time, all_days, all_people, age_limit, cost, route_id)
		VALUES (?, ?, ?, ?, ?, ?, ? / 100, ?)`,
		e.StartPoint, utils.FormatDate(e.StartDate), e.StartTime, e.AllDays, e.AllPeople, e.AgeLimit, e.CostCents, e.RouteID,
	)
	if err != nil {
		return 0, internal("insert excursion", err)
	}
	return res.LastInsertId()
}

func (ExcursionRepo) Update(ctx context.Context, q intdb.Querier, e models.Excursion) error {
	res, err := q.ExecContext(ctx, `
		UPDATE excursions
		SET start_point=?, start_date=?, start_time=?, all_days=?, all_people=?, age_limit=?, cost=? / 100, route_id=?
		WHERE id=?`,
		e.StartPoint, utils.FormatDate(e.StartDate), e.StartTime, e.AllDays, e.AllPeople, e.AgeLimit, e.CostCents, e.RouteID, e.ID,
	)
	if err != nil {
		return internal("update excursion", err)
	}
	return requireAffected(res, "excursion")
}

func (ExcursionRepo) Delete(ctx context.Context, q intdb.Querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM excursions WHERE id=?`, id)
	if err != nil {
		return internal("delete excursion", err)
	}
	return requireAffected(res, "excursion")
}

// requireAffected treats a zero-row result as a missing record. The DSN sets
// clientFoundRows so unchanged UPDATEs still count as matched.
func requireAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return internal("rows affected", err)
	}
	if n == 0 {
		return domain.NotFoundError{Resource: resource}
	}
	return nil
}
