package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
	"tourbackend/internal/domain/models"
	"tourbackend/internal/utils"
)

type UserRepo struct{}

const userColumns = `id, first_name, last_name, COALESCE(patronymic, ''), email, password_hash, birth_date, is_admin, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Patronymic, &u.Email, &u.PasswordHash,
		&u.BirthDate, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (UserRepo) GetByID(ctx context.Context, q intdb.Querier, id int64) (models.User, error) {
	return getUser(ctx, q, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
}

func (UserRepo) GetByEmail(ctx context.Context, q intdb.Querier, email string) (models.User, error) {
	return getUser(ctx, q, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, strings.ToLower(strings.TrimSpace(email)))
}

func getUser(ctx context.Context, q intdb.Querier, query string, arg any) (models.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
	}
	if err != nil {
		return models.User{}, internal("load user", err)
	}
	return u, nil
}

func (UserRepo) Create(ctx context.Context, q intdb.Querier, u models.User) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO users (first_name, last_name, patronymic, email, password_hash, birth_date, is_admin)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.FirstName, u.LastName, intdb.NullIfEmpty(u.Patronymic), strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash, utils.FormatDate(u.BirthDate), u.IsAdmin,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "user", Msg: "email already taken", Err: err}
		}
		return 0, internal("insert user", err)
	}
	return res.LastInsertId()
}
