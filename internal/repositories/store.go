package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tourbackend/internal/config"
	intdb "tourbackend/internal/db"
	"tourbackend/internal/domain"
)

// Store hands out the connection for plain reads and runs transactional work.
type Store struct {
	DB *sql.DB
}

func (s Store) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return config.DB
}

// Reader returns the pooled connection for reads that tolerate slightly stale data.
func (s Store) Reader() intdb.Querier {
	return s.db()
}

func (s Store) InTx(ctx context.Context, fn func(q intdb.Querier) error) error {
	conn := s.db()
	if conn == nil {
		return domain.InternalError{Msg: "database not connected"}
	}
	return intdb.WithTx(ctx, conn, fn)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

// internal wraps infrastructure failures. Lock conflicts stay distinguishable
// so the booking orchestrator can retry them.
func internal(op string, err error) error {
	if intdb.IsLockConflict(err) {
		return domain.ConcurrencyConflictError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	return domain.InternalError{Msg: op + " failed", Err: fmt.Errorf("%s: %w", op, err)}
}
