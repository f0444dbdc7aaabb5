package repository

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lockedQueryable serializes statements on a single transaction connection so that
// repositories sharing one unit of work can be called from several goroutines.
// The lock is held until a row is scanned or a result set is closed.
type lockedQueryable struct {
	mu sync.Mutex
	q  queryable
}

func newLockedQueryable(q queryable) *lockedQueryable {
	return &lockedQueryable{q: q}
}

func (l *lockedQueryable) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Exec(ctx, sql, args...)
}

func (l *lockedQueryable) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	l.mu.Lock()
	rows, err := l.q.Query(ctx, sql, args...)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	return &lockedRows{Rows: rows, unlock: l.mu.Unlock}, nil
}

func (l *lockedQueryable) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	l.mu.Lock()
	return &lockedRow{row: l.q.QueryRow(ctx, sql, args...), unlock: l.mu.Unlock}
}

type lockedRows struct {
	pgx.Rows
	once   sync.Once
	unlock func()
}

func (r *lockedRows) Close() {
	r.Rows.Close()
	r.once.Do(r.unlock)
}

type lockedRow struct {
	row    pgx.Row
	once   sync.Once
	unlock func()
}

func (r *lockedRow) Scan(dest ...any) error {
	defer r.once.Do(r.unlock)
	return r.row.Scan(dest...)
}
