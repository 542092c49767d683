package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrStaleWrite is returned when an update lost a race against another
// writer of the same row.
var ErrStaleWrite = errors.New("row was modified concurrently")

// Supported SQL dialects. They match the storage driver names.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories groups every repository bound to the same connection or
// transaction.
type Repositories struct {
	Tickets        TicketRepository
	Departments    DepartmentRepository
	Users          UserRepository
	RecurringTasks RecurringTaskRepository
	History        TicketHistoryRepository
}

// Store hands out repositories and runs units of work.
type Store struct {
	db      *sql.DB
	dialect string
}

// NewStore wraps an opened database. dialect is one of the Dialect constants.
func NewStore(db *sql.DB, dialect string) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Repos returns repositories that run outside of any transaction.
func (s *Store) Repos() Repositories {
	return newRepositories(&querier{db: s.db, dialect: s.dialect})
}

// WithinTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(newRepositories(&querier{db: tx, dialect: s.dialect})); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func newRepositories(q *querier) Repositories {
	return Repositories{
		Tickets:        &ticketRepository{q: q},
		Departments:    &departmentRepository{q: q},
		Users:          &userRepository{q: q},
		RecurringTasks: &recurringTaskRepository{q: q},
		History:        &ticketHistoryRepository{q: q},
	}
}

// querier writes queries with '?' placeholders and rebinds them for the
// active dialect.
type querier struct {
	db      DBTX
	dialect string
}

func (q *querier) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *querier) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *querier) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

func (q *querier) rebind(query string) string {
	if q.dialect != DialectPostgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
