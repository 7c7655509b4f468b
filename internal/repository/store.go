package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateTicketNumber is returned when a generated ticket number is already taken.
	ErrDuplicateTicketNumber = errors.New("duplicate ticket number")
	// ErrDuplicateEmail is returned when a user e-mail is already registered.
	ErrDuplicateEmail = errors.New("duplicate email")
)

const (
	pgUniqueViolation      = "23505"
	pgInvalidText          = "22P02"
	ticketNumberConstraint = "tickets_number_key"
	userEmailConstraint    = "users_email_key"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx exposes the ticket repositories bound to one unit of work.
type Tx interface {
	Tickets() TicketRepository
	Items() TicketItemRepository
	History() TicketStatusHistoryRepository
}

// Store gives autocommit access to the ticket repositories and runs
// transactional units of work. WithTx commits when fn returns nil and
// rolls back every write made through tx otherwise.
type Store interface {
	Tx
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type repos struct {
	tickets TicketRepository
	items   TicketItemRepository
	history TicketStatusHistoryRepository
}

func newRepos(db DBTX) repos {
	return repos{
		tickets: NewTicketRepository(db),
		items:   NewTicketItemRepository(db),
		history: NewTicketStatusHistoryRepository(db),
	}
}

func (r repos) Tickets() TicketRepository              { return r.tickets }
func (r repos) Items() TicketItemRepository            { return r.items }
func (r repos) History() TicketStatusHistoryRepository { return r.history }

type postgresStore struct {
	repos
	pool *pgxpool.Pool
}

// NewPostgresStore builds a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{repos: newRepos(pool), pool: pool}
}

func (s *postgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

// mapNoRows maps a missing row to ErrNotFound. A malformed uuid cannot match
// any row either.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidText {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
