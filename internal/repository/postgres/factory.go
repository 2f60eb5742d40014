package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/commercelab/mollie-sync/internal/repository"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same repo
// code runs inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	orders       *ordersRepo
	transactions *transactionsRepo
	orderLines   *orderLinesRepo
	stock        *stockRepo
	baskets      *basketsRepo
	vouchers     *vouchersRepo
	customers    *customersRepo

	pool *pgxpool.Pool
}

var _ repo.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return build(pool, pool)
}

func build(db querier, pool *pgxpool.Pool) *Store {
	return &Store{
		orders:       &ordersRepo{db},
		transactions: &transactionsRepo{db},
		orderLines:   &orderLinesRepo{db},
		stock:        &stockRepo{db},
		baskets:      &basketsRepo{db},
		vouchers:     &vouchersRepo{db},
		customers:    &customersRepo{db},
		pool:         pool,
	}
}

func (s *Store) Orders() repo.Orders             { return s.orders }
func (s *Store) Transactions() repo.Transactions { return s.transactions }
func (s *Store) OrderLines() repo.OrderLines     { return s.orderLines }
func (s *Store) Stock() repo.Stock               { return s.stock }
func (s *Store) Baskets() repo.Baskets           { return s.baskets }
func (s *Store) Vouchers() repo.Vouchers         { return s.vouchers }
func (s *Store) Customers() repo.Customers       { return s.customers }

// WithTx runs fn against transaction-scoped repositories so one
// reconciliation run's writes (order, transaction, stock) land in a single
// commit.
func (s *Store) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(build(tx, s.pool)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
