package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/s9927637/arbitrage-trader/business/engine/app"
	"github.com/s9927637/arbitrage-trader/business/engine/domain"
	"github.com/s9927637/arbitrage-trader/internal/apperror"
	"github.com/s9927637/arbitrage-trader/internal/logger"
)

// Ensure Repository satisfies the ledger port.
var _ app.Ledger = (*Repository)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS trade_outcomes (
	id SERIAL PRIMARY KEY,
	executed_at TIMESTAMPTZ NOT NULL,
	cycle TEXT NOT NULL,
	traded_amount NUMERIC(30, 12) NOT NULL,
	estimated_cost NUMERIC(30, 12) NOT NULL,
	expected_profit NUMERIC(30, 12) NOT NULL,
	actual_profit NUMERIC(30, 12) NOT NULL,
	status VARCHAR(10) NOT NULL,
	legs_filled INT NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT ''
);`

const insertOutcomeSQL = `
INSERT INTO trade_outcomes
	(executed_at, cycle, traded_amount, estimated_cost, expected_profit, actual_profit, status, legs_filled, failure_reason)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Repository is an append-only ledger of trade outcomes backed by PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  logger.LoggerInterface
}

// Connect opens a connection pool against the given DSN and verifies it
// with a ping.
func Connect(ctx context.Context, dsn string, log logger.LoggerInterface) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "invalid ledger dsn")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperror.Wrap(err, apperror.CodeLedgerWriteFailed, "ledger database unreachable")
	}
	return New(pool, log), nil
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool, log logger.LoggerInterface) *Repository {
	return &Repository{pool: pool, log: log}
}

// EnsureSchema creates the trade_outcomes table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTableSQL); err != nil {
		return apperror.Wrap(err, apperror.CodeLedgerWriteFailed, "create trade_outcomes table")
	}
	return nil
}

// Append inserts one outcome row. Rows are never updated or deleted.
// Decimal values travel as text so NUMERIC keeps full precision.
func (r *Repository) Append(ctx context.Context, outcome domain.TradeOutcome) error {
	_, err := r.pool.Exec(ctx, insertOutcomeSQL,
		outcome.Timestamp,
		outcome.Cycle.String(),
		outcome.TradedAmount.String(),
		outcome.EstimatedCost.String(),
		outcome.ExpectedProfit.String(),
		outcome.ActualProfit.String(),
		string(outcome.Status),
		outcome.LegsFilled,
		outcome.FailureReason,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeLedgerWriteFailed, "insert trade outcome")
	}
	r.log.Debug(ctx, "trade outcome appended to ledger", "cycle", outcome.Cycle.String(), "status", string(outcome.Status))
	return nil
}

// Ping reports whether the ledger database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}
