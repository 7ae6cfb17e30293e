package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"marketlens/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ RunStore = (*SQLiteStore)(nil)
var _ PredictionStore = (*SQLiteStore)(nil)

const timeLayout = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id                   TEXT PRIMARY KEY,
	strategy             TEXT NOT NULL,
	created_at           TEXT NOT NULL,
	cutoff               TEXT NOT NULL,
	cost_bps             REAL NOT NULL,
	days                 INTEGER NOT NULL,
	total_return_pct     REAL NOT NULL,
	benchmark_return_pct REAL NOT NULL,
	sharpe               REAL,
	max_drawdown_pct     REAL NOT NULL,
	trades               INTEGER NOT NULL,
	collapsed_dates      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS backtest_curve (
	run_id    TEXT NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
	date      TEXT NOT NULL,
	strategy  REAL NOT NULL,
	benchmark REAL NOT NULL,
	PRIMARY KEY (run_id, date)
);
CREATE TABLE IF NOT EXISTS predictions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker     TEXT NOT NULL,
	date       TEXT NOT NULL,
	close      REAL NOT NULL,
	direction  INTEGER NOT NULL,
	confidence REAL NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_ticker_created ON predictions(ticker, created_at);
`

// SQLiteStore implements RunStore and PredictionStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a run and its curve in a single transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.BacktestRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var sharpe sql.NullFloat64
	if run.Sharpe != nil {
		sharpe = sql.NullFloat64{Float64: *run.Sharpe, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backtest_runs (id, strategy, created_at, cutoff, cost_bps, days,
			total_return_pct, benchmark_return_pct, sharpe, max_drawdown_pct, trades, collapsed_dates)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.CreatedAt.UTC().Format(timeLayout), run.Cutoff.Format(domain.DateLayout),
		run.CostBps, run.Days, run.TotalReturnPct, run.BenchmarkReturnPct, sharpe,
		run.MaxDrawdownPct, run.Trades, run.CollapsedDates,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO backtest_curve (run_id, date, strategy, benchmark) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range run.Curve {
		if _, err := stmt.ExecContext(ctx, run.ID, p.Date.Format(domain.DateLayout), p.Strategy, p.Benchmark); err != nil {
			return fmt.Errorf("inserting curve point %s: %w", p.Date.Format(domain.DateLayout), err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a single run and its curve by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.BacktestRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, created_at, cutoff, cost_bps, days, total_return_pct,
			benchmark_return_pct, sharpe, max_drawdown_pct, trades, collapsed_dates
		FROM backtest_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, strategy, benchmark FROM backtest_curve WHERE run_id = ? ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			date string
			p    domain.EquityPoint
		)
		if err := rows.Scan(&date, &p.Strategy, &p.Benchmark); err != nil {
			return nil, err
		}
		if p.Date, err = time.Parse(domain.DateLayout, date); err != nil {
			return nil, err
		}
		run.Curve = append(run.Curve, p)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first, without curves.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.BacktestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, created_at, cutoff, cost_bps, days, total_return_pct,
			benchmark_return_pct, sharpe, max_drawdown_pct, trades, collapsed_dates
		FROM backtest_runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.BacktestRun, error) {
	var (
		run       domain.BacktestRun
		createdAt string
		cutoff    string
		sharpe    sql.NullFloat64
	)
	err := sc.Scan(&run.ID, &run.Strategy, &createdAt, &cutoff, &run.CostBps, &run.Days,
		&run.TotalReturnPct, &run.BenchmarkReturnPct, &sharpe, &run.MaxDrawdownPct,
		&run.Trades, &run.CollapsedDates)
	if err != nil {
		return nil, err
	}
	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, err
	}
	if run.Cutoff, err = time.Parse(domain.DateLayout, cutoff); err != nil {
		return nil, err
	}
	if sharpe.Valid {
		v := sharpe.Float64
		run.Sharpe = &v
	}
	return &run, nil
}

// ---------------------------------------------------------------------------
// PredictionStore implementation
// ---------------------------------------------------------------------------

// SavePredictions inserts a batch of prediction snapshots.
func (s *SQLiteStore) SavePredictions(ctx context.Context, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (ticker, date, close, direction, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range preds {
		_, err := stmt.ExecContext(ctx, p.Ticker, p.Date.Format(domain.DateLayout), p.Close,
			int(p.Direction), p.Confidence, p.CreatedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("inserting prediction for %s: %w", p.Ticker, err)
		}
	}
	return tx.Commit()
}

// ListPredictions returns the most recent predictions, newest first.
func (s *SQLiteStore) ListPredictions(ctx context.Context, ticker string, limit int) ([]domain.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, date, close, direction, confidence, created_at
		FROM predictions
		WHERE ? = '' OR ticker = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, ticker, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		var (
			p         domain.Prediction
			date      string
			direction int
			createdAt string
		)
		if err := rows.Scan(&p.Ticker, &date, &p.Close, &direction, &p.Confidence, &createdAt); err != nil {
			return nil, err
		}
		if p.Date, err = time.Parse(domain.DateLayout, date); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, err
		}
		p.Direction = domain.Direction(direction)
		preds = append(preds, p)
	}
	return preds, rows.Err()
}
