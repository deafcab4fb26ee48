package recorder

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"SectorSentinel/internal/model"
)

// SQLiteRecorder appends refresh readings to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sector_readings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			benchmark   TEXT NOT NULL,
			ticker      TEXT NOT NULL,
			point_date  TEXT,
			zscore      REAL,
			signal      TEXT,
			failed      INTEGER NOT NULL DEFAULT 0,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_ticker_ts ON sector_readings(ticker, recorded_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordSnapshot writes one row per sector in a single transaction.
func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, snap *model.Snapshot, classify func(float64) string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sector_readings
		(recorded_at, benchmark, ticker, point_date, zscore, signal, failed, error)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rd := range ReadingsOf(snap, classify) {
		var date any
		if !rd.Date.IsZero() {
			date = rd.Date.Format(time.DateOnly)
		}
		if _, err := stmt.ExecContext(ctx,
			rd.RecordedAt.UnixMilli(), rd.Benchmark, rd.Ticker, date,
			rd.ZScore, rd.Signal, rd.Failed, rd.Error,
		); err != nil {
			return fmt.Errorf("insert %s: %w", rd.Ticker, err)
		}
	}
	return tx.Commit()
}

// History returns the most recent readings for ticker, newest first.
func (r *SQLiteRecorder) History(ctx context.Context, ticker string, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT recorded_at, benchmark, ticker, point_date, zscore, signal, failed, error
		FROM sector_readings WHERE ticker = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reading
	for rows.Next() {
		var (
			rd        Reading
			ts        int64
			date, sig sql.NullString
			errText   sql.NullString
			zscore    sql.NullFloat64
		)
		if err := rows.Scan(&ts, &rd.Benchmark, &rd.Ticker, &date, &zscore, &sig, &rd.Failed, &errText); err != nil {
			return nil, err
		}
		rd.RecordedAt = time.UnixMilli(ts).UTC()
		if date.Valid {
			if d, err := time.Parse(time.DateOnly, date.String); err == nil {
				rd.Date = d
			}
		}
		rd.ZScore = zscore.Float64
		rd.Signal = sig.String
		rd.Error = errText.String
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func sortByTicker(rs []Reading) {
	slices.SortFunc(rs, func(a, b Reading) int { return cmp.Compare(a.Ticker, b.Ticker) })
}
