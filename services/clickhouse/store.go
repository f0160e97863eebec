// Package clickhouse is the daily-bar store. It only feeds ordered bars into
// the simulation core; the core itself never talks to it.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"

	"stratlab/services/engine"
)

type Options struct {
	Addr     string
	Database string
	Table    string
	User     string
	Password string
}

type Store struct {
	conn clickhouse.Conn
	opts Options
}

func Open(ctx context.Context, opts Options) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: opts.User,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Store{conn: conn, opts: opts}, nil
}

func (s *Store) Close() error { return s.conn.Close() }

// EnsureSchema creates the database and the deduplicating daily-bar table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.opts.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol String,
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, date)
		SETTINGS index_granularity = 8192
	`, s.opts.Database, s.opts.Table)
	return s.conn.Exec(ctx, ddl)
}

// InsertBars writes one symbol's bars in a single batch. Re-ingesting the
// same (symbol, date) is safe: the ReplacingMergeTree keeps the newest
// version.
func (s *Store) InsertBars(ctx context.Context, symbol string, bars []engine.Bar) error {
	batch, err := s.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s.%s SETTINGS insert_deduplicate=1", s.opts.Database, s.opts.Table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	now := time.Now().UTC()
	version := uint64(now.UnixMilli())
	for _, b := range bars {
		if err := batch.Append(
			symbol,
			b.Date,
			b.Open,
			b.High,
			b.Low,
			b.Close,
			b.Volume,
			now,
			version,
		); err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	return nil
}

// LoadBars reads a symbol's bars ordered by date. Zero time bounds are open.
func (s *Store) LoadBars(ctx context.Context, symbol string, from, to time.Time) (*engine.Series, error) {
	q := fmt.Sprintf(`
		SELECT date, open, high, low, close, volume
		FROM %s.%s FINAL
		WHERE symbol = ?`, s.opts.Database, s.opts.Table)
	args := []any{symbol}
	if !from.IsZero() {
		q += " AND date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		q += " AND date <= ?"
		args = append(args, to)
	}
	q += " ORDER BY date"

	rows, err := s.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []engine.Bar
	for rows.Next() {
		var b engine.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read bars: %w", err)
	}
	return engine.NewSeries(bars)
}
