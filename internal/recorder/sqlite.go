package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"CoinPulse/internal/model"
)

// SQLiteRecorder writes every tick's quotes and news count to SQLite.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.SugaredLogger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets external readers query while ticks are being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Infow("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_ticks (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			tick      INTEGER NOT NULL,
			symbol    TEXT NOT NULL,
			price     REAL,
			ok        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_ts ON price_ticks(timestamp)`,

		`CREATE TABLE IF NOT EXISTS news_polls (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			tick       INTEGER NOT NULL,
			feed_items INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_news_ts ON news_polls(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordTick stores one row per quote plus one news_polls row, in a single
// transaction. Absent quotes are stored with a NULL price.
func (r *SQLiteRecorder) RecordTick(snap *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	ts := snap.UpdatedAt.Unix()
	for _, q := range snap.Quotes {
		var price sql.NullFloat64
		if q.Present() {
			price = sql.NullFloat64{Float64: q.Price, Valid: true}
		}
		if _, err := tx.Exec(`INSERT INTO price_ticks
			(timestamp, tick, symbol, price, ok)
			VALUES (?,?,?,?,?)`,
			ts, snap.Tick, q.Symbol, price, q.Present(),
		); err != nil {
			return fmt.Errorf("insert price tick: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO news_polls
		(timestamp, tick, feed_items)
		VALUES (?,?,?)`,
		ts, snap.Tick, len(snap.News),
	); err != nil {
		return fmt.Errorf("insert news poll: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
