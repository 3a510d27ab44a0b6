// Package feedback persists user relevance signals and turns them into
// the bounded scoring bias applied on later discovery runs.
package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/paperscope/paperscope/pkg/models"
)

// maxBias bounds the per-paper scoring adjustment; feedback nudges
// rankings, it never dominates them.
const maxBias = 0.05

const schema = `
CREATE TABLE IF NOT EXISTS feedback_events (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id          TEXT NOT NULL,
	source_paper_id  TEXT NOT NULL,
	discovered_key   TEXT NOT NULL,
	type             TEXT NOT NULL,
	rating           INTEGER,
	normalized       REAL NOT NULL,
	created_at       INTEGER NOT NULL,
	UNIQUE(user_id, source_paper_id, discovered_key, type)
);
CREATE INDEX IF NOT EXISTS idx_feedback_discovered ON feedback_events(discovered_key);
`

// Store is the SQLite-backed feedback event log.
type Store struct {
	db        *sql.DB
	stmtCache map[string]*sql.Stmt
	stmtMu    sync.RWMutex
	now       func() time.Time
}

// Config holds feedback store configuration.
type Config struct {
	Path     string
	MaxConns int
}

// NewStore opens the feedback database, creating the schema if needed.
func NewStore(cfg Config) (*Store, error) {
	connStr := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open feedback database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping feedback database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize feedback schema: %w", err)
	}

	return &Store{
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
		now:       time.Now,
	}, nil
}

func (s *Store) getStmt(query string) (*sql.Stmt, error) {
	s.stmtMu.RLock()
	stmt, ok := s.stmtCache[query]
	s.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	if stmt, ok := s.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	s.stmtCache[query] = stmt
	return stmt, nil
}

// Record validates and stores one feedback event. Submitting the same
// (user, source paper, discovered key, type) again replaces the earlier
// signal; a user changing their rating should not count twice.
func (s *Store) Record(ctx context.Context, event models.FeedbackEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	stmt, err := s.getStmt(`
		INSERT INTO feedback_events (user_id, source_paper_id, discovered_key, type, rating, normalized, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, source_paper_id, discovered_key, type) DO UPDATE SET
			rating = excluded.rating,
			normalized = excluded.normalized,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("prepare feedback insert: %w", err)
	}

	var rating any
	if event.Rating != nil {
		rating = *event.Rating
	}
	_, err = stmt.ExecContext(ctx,
		event.UserID, event.SourcePaperID, event.DiscoveredKey,
		string(event.Type), rating, event.NormalizedRating(), createdAt.Unix())
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// AverageSignal returns the all-time mean normalized signal for one
// discovered paper key. ok is false when no feedback exists.
func (s *Store) AverageSignal(ctx context.Context, discoveredKey string) (float64, bool, error) {
	stmt, err := s.getStmt(`SELECT AVG(normalized) FROM feedback_events WHERE discovered_key = ?`)
	if err != nil {
		return 0, false, fmt.Errorf("prepare feedback aggregate: %w", err)
	}

	var avg sql.NullFloat64
	err = stmt.QueryRowContext(ctx, discoveredKey).Scan(&avg)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !avg.Valid) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("feedback aggregate: %w", err)
	}
	return avg.Float64, true, nil
}

// Count returns the total number of stored feedback events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("feedback count: %w", err)
	}
	return n, nil
}

// Close closes cached statements and the database.
func (s *Store) Close() error {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	for _, stmt := range s.stmtCache {
		_ = stmt.Close()
	}
	s.stmtCache = nil

	return s.db.Close()
}
