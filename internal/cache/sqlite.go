package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/paperscope/paperscope/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS discovery_cache (
	key        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_discovery_cache_expires ON discovery_cache(expires_at);
`

// SQLiteStore persists results in a local SQLite file. The default
// backend for single-node deployments.
type SQLiteStore struct {
	db        *sql.DB
	stmtCache map[string]*sql.Stmt
	stmtMu    sync.RWMutex
}

// SQLiteConfig holds SQLite store configuration.
type SQLiteConfig struct {
	Path     string
	MaxConns int
}

// NewSQLiteStore opens (and if needed initializes) the cache database.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	connStr := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		stmtCache: make(map[string]*sql.Stmt),
	}, nil
}

func (s *SQLiteStore) getStmt(query string) (*sql.Stmt, error) {
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

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.UnifiedDiscoveryResult, bool, error) {
	stmt, err := s.getStmt(`SELECT payload, expires_at FROM discovery_cache WHERE key = ?`)
	if err != nil {
		return nil, false, fmt.Errorf("prepare cache get: %w", err)
	}

	var payload []byte
	var expiresAt int64
	err = stmt.QueryRowContext(ctx, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if time.Now().Unix() >= expiresAt {
		return nil, false, nil
	}

	var result models.UnifiedDiscoveryResult
	if err := json.Unmarshal(payload, &result); err != nil {
		// A corrupt row is a miss, not a failure; drop it.
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return &result, true, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, key string, result *models.UnifiedDiscoveryResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	stmt, err := s.getStmt(`
		INSERT INTO discovery_cache (key, payload, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at = excluded.expires_at`)
	if err != nil {
		return fmt.Errorf("prepare cache put: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	if _, err := stmt.ExecContext(ctx, key, payload, expiresAt); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	stmt, err := s.getStmt(`DELETE FROM discovery_cache WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("prepare cache delete: %w", err)
	}
	if _, err := stmt.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Prune implements Store.
func (s *SQLiteStore) Prune(ctx context.Context) (int, error) {
	stmt, err := s.getStmt(`DELETE FROM discovery_cache WHERE expires_at <= ?`)
	if err != nil {
		return 0, fmt.Errorf("prepare cache prune: %w", err)
	}
	res, err := stmt.ExecContext(ctx, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("cache prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes cached statements and the database.
func (s *SQLiteStore) Close() error {
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()

	for _, stmt := range s.stmtCache {
		_ = stmt.Close()
	}
	s.stmtCache = nil

	return s.db.Close()
}
