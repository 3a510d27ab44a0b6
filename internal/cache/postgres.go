package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/paperscope/paperscope/pkg/models"
)

// cacheRow is the GORM model for one persisted result.
type cacheRow struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Payload   []byte    `gorm:"column:payload;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}

func (cacheRow) TableName() string { return "discovery_cache" }

// PostgresStore persists results in PostgreSQL for multi-node
// deployments sharing one cache.
type PostgresStore struct {
	db *gorm.DB
}

// PostgresConfig holds PostgreSQL store configuration.
type PostgresConfig struct {
	DSN      string
	MaxConns int
	LogLevel logger.LogLevel
}

// NewPostgresStore connects to PostgreSQL and migrates the cache table.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns / 2)
	sqlDB.SetConnMaxLifetime(1 * time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := db.AutoMigrate(&cacheRow{}); err != nil {
		return nil, fmt.Errorf("migrate cache table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (*models.UnifiedDiscoveryResult, bool, error) {
	var row cacheRow
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	if !time.Now().Before(row.ExpiresAt) {
		return nil, false, nil
	}

	var result models.UnifiedDiscoveryResult
	if err := json.Unmarshal(row.Payload, &result); err != nil {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return &result, true, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, key string, result *models.UnifiedDiscoveryResult, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	row := cacheRow{
		Key:       key,
		Payload:   payload,
		ExpiresAt: time.Now().Add(ttl),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&cacheRow{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Prune implements Store.
func (s *PostgresStore) Prune(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).Delete(&cacheRow{}, "expires_at <= ?", time.Now())
	if res.Error != nil {
		return 0, fmt.Errorf("cache prune: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
