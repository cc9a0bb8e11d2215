package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/reckless-court/internal/court"
	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// SQLiteStore keeps snapshots in a SQLite key-value table
type SQLiteStore struct {
	db   *gorm.DB
	path string
	log  logger.Logger
}

// Config holds the SQLite store settings
type Config struct {
	Path      string        // database file, ":memory:" for an in-memory database
	SlowQuery time.Duration // slow query warning threshold
	Logger    logger.Logger
}

// OpenSQLite opens or creates the database and migrates the schema
func OpenSQLite(cfg Config) (*SQLiteStore, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Global().Module("datastore")
	}

	dsn := cfg.Path
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, dbError(err, "create-directory").Context("path", cfg.Path).Build()
			}
		}
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", cfg.Path)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), cfg.SlowQuery),
	})
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to open SQLite database: %w", err), "open").
			Context("path", cfg.Path).
			Build()
	}

	if cfg.Path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, dbError(err, "connection-pool").Build()
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&KeyValue{}); err != nil {
		return nil, dbError(fmt.Errorf("failed to migrate schema: %w", err), "migrate").Build()
	}

	log.Info("local store opened", logger.String("path", cfg.Path))
	return &SQLiteStore{db: db, path: cfg.Path, log: log}, nil
}

// Path returns the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the underlying connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Snapshot overwrites the submissions snapshot
func (s *SQLiteStore) Snapshot(ctx context.Context, subs []court.Submission) error {
	if subs == nil {
		subs = []court.Submission{}
	}
	return s.put(ctx, KeySubmissions, subs)
}

// Restore returns the last submissions snapshot, or an empty slice
func (s *SQLiteStore) Restore(ctx context.Context) ([]court.Submission, error) {
	subs := []court.Submission{}
	if _, err := s.get(ctx, KeySubmissions, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// SaveSentences overwrites the sentence list
func (s *SQLiteStore) SaveSentences(ctx context.Context, sentences []string) error {
	if sentences == nil {
		sentences = []string{}
	}
	return s.put(ctx, KeySentences, sentences)
}

// LoadSentences returns the saved sentence list
func (s *SQLiteStore) LoadSentences(ctx context.Context) ([]string, bool, error) {
	var sentences []string
	found, err := s.get(ctx, KeySentences, &sentences)
	if err != nil || !found {
		return nil, false, err
	}
	if sentences == nil {
		sentences = []string{}
	}
	return sentences, true, nil
}

func (s *SQLiteStore) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return dbError(err, "marshal").Context("key", key).Build()
	}

	kv := KeyValue{Key: key, Value: string(data), UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&kv).Error
	if err != nil {
		return dbError(err, "put").Context("key", key).Build()
	}

	s.log.Debug("snapshot stored", logger.String("key", key), logger.Int("bytes", len(data)))
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, key string, v any) (bool, error) {
	var kv KeyValue
	err := s.db.WithContext(ctx).Where("`key` = ?", key).Take(&kv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dbError(err, "get").Context("key", key).Build()
	}

	if err := json.Unmarshal([]byte(kv.Value), v); err != nil {
		return false, errors.New(fmt.Errorf("corrupt snapshot %s: %w", key, err)).
			Component("datastore").
			Category(errors.CategoryFileParsing).
			Context("key", key).
			Build()
	}
	return true, nil
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}
