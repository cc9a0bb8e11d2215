// Package emulator serves the Apps Script web app contract from a local
// SQLite table, so the court can run against a sheet without Google.
package emulator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/reckless-court/internal/errors"
	"github.com/tphakala/reckless-court/internal/logger"
)

// Row is one sheet row below the header. Cells are kept as text, the way
// a sheet holds them; defaults are applied when rows are read back.
type Row struct {
	RowNum   uint   `gorm:"primaryKey;autoIncrement"`
	ID       string `gorm:"column:entry_id;index"`
	Name     string
	Message  string `gorm:"type:text"`
	Type     string
	Date     string
	Judgment string
	Sentence string `gorm:"type:text"`
}

// TableName keeps the table name stable regardless of the struct name
func (Row) TableName() string { return "sheet_rows" }

// Sheet is the emulated submissions tab
type Sheet struct {
	db  *gorm.DB
	log logger.Logger
}

// OpenSheet opens or creates the emulator database
func OpenSheet(path string, log logger.Logger) (*Sheet, error) {
	if log == nil {
		log = logger.Global().Module("emulator")
	}

	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, sheetError(err, "create-directory").Build()
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), 0),
	})
	if err != nil {
		return nil, sheetError(fmt.Errorf("failed to open sheet database: %w", err), "open").Build()
	}
	if path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, sheetError(err, "connection-pool").Build()
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, sheetError(fmt.Errorf("failed to migrate sheet schema: %w", err), "migrate").Build()
	}

	return &Sheet{db: db, log: log}, nil
}

// Close closes the database
func (s *Sheet) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Rows returns all rows in sheet order
func (s *Sheet) Rows(ctx context.Context) ([]Row, error) {
	var rows []Row
	if err := s.db.WithContext(ctx).Order("row_num").Find(&rows).Error; err != nil {
		return nil, sheetError(err, "read").Build()
	}
	return rows, nil
}

// Append adds a row and returns the id, which is the last row number
// before the append counting the header row.
func (s *Sheet) Append(ctx context.Context, name, message, typ, date string) (int, error) {
	var id int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Row{}).Count(&count).Error; err != nil {
			return err
		}
		id = int(count) + 1
		return tx.Create(&Row{
			ID:       strconv.Itoa(id),
			Name:     name,
			Message:  message,
			Type:     typ,
			Date:     date,
			Judgment: "pending",
		}).Error
	})
	if err != nil {
		return 0, sheetError(err, "append").Build()
	}
	return id, nil
}

// Insert stores a raw row as is, e.g. to seed an imported sheet
func (s *Sheet) Insert(ctx context.Context, row *Row) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return sheetError(err, "insert").Build()
	}
	return nil
}

// Update applies fields to the first row whose id cell equals id and
// reports whether a row matched.
func (s *Sheet) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	var matched bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []Row
		if err := tx.Order("row_num").Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			if !looseEqual(rows[i].ID, id) {
				continue
			}
			matched = true
			return tx.Model(&rows[i]).Updates(fields).Error
		}
		return nil
	})
	if err != nil {
		return false, sheetError(err, "update").Context("id", id).Build()
	}
	return matched, nil
}

// looseEqual compares two cells the way a script's == would for ids
func looseEqual(cell, id string) bool {
	if cell == id {
		return true
	}
	a, errA := strconv.ParseFloat(cell, 64)
	b, errB := strconv.ParseFloat(id, 64)
	return errA == nil && errB == nil && a == b
}

// Record is a row as the script returns it
type Record struct {
	ID       any    `json:"id"`
	Name     string `json:"name"`
	Message  string `json:"message"`
	Type     string `json:"type"`
	Date     string `json:"date"`
	Judgment string `json:"judgment"`
	Sentence string `json:"sentence"`
}

// toRecord applies the script's read defaults
func toRecord(r *Row, index int, now time.Time) Record {
	rec := Record{
		Name:     r.Name,
		Message:  r.Message,
		Type:     r.Type,
		Date:     r.Date,
		Judgment: r.Judgment,
		Sentence: r.Sentence,
	}
	if n, err := strconv.Atoi(r.ID); err == nil && n != 0 {
		rec.ID = n
	} else if r.ID != "" && r.ID != "0" {
		rec.ID = r.ID
	} else {
		rec.ID = index + 1
	}
	if rec.Date == "" {
		rec.Date = now.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	if rec.Judgment == "" {
		rec.Judgment = "pending"
	}
	return rec
}

func sheetError(err error, op string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("emulator").
		Category(errors.CategoryDatabase).
		Context("operation", op)
}
