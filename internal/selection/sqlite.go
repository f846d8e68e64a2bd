package selection

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const errDBClientNil = "db client is nil"

// Selection is one row of the selections table.
type Selection struct {
	ID         string `gorm:"primaryKey;type:varchar(32)"`
	Generation string `gorm:"type:varchar(32);index:idx_generation"`
	Path       string
	CreatedAt  int64  `gorm:"autoCreateTime:nano;index:idx_created_at"`
}

// SQLite keeps selections in a database file so they survive restarts.
type SQLite struct {
	DB  *gorm.DB
	db  *sql.DB
	ttl time.Duration
	log Logger
}

// NewSQLite opens (creating if needed) the database at dbPath and prunes
// rows older than ttl.
func NewSQLite(dbPath string, ttl time.Duration, log Logger) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// one writer keeps concurrent searches from tripping SQLITE_BUSY
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Selection{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	s := &SQLite{DB: db, db: sqlDB, ttl: ttl, log: log}
	if ttl > 0 {
		n, err := s.Prune(time.Now().Add(-ttl))
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		if n > 0 {
			log.Infof("pruned %d expired selections", n)
		}
	}
	return s, nil
}

func (s *SQLite) Put(gen, id, path string) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	row := Selection{ID: id, Generation: gen, Path: path}
	if err := s.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("storing selection: %w", err)
	}
	return nil
}

func (s *SQLite) Get(id string) (string, error) {
	if s == nil || s.DB == nil {
		return "", errors.New(errDBClientNil)
	}
	var row Selection
	err := s.DB.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying selection: %w", err)
	}
	return row.Path, nil
}

// DropGeneration deletes the generation id belongs to, and with it any rows
// that outlived the TTL because nobody pressed their buttons.
func (s *SQLite) DropGeneration(id string) error {
	if s == nil || s.DB == nil {
		return errors.New(errDBClientNil)
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var row Selection
		err := tx.Where("id = ?", id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying selection: %w", err)
		}
		if err := tx.Where("generation = ?", row.Generation).Delete(&Selection{}).Error; err != nil {
			return fmt.Errorf("dropping generation: %w", err)
		}
		return nil
	})
	if err != nil || s.ttl <= 0 {
		return err
	}
	n, err := s.Prune(time.Now().Add(-s.ttl))
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Debugf("pruned %d expired selections", n)
	}
	return nil
}

// Prune deletes rows created before cutoff.
func (s *SQLite) Prune(cutoff time.Time) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	res := s.DB.Where("created_at < ?", cutoff.UnixNano()).Delete(&Selection{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning selections: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the number of stored rows.
func (s *SQLite) Count() (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var n int64
	if err := s.DB.Model(&Selection{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting selections: %w", err)
	}
	return n, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
