package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// collectionRow is one collection document.
type collectionRow struct {
	Name      string `gorm:"primaryKey;type:varchar(64)"`
	Records   string `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time
}

func (collectionRow) TableName() string { return "kv_collections" }

// PostgresStore keeps one row per collection. Update runs in a single SQL
// transaction and locks the touched rows with SELECT ... FOR UPDATE.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the kv_collections table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&collectionRow{})
}

func (s *PostgresStore) ReadCollection(ctx context.Context, name string) ([]byte, error) {
	return readRow(s.db.WithContext(ctx), name, false)
}

func (s *PostgresStore) WriteCollection(ctx context.Context, name string, data []byte) error {
	return upsertRow(s.db.WithContext(ctx), name, data)
}

func (s *PostgresStore) Update(ctx context.Context, collections []string, fn func(txn Txn) error) error {
	// Lock in a stable order so two updates over the same collections
	// cannot deadlock each other.
	names := append([]string(nil), collections...)
	sort.Strings(names)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// FOR UPDATE only locks rows that exist
		for _, name := range names {
			seed := collectionRow{Name: name, Records: "[]", UpdatedAt: time.Now()}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return err
			}
		}
		for _, name := range names {
			if _, err := readRow(tx, name, true); err != nil {
				return err
			}
		}

		txn := newStagedTxn(collections, func(name string) ([]byte, error) {
			return readRow(tx, name, false)
		})
		if err := fn(txn); err != nil {
			return err
		}
		for name, data := range txn.writes {
			if err := upsertRow(tx, name, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// View reads inside one REPEATABLE READ transaction so every query sees the
// same snapshot.
func (s *PostgresStore) View(ctx context.Context, collections []string, fn func(txn Txn) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newViewTxn(collections, func(name string) ([]byte, error) {
			return readRow(tx, name, false)
		}))
	}, opts)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func readRow(db *gorm.DB, name string, lock bool) ([]byte, error) {
	q := db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row collectionRow
	err := q.Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Records), nil
}

func upsertRow(db *gorm.DB, name string, data []byte) error {
	if data == nil {
		data = []byte("[]")
	}
	row := collectionRow{Name: name, Records: string(data), UpdatedAt: time.Now()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"records", "updated_at"}),
	}).Create(&row).Error
}
