package datastore

import (
	"fmt"
	"path/filepath"

	"github.com/visionqc/visionqc-go/internal/conf"
	"github.com/visionqc/visionqc-go/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection and creates the schema if it
// does not exist yet. Calling Open against an existing database is a no-op
// beyond the migration check.
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	gormConfig := &gorm.Config{Logger: createGormLogger()}

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), gormConfig)
	if err != nil {
		return errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("path", absoluteFilePath).
			Build()
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Output.SQLite.Debug, "SQLite", absoluteFilePath)
}

// Close releases the underlying SQLite connection.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
