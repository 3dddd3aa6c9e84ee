package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process wide database handle.
var DB *gorm.DB

// Init opens the database and runs the migrations. An empty databasePath
// falls back to eventify.db.
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "eventify.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := Open(sqlite.Open(path), logger.Default.LogMode(logger.Warn))
	if err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Open connects through dialector and migrates every model.
func Open(dialector gorm.Dialector, log logger.Interface) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: log})
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate creates or updates the tables of the core models.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&MediaItem{},
		&Message{},
		&User{},
		&Event{},
	)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
