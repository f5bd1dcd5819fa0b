package sqlite

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"sesami/cmd/internal/domain/entity"
	"strings"
	"time"
)

const DefaultPath = "./database.db"

const readPoolSize = 4

// Init opens the write pool for the SQLite database at path and migrates
// the schema. The pool is capped at a single connection, so every write
// transaction in this process is serialized; the repository relies on that
// for its overlap check. The file is switched to WAL so readers opened with
// OpenReader never wait for that connection.
func Init(path string) (*gorm.DB, error) {
	db, err := open(path, 1)
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&entity.Appointment{}, &entity.AppointmentVersion{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// OpenReader opens a separate pool on the same file for lock-free queries.
// It needs a file database: an in-memory one is private to its connection.
func OpenReader(path string) (*gorm.DB, error) {
	return open(path, readPoolSize)
}

func open(path string, conns int) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_journal_mode=WAL&_busy_timeout=5000"
}
