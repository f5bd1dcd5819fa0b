package postgres

import (
	"database/sql"
	"fmt"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"sesami/cmd/internal/domain/dberror"
	"sesami/cmd/internal/domain/entity"
	"time"
)

const (
	DriverPgx = "pgx"
	DriverPq  = "pq"
)

// Open connects to PostgreSQL through pgx (gorm's default) or lib/pq.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverPgx, "":
		dialector = postgres.Open(dsn)
	case DriverPq:
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open lib/pq connection: %w", err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	default:
		return nil, fmt.Errorf("unsupported postgres driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Init opens the database and brings the schema up to date.
func Init(driver, dsn string) (*gorm.DB, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// The exclusion constraint needs btree_gist for the equality on org_id.
// tstzrange defaults to [) bounds, so adjacent intervals do not collide.
var exclusionConstraintSQL = fmt.Sprintf(`
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%[1]s') THEN
		ALTER TABLE appointments
			ADD CONSTRAINT %[1]s
			EXCLUDE USING gist (org_id WITH =, tstzrange(begins_at, ends_at) WITH &&);
	END IF;
END
$$;`, dberror.OverlapConstraint)

func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}
	if err := db.AutoMigrate(&entity.Appointment{}, &entity.AppointmentVersion{}); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	if err := db.Exec(exclusionConstraintSQL).Error; err != nil {
		return fmt.Errorf("add %s constraint: %w", dberror.OverlapConstraint, err)
	}
	return nil
}
