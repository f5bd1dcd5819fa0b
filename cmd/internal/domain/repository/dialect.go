package repository

import (
	"fmt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"sesami/cmd/internal/domain/dberror"
	"sesami/cmd/internal/domain/entity"
)

// Dialect supplies the locking and overlap primitives of one storage backend.
// Every method runs on the active transaction and nothing it acquires may
// outlive it.
type Dialect interface {
	Name() string
	// LockKey takes an exclusive lock on an opaque key until the transaction ends.
	LockKey(tx *gorm.DB, key string) error
	// LockRows marks the next read as an exclusive row lock.
	LockRows(tx *gorm.DB) *gorm.DB
	// CheckOverlap rejects appt with dberror.ErrOverlap when the backend has
	// no exclusion constraint of its own.
	CheckOverlap(tx *gorm.DB, appt *entity.Appointment) error
}

// Postgres relies on transaction-scoped advisory locks, SELECT ... FOR UPDATE
// and the no_overlap_per_org exclusion constraint.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) LockKey(tx *gorm.DB, key string) error {
	err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
	if err != nil {
		return fmt.Errorf("advisory lock %q: %w", key, err)
	}
	return nil
}

func (Postgres) LockRows(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (Postgres) CheckOverlap(*gorm.DB, *entity.Appointment) error {
	return nil
}

// SQLite has neither advisory locks, row locks nor exclusion constraints.
// The pool holds a single connection, so transactions are already
// serialized database-wide, which covers the organization-wide scope the
// check-then-write overlap query needs.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) LockKey(*gorm.DB, string) error {
	return nil
}

func (SQLite) LockRows(tx *gorm.DB) *gorm.DB {
	return tx
}

func (SQLite) CheckOverlap(tx *gorm.DB, appt *entity.Appointment) error {
	var count int64
	err := tx.Model(&entity.Appointment{}).
		Where("org_id = ?", appt.OrgID).
		Where("id <> ?", appt.ID).
		Where("begins_at < ?", appt.EndsAt).
		Where("ends_at > ?", appt.BeginsAt).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return dberror.ErrOverlap
	}
	return nil
}
