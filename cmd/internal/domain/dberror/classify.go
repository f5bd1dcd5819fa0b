// Package dberror maps driver-level failures from PostgreSQL (pgx or
// lib/pq) and SQLite into the categories the upsert engine acts on.
package dberror

import (
	"errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"sesami/cmd/internal/domain/entity"
	"strings"
)

type Kind int

const (
	KindNone Kind = iota
	// KindOverlap: the interval intersects another appointment of the same organization.
	KindOverlap
	// KindKeyRace: a concurrent writer inserted the same (org, external id) first.
	KindKeyRace
	KindSerialization
	KindDeadlock
	// KindBusy: the SQLite file lock is held by another writer.
	KindBusy
	KindUnclassified
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOverlap:
		return "overlap"
	case KindKeyRace:
		return "key_race"
	case KindSerialization:
		return "serialization_failure"
	case KindDeadlock:
		return "deadlock"
	case KindBusy:
		return "busy"
	default:
		return "unclassified"
	}
}

// Transient reports whether re-running the whole transaction may succeed.
func (k Kind) Transient() bool {
	switch k {
	case KindKeyRace, KindSerialization, KindDeadlock, KindBusy:
		return true
	}
	return false
}

const (
	OverlapConstraint = "no_overlap_per_org"

	sqlStateExclusionViolation = "23P01"
	sqlStateUniqueViolation    = "23505"
	sqlStateSerialization      = "40001"
	sqlStateDeadlock           = "40P01"
)

// ErrOverlap is returned by backends that check overlap themselves
// instead of relying on an exclusion constraint.
var ErrOverlap = errors.New("time range overlaps an existing appointment: " + OverlapConstraint)

func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrOverlap) {
		return KindOverlap
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromSQLState(pgErr.Code, pgErr.ConstraintName, pgErr.Message)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fromSQLState(string(pqErr.Code), pqErr.Constraint, pqErr.Message)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return fromSQLite(liteErr)
	}

	if strings.Contains(err.Error(), OverlapConstraint) {
		return KindOverlap
	}
	return KindUnclassified
}

func IsTransient(err error) bool {
	return Classify(err).Transient()
}

func IsOverlap(err error) bool {
	return Classify(err) == KindOverlap
}

func fromSQLState(code, constraint, message string) Kind {
	switch code {
	case sqlStateExclusionViolation:
		return KindOverlap
	case sqlStateUniqueViolation:
		if constraint == "" || constraint == entity.NaturalKeyIndex {
			return KindKeyRace
		}
		return KindUnclassified
	case sqlStateSerialization:
		return KindSerialization
	case sqlStateDeadlock:
		return KindDeadlock
	}
	if constraint == OverlapConstraint || strings.Contains(message, OverlapConstraint) {
		return KindOverlap
	}
	return KindUnclassified
}

func fromSQLite(err sqlite3.Error) Kind {
	switch err.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return KindBusy
	case sqlite3.ErrConstraint:
		if err.ExtendedCode == sqlite3.ErrConstraintUnique && isNaturalKeyMessage(err.Error()) {
			return KindKeyRace
		}
	}
	return KindUnclassified
}

// SQLite reports unique failures as "UNIQUE constraint failed: t.col, t.col".
func isNaturalKeyMessage(msg string) bool {
	return strings.Contains(msg, "appointments.org_id") && strings.Contains(msg, "appointments.external_id")
}
