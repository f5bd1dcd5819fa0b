package repository

import (
	"context"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"sesami/cmd/internal/domain/entity"
	"time"
)

// Tx is the write-side view handed to Transaction callbacks.
type Tx interface {
	LockKey(key string) error
	// FindCurrent returns the row for the natural key under an exclusive
	// lock, or nil when it does not exist yet.
	FindCurrent(orgID, externalID string) (*entity.Appointment, error)
	Create(appt *entity.Appointment) error
	Update(appt *entity.Appointment) error
	AppendVersion(version *entity.AppointmentVersion) error
}

type DefaultAppointmentRepository struct {
	db      *gorm.DB
	reader  *gorm.DB
	dialect Dialect
}

func NewAppointmentRepository(db *gorm.DB, dialect Dialect) *DefaultAppointmentRepository {
	return &DefaultAppointmentRepository{db: db, reader: db, dialect: dialect}
}

// WithReader routes List, FindByExternalID and FindVersions to a separate
// pool so they do not queue behind the write connection.
func (a *DefaultAppointmentRepository) WithReader(reader *gorm.DB) *DefaultAppointmentRepository {
	a.reader = reader
	return a
}

// Transaction runs fn atomically. Returning an error from fn rolls back.
func (a *DefaultAppointmentRepository) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&appointmentTx{db: tx, dialect: a.dialect})
	})
}

// List returns the appointments of an organization. With at set, only those
// with BeginsAt <= at < EndsAt are returned. No locks are taken.
func (a *DefaultAppointmentRepository) List(ctx context.Context, orgID string, at *time.Time) ([]*entity.Appointment, error) {
	query := a.reader.WithContext(ctx).Where("org_id = ?", orgID)
	if at != nil {
		query = query.
			Where("begins_at <= ?", *at).
			Where("ends_at > ?", *at)
	}

	appts := make([]*entity.Appointment, 0)
	err := query.Find(&appts).Error
	return appts, err
}

func (a *DefaultAppointmentRepository) FindByExternalID(ctx context.Context, orgID, externalID string) (*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := a.reader.WithContext(ctx).
		Where("org_id = ? AND external_id = ?", orgID, externalID).
		Find(&appts).Error
	if err != nil || len(appts) == 0 {
		return nil, err
	}
	return appts[0], nil
}

func (a *DefaultAppointmentRepository) FindVersions(ctx context.Context, appointmentID string) ([]*entity.AppointmentVersion, error) {
	versions := make([]*entity.AppointmentVersion, 0)
	err := a.reader.WithContext(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("version asc").
		Find(&versions).Error
	return versions, err
}

type appointmentTx struct {
	db      *gorm.DB
	dialect Dialect
}

func (t *appointmentTx) LockKey(key string) error {
	return t.dialect.LockKey(t.db, key)
}

func (t *appointmentTx) FindCurrent(orgID, externalID string) (*entity.Appointment, error) {
	var appts []*entity.Appointment
	err := t.dialect.LockRows(t.db).
		Where("org_id = ? AND external_id = ?", orgID, externalID).
		Find(&appts).Error
	if err != nil || len(appts) == 0 {
		return nil, err
	}
	return appts[0], nil
}

func (t *appointmentTx) Create(appt *entity.Appointment) error {
	if err := t.dialect.CheckOverlap(t.db, appt); err != nil {
		return err
	}
	return t.db.Create(appt).Error
}

func (t *appointmentTx) Update(appt *entity.Appointment) error {
	if err := t.dialect.CheckOverlap(t.db, appt); err != nil {
		return err
	}
	return t.db.Model(appt).
		Select("begins_at", "ends_at", "payload_created_at", "payload_updated_at", "version").
		Updates(appt).Error
}

func (t *appointmentTx) AppendVersion(version *entity.AppointmentVersion) error {
	return t.db.Omit(clause.Associations).Create(version).Error
}
