package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

// AppointmentVersion is an immutable snapshot written alongside every
// accepted upsert, including the one that created the appointment.
type AppointmentVersion struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	AppointmentID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_versions_appointment_version,priority:1"`
	Version          int       `gorm:"not null;uniqueIndex:idx_versions_appointment_version,priority:2"`
	BeginsAt         time.Time `gorm:"not null"`
	EndsAt           time.Time `gorm:"not null"`
	PayloadCreatedAt time.Time `gorm:"not null"`
	PayloadUpdatedAt time.Time `gorm:"not null"`
	ReceivedAt       time.Time `gorm:"not null"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID;references:ID;constraint:OnUpdate:CASCADE"`
}

func (v *AppointmentVersion) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// SnapshotOf builds the history row for the current state of appt.
func SnapshotOf(appt *Appointment, receivedAt time.Time) *AppointmentVersion {
	return &AppointmentVersion{
		AppointmentID:    appt.ID,
		Version:          appt.Version,
		BeginsAt:         appt.BeginsAt,
		EndsAt:           appt.EndsAt,
		PayloadCreatedAt: appt.PayloadCreatedAt,
		PayloadUpdatedAt: appt.PayloadUpdatedAt,
		ReceivedAt:       receivedAt,
	}
}
