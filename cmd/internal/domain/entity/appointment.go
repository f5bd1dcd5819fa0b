package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

const DefaultOrgID = "default"

// NaturalKeyIndex is the unique index over (org_id, external_id).
const NaturalKeyIndex = "idx_appointments_org_external"

// Appointment is the current state of one scheduled interval [BeginsAt, EndsAt)
// for one external record within an organization.
type Appointment struct {
	ID               string    `gorm:"type:uuid;primaryKey"`
	OrgID            string    `gorm:"not null;uniqueIndex:idx_appointments_org_external,priority:1"`
	ExternalID       string    `gorm:"not null;uniqueIndex:idx_appointments_org_external,priority:2"`
	BeginsAt         time.Time `gorm:"not null;check:chk_appointments_range,begins_at < ends_at"`
	EndsAt           time.Time `gorm:"not null"`
	PayloadCreatedAt time.Time `gorm:"not null"`
	PayloadUpdatedAt time.Time `gorm:"not null"`
	Version          int       `gorm:"not null;default:1"`
}

func (a *Appointment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// LockKey identifies the per-key write lock of an appointment.
func LockKey(orgID, externalID string) string {
	return orgID + ":" + externalID
}
