package entity

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestBeforeCreate_AssignsIDOnce(t *testing.T) {
	appt := &Appointment{}
	require.NoError(t, appt.BeforeCreate(nil))
	assert.Len(t, appt.ID, 36)

	id := appt.ID
	require.NoError(t, appt.BeforeCreate(nil))
	assert.Equal(t, id, appt.ID)

	v := &AppointmentVersion{}
	require.NoError(t, v.BeforeCreate(nil))
	assert.NotEmpty(t, v.ID)
	assert.NotEqual(t, id, v.ID)
}

func TestSnapshotOf(t *testing.T) {
	begin := time.Date(2020, 10, 10, 20, 20, 0, 0, time.UTC)
	appt := &Appointment{
		ID:               "a-1",
		OrgID:            "o",
		ExternalID:       "1",
		BeginsAt:         begin,
		EndsAt:           begin.Add(10 * time.Minute),
		PayloadCreatedAt: begin.Add(-time.Hour),
		PayloadUpdatedAt: begin.Add(-time.Minute),
		Version:          4,
	}
	received := begin.Add(time.Second)

	v := SnapshotOf(appt, received)

	assert.Equal(t, "a-1", v.AppointmentID)
	assert.Equal(t, 4, v.Version)
	assert.Equal(t, appt.BeginsAt, v.BeginsAt)
	assert.Equal(t, appt.EndsAt, v.EndsAt)
	assert.Equal(t, appt.PayloadCreatedAt, v.PayloadCreatedAt)
	assert.Equal(t, appt.PayloadUpdatedAt, v.PayloadUpdatedAt)
	assert.Equal(t, received, v.ReceivedAt)
	assert.Empty(t, v.ID)
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "org1:ext-9", LockKey("org1", "ext-9"))
}
