package service

import (
	"context"
	"errors"
	"github.com/labstack/gommon/log"
	"sesami/cmd/internal/domain/dberror"
	"sesami/cmd/internal/domain/entity"
	"sesami/cmd/internal/domain/repository"
	"sesami/cmd/internal/metrics"
	"sesami/cmd/internal/utils"
	"sesami/cmd/internal/utils/retry"
	"time"
)

type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeIgnoredStale Outcome = "ignored-stale"
	OutcomeConflict     Outcome = "conflict"
)

// UpsertCommand is a parsed and validated upsert: BeginsAt < EndsAt and
// CreatedAt <= UpdatedAt hold, all instants are UTC.
type UpsertCommand struct {
	OrgID      string
	ExternalID string
	BeginsAt   time.Time
	EndsAt     time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type UpsertResult struct {
	Outcome       Outcome
	AppointmentID string
	Version       int
}

type TxRunner interface {
	Transaction(ctx context.Context, fn func(tx repository.Tx) error) error
}

// UpsertEngine applies upserts with last-writer-wins on the source
// UpdatedAt, one writer per (org, external id) at a time.
type UpsertEngine struct {
	store  TxRunner
	policy *retry.Policy
	now    func() time.Time
}

func NewUpsertEngine(store TxRunner, policy *retry.Policy) *UpsertEngine {
	return &UpsertEngine{store: store, policy: policy, now: utils.NowUTC}
}

// Upsert returns OutcomeConflict with a nil error when the interval
// overlaps another appointment of the organization. Transient failures are
// retried; once the bound is exhausted a *retry.ExhaustedError is
// returned. Any other storage error is returned unchanged.
func (e *UpsertEngine) Upsert(ctx context.Context, cmd UpsertCommand) (*UpsertResult, error) {
	started := time.Now()
	defer func() {
		metrics.UpsertDuration.Observe(time.Since(started).Seconds())
	}()

	var (
		result   *UpsertResult
		lastKind dberror.Kind
	)
	err := e.policy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			metrics.UpsertRetries.WithLabelValues(lastKind.String()).Inc()
			log.Warnf("retrying upsert of %s (attempt %d) after %s", entity.LockKey(cmd.OrgID, cmd.ExternalID), attempt+1, lastKind)
		}

		r, err := e.apply(ctx, cmd)
		if err != nil {
			lastKind = dberror.Classify(err)
			return err
		}
		result = r
		return nil
	}, dberror.IsTransient)

	switch {
	case err == nil:
		metrics.UpsertOutcomes.WithLabelValues(string(result.Outcome)).Inc()
		return result, nil
	case dberror.IsOverlap(err):
		metrics.UpsertOutcomes.WithLabelValues(string(OutcomeConflict)).Inc()
		return &UpsertResult{Outcome: OutcomeConflict}, nil
	default:
		metrics.UpsertOutcomes.WithLabelValues("error").Inc()
		return nil, err
	}
}

// apply is a single attempt: lock, read, decide, write, commit.
func (e *UpsertEngine) apply(ctx context.Context, cmd UpsertCommand) (*UpsertResult, error) {
	var result *UpsertResult

	err := e.store.Transaction(ctx, func(tx repository.Tx) error {
		if err := tx.LockKey(entity.LockKey(cmd.OrgID, cmd.ExternalID)); err != nil {
			return err
		}

		current, err := tx.FindCurrent(cmd.OrgID, cmd.ExternalID)
		if err != nil {
			return err
		}

		if current != nil && !cmd.UpdatedAt.After(current.PayloadUpdatedAt) {
			result = &UpsertResult{
				Outcome:       OutcomeIgnoredStale,
				AppointmentID: current.ID,
				Version:       current.Version,
			}
			return nil
		}

		appt := current
		if appt == nil {
			appt = &entity.Appointment{OrgID: cmd.OrgID, ExternalID: cmd.ExternalID}
		}
		appt.BeginsAt = cmd.BeginsAt
		appt.EndsAt = cmd.EndsAt
		appt.PayloadCreatedAt = cmd.CreatedAt
		appt.PayloadUpdatedAt = cmd.UpdatedAt
		appt.Version++

		if current == nil {
			err = tx.Create(appt)
		} else {
			err = tx.Update(appt)
		}
		if err != nil {
			return err
		}

		if err := tx.AppendVersion(entity.SnapshotOf(appt, e.now())); err != nil {
			return err
		}

		result = &UpsertResult{Outcome: OutcomeOK, AppointmentID: appt.ID, Version: appt.Version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isExhausted(err error) bool {
	var exhausted *retry.ExhaustedError
	return errors.As(err, &exhausted)
}
