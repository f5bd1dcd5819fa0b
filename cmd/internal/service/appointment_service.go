package service

import (
	"context"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"sesami/cmd/internal/domain/entity"
	"sesami/cmd/internal/domain/repository"
	"sesami/cmd/internal/utils"
	"sesami/cmd/internal/utils/apierror"
	"time"
)

type AppointmentRepository interface {
	Transaction(ctx context.Context, fn func(tx repository.Tx) error) error
	List(ctx context.Context, orgID string, at *time.Time) ([]*entity.Appointment, error)
	FindByExternalID(ctx context.Context, orgID, externalID string) (*entity.Appointment, error)
	FindVersions(ctx context.Context, appointmentID string) ([]*entity.AppointmentVersion, error)
}

type UpsertAppointmentRequest struct {
	ExternalID string `json:"id" validate:"required,max=255"`
	Start      string `json:"start"`
	End        string `json:"end"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	OrgID      string `json:"orgId" validate:"max=255"`
}

type UpsertResponse struct {
	Status  Outcome `json:"status"`
	Version int     `json:"version,omitempty"`
}

type AppointmentResponse struct {
	ID               string `json:"id"`
	OrgID            string `json:"orgId"`
	ExternalID       string `json:"externalId"`
	Start            string `json:"start"`
	End              string `json:"end"`
	PayloadCreatedAt string `json:"payloadCreatedAt"`
	PayloadUpdatedAt string `json:"payloadUpdatedAt"`
	Version          int    `json:"version"`
}

type AppointmentVersionResponse struct {
	Version          int    `json:"version"`
	Start            string `json:"start"`
	End              string `json:"end"`
	PayloadCreatedAt string `json:"payloadCreatedAt"`
	PayloadUpdatedAt string `json:"payloadUpdatedAt"`
	ReceivedAt       string `json:"receivedAt"`
}

type DefaultAppointmentService struct {
	AppointmentRepo AppointmentRepository
	Engine          *UpsertEngine
	Validate        *validator.Validate
	DefaultOrgID    string
}

func NewAppointmentService(apptRepo AppointmentRepository, engine *UpsertEngine, validate *validator.Validate, defaultOrgID string) *DefaultAppointmentService {
	if defaultOrgID == "" {
		defaultOrgID = entity.DefaultOrgID
	}
	return &DefaultAppointmentService{
		AppointmentRepo: apptRepo,
		Engine:          engine,
		Validate:        validate,
		DefaultOrgID:    defaultOrgID,
	}
}

func (a *DefaultAppointmentService) Upsert(ctx context.Context, req *UpsertAppointmentRequest) (*UpsertResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := a.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	cmd, apierr := a.toCommand(req)
	if apierr != nil {
		return nil, apierr
	}

	result, err := a.Engine.Upsert(ctx, cmd)
	if err != nil {
		if isExhausted(err) {
			log.Warnf("upsert of %s gave up on storage contention: %v", entity.LockKey(cmd.OrgID, cmd.ExternalID), err)
			return nil, apierror.StorageContentionError
		}
		log.Errorf("failed to upsert appointment %s: %v", entity.LockKey(cmd.OrgID, cmd.ExternalID), err)
		return nil, apierror.InternalServerError
	}

	switch result.Outcome {
	case OutcomeConflict:
		log.Infof("appointment %s rejected: time range [%s, %s) not available",
			entity.LockKey(cmd.OrgID, cmd.ExternalID), utils.FormatTime(cmd.BeginsAt), utils.FormatTime(cmd.EndsAt))
		return nil, apierror.TimeRangeUnavailableError
	case OutcomeIgnoredStale:
		log.Debugf("appointment %s ignored: updatedAt %s not newer than version %d",
			entity.LockKey(cmd.OrgID, cmd.ExternalID), utils.FormatTime(cmd.UpdatedAt), result.Version)
	}
	return &UpsertResponse{Status: result.Outcome, Version: result.Version}, nil
}

// List returns the appointments of orgID, or those active at the instant
// at (BeginsAt <= at < EndsAt) when it is not empty.
func (a *DefaultAppointmentService) List(ctx context.Context, orgID, at string) ([]*AppointmentResponse, apierror.ErrorResponse) {
	org := a.orgOrDefault(orgID)

	var instant *time.Time
	if at != "" {
		t, err := utils.ParseTimestamp(at)
		if err != nil {
			return nil, apierror.InvalidAtParameterError
		}
		instant = &t
	}

	appts, err := a.AppointmentRepo.List(ctx, org, instant)
	if err != nil {
		log.Errorf("failed to list appointments for org %s: %v", org, err)
		return nil, apierror.InternalServerError
	}

	response := make([]*AppointmentResponse, len(appts))
	for i, appt := range appts {
		response[i] = toAppointmentResponse(appt)
	}
	return response, nil
}

// GetVersions returns the audit history of one appointment in version order.
func (a *DefaultAppointmentService) GetVersions(ctx context.Context, orgID, externalID string) ([]*AppointmentVersionResponse, apierror.ErrorResponse) {
	org := a.orgOrDefault(orgID)

	appt, err := a.AppointmentRepo.FindByExternalID(ctx, org, externalID)
	if err != nil {
		log.Errorf("failed to fetch appointment %s: %v", entity.LockKey(org, externalID), err)
		return nil, apierror.InternalServerError
	}
	if appt == nil {
		return nil, apierror.NotFoundError
	}

	versions, err := a.AppointmentRepo.FindVersions(ctx, appt.ID)
	if err != nil {
		log.Errorf("failed to fetch versions of appointment %s: %v", appt.ID, err)
		return nil, apierror.InternalServerError
	}

	response := make([]*AppointmentVersionResponse, len(versions))
	for i, v := range versions {
		response[i] = toVersionResponse(v)
	}
	return response, nil
}

// toCommand parses and checks the request before any storage call.
func (a *DefaultAppointmentService) toCommand(req *UpsertAppointmentRequest) (UpsertCommand, apierror.ErrorResponse) {
	var times [4]time.Time
	for i, raw := range []string{req.Start, req.End, req.CreatedAt, req.UpdatedAt} {
		t, err := utils.ParseTimestamp(raw)
		if err != nil {
			return UpsertCommand{}, apierror.InvalidDateFormatError
		}
		times[i] = t
	}

	cmd := UpsertCommand{
		OrgID:      a.orgOrDefault(req.OrgID),
		ExternalID: req.ExternalID,
		BeginsAt:   times[0],
		EndsAt:     times[1],
		CreatedAt:  times[2],
		UpdatedAt:  times[3],
	}

	if !cmd.BeginsAt.Before(cmd.EndsAt) {
		return UpsertCommand{}, apierror.InvalidTimeRangeError
	}
	if cmd.CreatedAt.After(cmd.UpdatedAt) {
		return UpsertCommand{}, apierror.InvalidMetadataError
	}
	return cmd, nil
}

func (a *DefaultAppointmentService) orgOrDefault(orgID string) string {
	if orgID == "" {
		return a.DefaultOrgID
	}
	return orgID
}

func toAppointmentResponse(appt *entity.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:               appt.ID,
		OrgID:            appt.OrgID,
		ExternalID:       appt.ExternalID,
		Start:            utils.FormatTime(appt.BeginsAt),
		End:              utils.FormatTime(appt.EndsAt),
		PayloadCreatedAt: utils.FormatTime(appt.PayloadCreatedAt),
		PayloadUpdatedAt: utils.FormatTime(appt.PayloadUpdatedAt),
		Version:          appt.Version,
	}
}

func toVersionResponse(v *entity.AppointmentVersion) *AppointmentVersionResponse {
	return &AppointmentVersionResponse{
		Version:          v.Version,
		Start:            utils.FormatTime(v.BeginsAt),
		End:              utils.FormatTime(v.EndsAt),
		PayloadCreatedAt: utils.FormatTime(v.PayloadCreatedAt),
		PayloadUpdatedAt: utils.FormatTime(v.PayloadUpdatedAt),
		ReceivedAt:       utils.FormatTime(v.ReceivedAt),
	}
}
