package routes

import (
	"context"
	"encoding/json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"sesami/cmd/internal/service"
	"sesami/cmd/internal/utils/apierror"
	"strings"
	"testing"
)

type fakeService struct {
	upsertReq  *service.UpsertAppointmentRequest
	upsertResp *service.UpsertResponse
	upsertErr  apierror.ErrorResponse

	listOrg, listAt string
	listResp        []*service.AppointmentResponse
	listErr         apierror.ErrorResponse

	versionsOrg, versionsID string
	versionsErr             apierror.ErrorResponse
}

func (f *fakeService) Upsert(_ context.Context, req *service.UpsertAppointmentRequest) (*service.UpsertResponse, apierror.ErrorResponse) {
	f.upsertReq = req
	return f.upsertResp, f.upsertErr
}

func (f *fakeService) List(_ context.Context, orgID, at string) ([]*service.AppointmentResponse, apierror.ErrorResponse) {
	f.listOrg, f.listAt = orgID, at
	return f.listResp, f.listErr
}

func (f *fakeService) GetVersions(_ context.Context, orgID, externalID string) ([]*service.AppointmentVersionResponse, apierror.ErrorResponse) {
	f.versionsOrg, f.versionsID = orgID, externalID
	if f.versionsErr != nil {
		return nil, f.versionsErr
	}
	return []*service.AppointmentVersionResponse{{Version: 1}}, nil
}

func serve(t *testing.T, svc AppointmentService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	NewAppointmentDefault(svc).Register(e.Group("/api/v1"))

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestUpsertAppointment_OK(t *testing.T) {
	svc := &fakeService{upsertResp: &service.UpsertResponse{Status: service.OutcomeOK, Version: 1}}

	body := `{"id":"1","start":"2020-10-10 20:20","end":"2020-10-10 20:30","createdAt":"2020-09-02 14:23:12","updatedAt":"2020-09-28 14:23:12","orgId":"o"}`
	rec := serve(t, svc, http.MethodPost, "/api/v1/appointments", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":1}`, rec.Body.String())
	require.NotNil(t, svc.upsertReq)
	assert.Equal(t, "1", svc.upsertReq.ExternalID)
	assert.Equal(t, "o", svc.upsertReq.OrgID)
	assert.Equal(t, "2020-09-28 14:23:12", svc.upsertReq.UpdatedAt)
}

func TestUpsertAppointment_Stale(t *testing.T) {
	svc := &fakeService{upsertResp: &service.UpsertResponse{Status: service.OutcomeIgnoredStale, Version: 2}}

	rec := serve(t, svc, http.MethodPost, "/api/v1/appointments", `{"id":"1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored-stale","version":2}`, rec.Body.String())
}

func TestUpsertAppointment_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    apierror.ErrorResponse
		status int
		code   string
	}{
		{"conflict", apierror.TimeRangeUnavailableError, http.StatusConflict, apierror.CodeTimeRangeUnavailable},
		{"bad date", apierror.InvalidDateFormatError, http.StatusBadRequest, apierror.CodeInvalidDateFormat},
		{"contention", apierror.StorageContentionError, http.StatusServiceUnavailable, apierror.CodeStorageContention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeService{upsertErr: tt.err}, http.MethodPost, "/api/v1/appointments", `{"id":"1"}`)

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestUpsertAppointment_MalformedBody(t *testing.T) {
	svc := &fakeService{}

	rec := serve(t, svc, http.MethodPost, "/api/v1/appointments", `{"id":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apierror.CodeMalformedBody)
	assert.Nil(t, svc.upsertReq)
}

func TestGetAppointments(t *testing.T) {
	svc := &fakeService{listResp: []*service.AppointmentResponse{{ID: "x", ExternalID: "1", OrgID: "org1"}}}

	rec := serve(t, svc, http.MethodGet, "/api/v1/appointments?org=org1&at=2020-10-10T20:25:00Z", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org1", svc.listOrg)
	assert.Equal(t, "2020-10-10T20:25:00Z", svc.listAt)

	var body struct {
		Appointments []service.AppointmentResponse `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Appointments, 1)
	assert.Equal(t, "x", body.Appointments[0].ID)
}

func TestGetAppointments_InvalidAt(t *testing.T) {
	svc := &fakeService{listErr: apierror.InvalidAtParameterError}

	rec := serve(t, svc, http.MethodGet, "/api/v1/appointments?at=invalid", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apierror.CodeInvalidAtParameter)
	assert.Equal(t, "", svc.listOrg)
}

func TestGetAppointmentVersions(t *testing.T) {
	svc := &fakeService{}

	rec := serve(t, svc, http.MethodGet, "/api/v1/appointments/abc/versions?org=o", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.versionsID)
	assert.Equal(t, "o", svc.versionsOrg)
	assert.Contains(t, rec.Body.String(), `"versions"`)

	missing := &fakeService{versionsErr: apierror.NotFoundError}
	rec = serve(t, missing, http.MethodGet, "/api/v1/appointments/nope/versions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
