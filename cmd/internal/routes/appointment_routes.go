package routes

import (
	"context"
	"github.com/labstack/echo/v4"
	"net/http"
	"sesami/cmd/internal/service"
	"sesami/cmd/internal/utils/apierror"
	"strings"
)

type AppointmentService interface {
	Upsert(ctx context.Context, req *service.UpsertAppointmentRequest) (*service.UpsertResponse, apierror.ErrorResponse)
	List(ctx context.Context, orgID, at string) ([]*service.AppointmentResponse, apierror.ErrorResponse)
	GetVersions(ctx context.Context, orgID, externalID string) ([]*service.AppointmentVersionResponse, apierror.ErrorResponse)
}

type DefaultAppointmentRoute struct {
	AppointmentService AppointmentService
}

func NewAppointmentDefault(apptService AppointmentService) *DefaultAppointmentRoute {
	return &DefaultAppointmentRoute{AppointmentService: apptService}
}

// Register mounts the appointment endpoints on g.
func (a *DefaultAppointmentRoute) Register(g *echo.Group) {
	g.POST("/appointments", a.UpsertAppointment)
	g.GET("/appointments", a.GetAppointments)
	g.GET("/appointments/:id/versions", a.GetAppointmentVersions)
}

func (a *DefaultAppointmentRoute) UpsertAppointment(c echo.Context) error {
	var req service.UpsertAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	resp, apierr := a.AppointmentService.Upsert(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *DefaultAppointmentRoute) GetAppointments(c echo.Context) error {
	org := strings.TrimSpace(c.QueryParam("org"))
	at := strings.TrimSpace(c.QueryParam("at"))

	appts, apierr := a.AppointmentService.List(c.Request().Context(), org, at)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"appointments": appts}
	return c.JSON(http.StatusOK, &resp)
}

func (a *DefaultAppointmentRoute) GetAppointmentVersions(c echo.Context) error {
	externalID := strings.TrimSpace(c.Param("id"))
	if externalID == "" {
		return c.JSON(http.StatusBadRequest, apierror.NewMissingParamError("id"))
	}
	org := strings.TrimSpace(c.QueryParam("org"))

	versions, apierr := a.AppointmentService.GetVersions(c.Request().Context(), org, externalID)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"versions": versions}
	return c.JSON(http.StatusOK, &resp)
}
