package telemetry

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zenda/zenda/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/telemetry/clicks", h.RecordClick)
	api.GET("/telemetry/clicks", h.ListClicks)
}

func (h *Handler) RecordClick(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var form ClickForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	counter, err := h.svc.RecordClick(c.Request().Context(), uid, form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counter)
}

func (h *Handler) ListClicks(c echo.Context) error {
	if _, err := auth.UserID(c); err != nil {
		return err
	}
	items, err := h.svc.ListClicks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}
