package scheduling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zenda/zenda/internal/domain/patient"
	"github.com/zenda/zenda/internal/platform/auth"
	"github.com/zenda/zenda/internal/platform/validation"
	"github.com/zenda/zenda/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/sessions", h.List)
	api.POST("/sessions", h.Create)
	api.GET("/sessions/stats", h.Stats)
	api.GET("/sessions/:id", h.Get)
	api.PUT("/sessions/:id", h.Update)
	api.PATCH("/sessions/:id/status", h.UpdateStatus)
	api.DELETE("/sessions/:id", h.Delete)
	api.POST("/sessions/:id/reminders", h.SendReminder)
}

// httpError maps overlap conflicts to 409 with the same body shape as
// validation failures.
func httpError(err error) error {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"message": "session overlaps an existing session",
			"errors":  validation.Field("time", conflict.Message()),
		})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return patient.HTTPError(err)
}

func (h *Handler) Create(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CreateSession(c.Request().Context(), uid, form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Get(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	s, err := h.svc.GetSession(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) List(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	from, err := validation.TimeParam("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := validation.TimeParam("to", c.QueryParam("to"))
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{From: from, To: to, PatientID: c.QueryParam("patientId"), Status: c.QueryParam("status")}
	items, total, err := h.svc.ListSessions(c.Request().Context(), uid, f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var form Form
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.UpdateSession(c.Request().Context(), uid, c.Param("id"), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var form StatusForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.UpdateStatus(c.Request().Context(), uid, c.Param("id"), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Delete(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	warnings, err := h.svc.DeleteSession(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	if len(warnings) > 0 {
		return c.JSON(http.StatusOK, map[string]interface{}{"warnings": warnings})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Stats(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	from, err := validation.TimeParam("from", c.QueryParam("from"))
	if err != nil {
		return err
	}
	to, err := validation.TimeParam("to", c.QueryParam("to"))
	if err != nil {
		return err
	}
	st, err := h.svc.Stats(c.Request().Context(), uid, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) SendReminder(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	var form ReminderForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.SendReminder(c.Request().Context(), uid, c.Param("id"), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
