package note

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
	g := api.Group("/patients/:patientId/notes")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func httpError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
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
	n, err := h.svc.Create(c.Request().Context(), uid, c.Param("patientId"), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) Get(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	n, err := h.svc.Get(c.Request().Context(), uid, c.Param("patientId"), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
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
	items, total, err := h.svc.List(c.Request().Context(), uid, c.Param("patientId"), ListFilter{From: from, To: to}, pg.Limit, pg.Offset)
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
	n, err := h.svc.Update(c.Request().Context(), uid, c.Param("patientId"), c.Param("id"), form)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) Delete(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), uid, c.Param("patientId"), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
