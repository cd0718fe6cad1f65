package reminder

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zenda/zenda/internal/platform/auth"
	"github.com/zenda/zenda/internal/platform/webhook"
	"github.com/zenda/zenda/pkg/pagination"
)

// Handler exposes the delivery log.
type Handler struct {
	log webhook.DeliveryLog
}

func NewHandler(log webhook.DeliveryLog) *Handler {
	return &Handler{log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/reminders/deliveries", h.ListDeliveries)
}

func (h *Handler) ListDeliveries(c echo.Context) error {
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total := h.log.List(uid, pg.Limit, pg.Offset)
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
