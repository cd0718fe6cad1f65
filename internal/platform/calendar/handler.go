package calendar

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/auth"
)

const CallbackPath = "/oauth/google/callback"

type Handler struct {
	oauth  *OAuth
	appURL string
	logger zerolog.Logger
}

// NewHandler creates the connect handler. A nil oauth means the integration
// is not configured and the endpoints answer 503.
func NewHandler(oauth *OAuth, appURL string, logger zerolog.Logger) *Handler {
	return &Handler{
		oauth:  oauth,
		appURL: strings.TrimRight(appURL, "/"),
		logger: logger.With().Str("component", "calendar").Logger(),
	}
}

// RegisterRoutes mounts the authenticated endpoints on api and the OAuth
// callback, which Google calls without a bearer token, on public.
func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	api.GET("/calendar/connect", h.Connect)
	api.DELETE("/calendar/connection", h.Disconnect)
	public.GET(CallbackPath, h.Callback)
}

func (h *Handler) Connect(c echo.Context) error {
	if h.oauth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "calendar integration is not configured")
	}
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	u, err := h.oauth.AuthURL(uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u})
}

func (h *Handler) Disconnect(c echo.Context) error {
	if h.oauth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "calendar integration is not configured")
	}
	uid, err := auth.UserID(c)
	if err != nil {
		return err
	}
	if err := h.oauth.Disconnect(c.Request().Context(), uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Callback(c echo.Context) error {
	if h.oauth == nil {
		return h.redirect(c, "error")
	}
	if e := c.QueryParam("error"); e != "" {
		h.logger.Info().Str("reason", e).Msg("calendar consent declined")
		return h.redirect(c, "error")
	}

	uid, err := h.oauth.Exchange(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		h.logger.Warn().Err(err).Str("uid", uid).Msg("calendar connect failed")
		return h.redirect(c, "error")
	}
	h.logger.Info().Str("uid", uid).Msg("calendar connected")
	return h.redirect(c, "connected")
}

func (h *Handler) redirect(c echo.Context, result string) error {
	return c.Redirect(http.StatusFound, h.appURL+"/settings?calendar="+url.QueryEscape(result))
}
