package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/zenda/zenda/internal/platform/validation"
)

// ErrorHandler renders handler errors as JSON. Validation errors become 422,
// echo.HTTPError keeps its code and anything else is logged and hidden
// behind a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var verrs validation.Errors
		if errors.As(err, &verrs) {
			err = validation.HTTPError(verrs)
		}

		code := http.StatusInternalServerError
		var body interface{} = map[string]string{"message": "internal server error"}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				body = map[string]string{"message": m}
			default:
				body = m
			}
			if he.Internal != nil {
				logger.Error().Err(he.Internal).Int("status", code).Msg("request failed")
			}
		} else {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Str("path", c.Path()).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}
