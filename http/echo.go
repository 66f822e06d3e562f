package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyflight/keyflight"
)

// EchoHandler returns an echo.HandlerFunc that guards op with idempotency.
// Semantics are identical to GinHandler.
func EchoHandler(coord *keyflight.Coordinator, op BodyOperation, opts ...Option) echo.HandlerFunc {
	o := newHandlerOptions(opts)
	return func(c echo.Context) error {
		req := c.Request()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorBody{Error: "invalid_request", Detail: "could not read request body"})
		}

		result, status, errBody := process(req.Context(), coord, op, o, req.Header.Get(o.Header), body)
		if errBody != nil {
			return c.JSON(status, errBody)
		}
		return c.JSON(status, result)
	}
}
