package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keyflight/keyflight"
)

// GinHandler returns a gin.HandlerFunc that guards op with idempotency.
//
// Usage:
//
//	r := gin.Default()
//	r.POST("/payments", keyflighthttp.GinHandler(coord, processor.ProcessJSON,
//	    keyflighthttp.WithSchema(schema),
//	))
func GinHandler(coord *keyflight.Coordinator, op BodyOperation, opts ...Option) gin.HandlerFunc {
	o := newHandlerOptions(opts)
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorBody{Error: "invalid_request", Detail: "could not read request body"})
			return
		}

		result, status, errBody := process(c.Request.Context(), coord, op, o, c.GetHeader(o.Header), body)
		if errBody != nil {
			c.JSON(status, errBody)
			return
		}
		c.JSON(status, result)
	}
}
