// Package http provides HTTP boundary adapters for the keyflight engine.
//
// The handlers own the Request Handler side of the contract: they extract
// the idempotency key from a header, reject requests without one before any
// record is created, optionally validate the body against a JSON Schema,
// fingerprint the body, and guard the protected operation with a
// Coordinator. Adapters are provided for gin and echo.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/keyflight/keyflight"
)

// HeaderIdempotencyKey is the default header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

// BodyOperation is the protected call as seen from the HTTP boundary. The
// raw request body is passed through so the operation can decode it however
// it likes; the returned value is serialized as the JSON response.
type BodyOperation func(ctx context.Context, body []byte) (interface{}, error)

// ErrorBody is the JSON error envelope returned by the handlers.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// HandlerOptions configures the gin and echo handlers.
type HandlerOptions struct {
	Header string
	Schema *Schema
}

// Option configures a handler.
type Option func(*HandlerOptions)

// WithHeader overrides the header the idempotency key is read from.
// Default: "Idempotency-Key".
func WithHeader(name string) Option {
	return func(o *HandlerOptions) {
		o.Header = name
	}
}

// WithSchema validates request bodies against a JSON Schema before they are
// fingerprinted. Invalid bodies are rejected with 400 and never reach the
// coordinator.
func WithSchema(schema *Schema) Option {
	return func(o *HandlerOptions) {
		o.Schema = schema
	}
}

func newHandlerOptions(opts []Option) *HandlerOptions {
	o := &HandlerOptions{Header: HeaderIdempotencyKey}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// process is the framework-neutral request path shared by the adapters.
// A nil ErrorBody means success and result holds the response payload.
func process(ctx context.Context, coord *keyflight.Coordinator, op BodyOperation, o *HandlerOptions, key string, body []byte) (interface{}, int, *ErrorBody) {
	if key == "" {
		return nil, http.StatusBadRequest, &ErrorBody{
			Error:  keyflight.ErrCodeMissingKey,
			Detail: o.Header + " header is required",
		}
	}

	if o.Schema != nil {
		if err := o.Schema.Validate(body); err != nil {
			return nil, http.StatusBadRequest, &ErrorBody{Error: "invalid_request", Detail: err.Error()}
		}
	}

	fingerprint, err := keyflight.FingerprintJSON(body)
	if err != nil {
		return nil, http.StatusBadRequest, &ErrorBody{Error: "invalid_request", Detail: "request body must be valid JSON"}
	}

	result, err := coord.Execute(ctx, key, fingerprint, func(ctx context.Context) (interface{}, error) {
		return op(ctx, body)
	})
	if err != nil {
		status, errBody := classifyError(err)
		return nil, status, &errBody
	}
	return result, http.StatusOK, nil
}

// classifyError maps coordinator errors to HTTP responses. A caller must be
// able to tell "your retry doesn't match the original" (422) apart from
// "the original operation failed" (400).
func classifyError(err error) (int, ErrorBody) {
	var conflict *keyflight.ConflictError
	switch {
	case errors.As(err, &conflict):
		return http.StatusUnprocessableEntity, ErrorBody{
			Error:  keyflight.ErrCodeKeyConflict,
			Detail: "idempotency key reused with different request parameters",
		}
	case errors.Is(err, keyflight.ErrWaitTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorBody{
			Error:  keyflight.ErrCodeWaitTimeout,
			Detail: "timed out waiting for the original request to complete",
		}
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrorBody{Error: "request_cancelled"}
	default:
		return http.StatusBadRequest, ErrorBody{Error: "operation_failed", Detail: err.Error()}
	}
}
