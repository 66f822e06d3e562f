// Package payments is a reference Operation Executor for the keyflight
// engine: a simulated payment rail that mints one transaction per call.
// Wrapping Process with a Coordinator is what turns "per call" into
// "per idempotency key".
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Request carries the semantically relevant payment fields. These are the
// fields the engine fingerprints: two requests with equal field values are
// the same logical payment.
type Request struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Currency  string          `json:"currency" binding:"required"`
	Recipient string          `json:"recipient" binding:"required"`
	Reference string          `json:"reference"`
}

// Response is the outcome of a processed payment. TransactionID is minted
// per execution, which is what makes replay observable: a replayed response
// carries the original ID, a fresh execution a new one.
type Response struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Timestamp     time.Time       `json:"timestamp"`
}

// RequestSchema is the JSON Schema for Request bodies, for use with the
// http boundary's schema validation.
const RequestSchema = `{
	"type": "object",
	"required": ["amount", "currency", "recipient"],
	"properties": {
		"amount": {"type": "number", "exclusiveMinimum": 0},
		"currency": {"type": "string", "minLength": 3, "maxLength": 3},
		"recipient": {"type": "string", "minLength": 1},
		"reference": {"type": "string"}
	},
	"additionalProperties": false
}`

// Processor simulates a downstream payment rail with a configurable
// processing delay. It is deliberately side-effecting: every Process call
// produces a new transaction.
type Processor struct {
	delay  time.Duration
	logger *zap.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithDelay sets the simulated processing time. Default: 100ms.
func WithDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.delay = d
	}
}

// WithLogger sets the processor's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a payment processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		delay:  100 * time.Millisecond,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process executes the payment once and returns a freshly minted
// transaction. Validation failures are returned as plain errors; when called
// through a Coordinator they are stored and replayed like any other
// executor failure.
func (p *Processor) Process(ctx context.Context, req Request) (*Response, error) {
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %s", req.Amount)
	}
	if req.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	resp := &Response{
		TransactionID: uuid.NewString(),
		Status:        "completed",
		Amount:        req.Amount,
		Currency:      req.Currency,
		Timestamp:     time.Now().UTC(),
	}
	p.logger.Info("payment processed",
		zap.String("transaction_id", resp.TransactionID),
		zap.String("currency", resp.Currency),
		zap.String("amount", resp.Amount.String()),
	)
	return resp, nil
}

// ProcessJSON decodes a raw JSON body into a Request and processes it.
// Its signature matches the http boundary's BodyOperation.
func (p *Processor) ProcessJSON(ctx context.Context, body []byte) (interface{}, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode payment request: %w", err)
	}
	return p.Process(ctx, req)
}
