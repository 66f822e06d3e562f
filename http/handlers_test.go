package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyflight/keyflight"
	"github.com/keyflight/keyflight/payments"
)

const paymentBody = `{"amount":100,"currency":"USD","recipient":"test@example.com","reference":"test-123"}`

func newGinServer(t *testing.T, coord *keyflight.Coordinator, op BodyOperation, opts ...Option) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payments", GinHandler(coord, op, opts...))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newEchoServer(t *testing.T, coord *keyflight.Coordinator, op BodyOperation, opts ...Option) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.POST("/payments", EchoHandler(coord, op, opts...))
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func postPayment(t *testing.T, url, key, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/payments", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func processorOp(calls *int32) BodyOperation {
	processor := payments.NewProcessor(payments.WithDelay(0))
	return func(ctx context.Context, body []byte) (interface{}, error) {
		atomic.AddInt32(calls, 1)
		return processor.ProcessJSON(ctx, body)
	}
}

func TestGinHandler_ReplaySameTransaction(t *testing.T) {
	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls))

	resp1, body1 := postPayment(t, srv.URL, "K1", paymentBody)
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	txn1 := body1["transaction_id"]
	require.NotEmpty(t, txn1)

	resp2, body2 := postPayment(t, srv.URL, "K1", paymentBody)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, txn1, body2["transaction_id"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGinHandler_MissingKeyRejectedBeforeExecution(t *testing.T) {
	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls))

	resp, body := postPayment(t, srv.URL, "", paymentBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, keyflight.ErrCodeMissingKey, body["error"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGinHandler_ConflictOnChangedBody(t *testing.T) {
	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls))

	resp1, body1 := postPayment(t, srv.URL, "K1", paymentBody)
	require.Equal(t, http.StatusOK, resp1.StatusCode)

	changed := strings.Replace(paymentBody, "100", "200", 1)
	resp2, body2 := postPayment(t, srv.URL, "K1", changed)
	assert.Equal(t, http.StatusUnprocessableEntity, resp2.StatusCode)
	assert.Equal(t, keyflight.ErrCodeKeyConflict, body2["error"])

	// Original record untouched.
	resp3, body3 := postPayment(t, srv.URL, "K1", paymentBody)
	require.Equal(t, http.StatusOK, resp3.StatusCode)
	assert.Equal(t, body1["transaction_id"], body3["transaction_id"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGinHandler_FieldOrderDoesNotConflict(t *testing.T) {
	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls))

	_, body1 := postPayment(t, srv.URL, "K1", paymentBody)

	reordered := `{"reference":"test-123","recipient":"test@example.com","currency":"USD","amount":100}`
	resp2, body2 := postPayment(t, srv.URL, "K1", reordered)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, body1["transaction_id"], body2["transaction_id"])
}

func TestGinHandler_ConcurrentRequestsSingleTransaction(t *testing.T) {
	var calls int32
	processor := payments.NewProcessor(payments.WithDelay(50 * time.Millisecond))
	op := func(ctx context.Context, body []byte) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return processor.ProcessJSON(ctx, body)
	}
	srv := newGinServer(t, keyflight.New(), op)

	const callers = 5
	txns := make([]interface{}, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			resp, body := postPayment(t, srv.URL, "K-concurrent", paymentBody)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			txns[i] = body["transaction_id"]
		}(i)
	}
	wg.Wait()

	distinct := make(map[interface{}]struct{})
	for _, txn := range txns {
		require.NotEmpty(t, txn)
		distinct[txn] = struct{}{}
	}
	assert.Len(t, distinct, 1, "all callers should observe the same transaction")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGinHandler_ExecutorFailureReplayed(t *testing.T) {
	var calls int32
	op := func(ctx context.Context, body []byte) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("card declined")
	}
	srv := newGinServer(t, keyflight.New(), op)

	resp1, body1 := postPayment(t, srv.URL, "K1", paymentBody)
	assert.Equal(t, http.StatusBadRequest, resp1.StatusCode)
	assert.Equal(t, "operation_failed", body1["error"])
	assert.Contains(t, body1["detail"], "card declined")

	resp2, body2 := postPayment(t, srv.URL, "K1", paymentBody)
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	assert.Equal(t, body1["detail"], body2["detail"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "stored failure must be replayed, not re-executed")
}

func TestGinHandler_SchemaRejectsInvalidBody(t *testing.T) {
	schema, err := NewSchema([]byte(payments.RequestSchema))
	require.NoError(t, err)

	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls), WithSchema(schema))

	resp, body := postPayment(t, srv.URL, "K1", `{"amount":-5,"currency":"USD","recipient":"r"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGinHandler_InvalidJSONRejected(t *testing.T) {
	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls))

	resp, body := postPayment(t, srv.URL, "K1", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGinHandler_CustomHeader(t *testing.T) {
	var calls int32
	srv := newGinServer(t, keyflight.New(), processorOp(&calls), WithHeader("X-Request-Token"))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/payments", strings.NewReader(paymentBody))
	require.NoError(t, err)
	req.Header.Set("X-Request-Token", "K1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Default header must be ignored when overridden.
	resp2, body2 := postPayment(t, srv.URL, "K1", paymentBody)
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	assert.Equal(t, keyflight.ErrCodeMissingKey, body2["error"])
}

func TestEchoHandler_ReplayAndConflict(t *testing.T) {
	var calls int32
	srv := newEchoServer(t, keyflight.New(), processorOp(&calls))

	resp1, body1 := postPayment(t, srv.URL, "K1", paymentBody)
	require.Equal(t, http.StatusOK, resp1.StatusCode)

	resp2, body2 := postPayment(t, srv.URL, "K1", paymentBody)
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Equal(t, body1["transaction_id"], body2["transaction_id"])

	changed := strings.Replace(paymentBody, "100", "999", 1)
	resp3, body3 := postPayment(t, srv.URL, "K1", changed)
	assert.Equal(t, http.StatusUnprocessableEntity, resp3.StatusCode)
	assert.Equal(t, keyflight.ErrCodeKeyConflict, body3["error"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEchoHandler_MissingKey(t *testing.T) {
	var calls int32
	srv := newEchoServer(t, keyflight.New(), processorOp(&calls))

	resp, body := postPayment(t, srv.URL, "", paymentBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, keyflight.ErrCodeMissingKey, body["error"])
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGinAndEchoShareCoordinator(t *testing.T) {
	// Both adapters drive the same engine: a payment created through gin
	// replays through echo.
	var calls int32
	coord := keyflight.New()
	ginSrv := newGinServer(t, coord, processorOp(&calls))
	echoSrv := newEchoServer(t, coord, processorOp(&calls))

	_, body1 := postPayment(t, ginSrv.URL, "K-shared", paymentBody)
	_, body2 := postPayment(t, echoSrv.URL, "K-shared", paymentBody)
	assert.Equal(t, body1["transaction_id"], body2["transaction_id"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClassifyError_Distinguishable(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"conflict", &keyflight.ConflictError{Key: "K1"}, http.StatusUnprocessableEntity, keyflight.ErrCodeKeyConflict},
		{"wait timeout", keyflight.ErrWaitTimeout, http.StatusGatewayTimeout, keyflight.ErrCodeWaitTimeout},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, keyflight.ErrCodeWaitTimeout},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, "request_cancelled"},
		{"executor failure", fmt.Errorf("card declined"), http.StatusBadRequest, "operation_failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := classifyError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, body.Error)
		})
	}
}
