package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient вызывает REST API платёжного провайдера.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RPS ограничивает исходящие запросы. 0 — без ограничения.
	RPS float64
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), int(cfg.RPS)+1)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

func (c *HTTPClient) Hold(ctx context.Context, req Request) (Result, error) {
	return c.do(ctx, OpHold, req)
}

func (c *HTTPClient) Release(ctx context.Context, req Request) (Result, error) {
	return c.do(ctx, OpRelease, req)
}

func (c *HTTPClient) Refund(ctx context.Context, req Request) (Result, error) {
	return c.do(ctx, OpRefund, req)
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *HTTPClient) do(ctx context.Context, op Operation, req Request) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("gateway: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/escrow/"+string(op), bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("gateway: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return Result{}, fmt.Errorf("%w: %s", ErrTimeout, op)
		}
		return Result{}, fmt.Errorf("gateway: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("gateway: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var res Result
		if err := json.Unmarshal(raw, &res); err != nil {
			return Result{}, fmt.Errorf("gateway: decode response: %w", err)
		}
		return res, nil
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return Result{}, fmt.Errorf("%w: %s", ErrTimeout, op)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return Result{}, fmt.Errorf("%w: %s: %s", ErrDeclined, op, eb.Error)
	default:
		return Result{}, fmt.Errorf("gateway: %s: unexpected status %d", op, resp.StatusCode)
	}
}

var _ Gateway = (*HTTPClient)(nil)
