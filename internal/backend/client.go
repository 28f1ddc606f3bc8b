// Package backend talks to the optimization service: workbook upload and
// transform, and the facility-location solver.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/siteopt/internal/model"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000"
	transformPath  = "/transform-xlsx/"
	optimizePath   = "/simple-optimization/"

	// Solver runs on road graphs and routinely takes minutes.
	defaultTimeout = 5 * time.Minute
	maxErrorBody   = 64 << 10
)

// Fallback messages when the service fails without an error body.
const (
	msgTransformFailed = "failed to upload and transform the XLSX file"
	msgOptimizeFailed  = "failed to perform optimization"
)

// Client is the optimization service API.
type Client interface {
	// Transform uploads a workbook and returns the parsed dataset.
	Transform(ctx context.Context, filename string, r io.Reader) (*model.Dataset, error)
	// Optimize selects facility sites and assigns every unit to one.
	Optimize(ctx context.Context, req OptimizeRequest) (*model.OptimizationResult, error)
}

// APIError is a non-2xx response from the service. Message is the server's
// "error" field verbatim when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. An empty baseURL
// falls back to a local development server.
func NewClient(baseURL string, opts ...Option) Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &httpClient{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type transformResponse struct {
	Data *model.Dataset `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *httpClient) Transform(ctx context.Context, filename string, r io.Reader) (*model.Dataset, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, eris.Wrap(err, "backend: create form file")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, eris.Wrap(err, "backend: copy workbook")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "backend: close multipart writer")
	}

	body, err := c.do(ctx, transformPath, mw.FormDataContentType(), &buf, msgTransformFailed)
	if err != nil {
		return nil, err
	}

	var resp transformResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "backend: unmarshal transform response")
	}
	if resp.Data == nil {
		return nil, eris.New("backend: transform response has no data")
	}
	return resp.Data, nil
}

func (c *httpClient) Optimize(ctx context.Context, req OptimizeRequest) (*model.OptimizationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "backend: marshal optimize request")
	}

	body, err := c.do(ctx, optimizePath, "application/json", bytes.NewReader(payload), msgOptimizeFailed)
	if err != nil {
		return nil, err
	}

	var result model.OptimizationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "backend: unmarshal optimize response")
	}
	return &result, nil
}

// do posts body to path and returns the 2xx response body. Non-2xx responses
// become *APIError with the server message or fallback.
func (c *httpClient) do(ctx context.Context, path, contentType string, body io.Reader, fallback string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, eris.Wrap(err, "backend: create request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := zap.L().With(zap.String("path", path), zap.String("request_id", requestID))
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("backend: request failed", zap.Error(err))
		return nil, eris.Wrap(err, "backend: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: fallback}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
		}
		log.Warn("backend: service error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "backend: read response")
	}

	log.Debug("backend: response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(respBody)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return respBody, nil
}
