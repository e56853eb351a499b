package easyecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/relatus/internal/common"
	"github.com/ternarybob/relatus/internal/models"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	// Simulation mode delays, mirroring the latency of the real service so
	// the UI flow stays representative.
	defaultSimQueueDelay  = 1 * time.Second
	defaultSimStatusDelay = 3 * time.Second
)

// Client is an EasyEcom reporting API client. Credentials can be swapped at
// runtime through ApplySettings, so reads go through the mutex.
type Client struct {
	mu          sync.RWMutex
	baseURL     string
	jwt         string
	apiKey      string
	warehouseID string
	simulation  bool
	httpClient  *http.Client
	logger      arbor.ILogger
	limiter     *rate.Limiter

	simQueueDelay  time.Duration
	simStatusDelay time.Duration
}

// credentials is a point-in-time snapshot of the mutable client fields.
type credentials struct {
	baseURL     string
	jwt         string
	apiKey      string
	warehouseID string
	simulation  bool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithSimulationDelays overrides the synthetic response delays. Intended for
// tests that cannot wait for the UI-representative defaults.
func WithSimulationDelays(queueDelay, statusDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.simQueueDelay = queueDelay
		c.simStatusDelay = statusDelay
	}
}

// NewClient creates a new EasyEcom API client from configuration.
func NewClient(cfg common.EasyEcomConfig, opts ...ClientOption) *Client {
	timeout := DefaultTimeout
	if cfg.RequestTimeout != "" {
		if d, err := time.ParseDuration(cfg.RequestTimeout); err == nil && d > 0 {
			timeout = d
		}
	}
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = DefaultRateLimit
	}

	c := &Client{
		baseURL:     cfg.BaseURL,
		jwt:         cfg.JWT,
		apiKey:      cfg.APIKey,
		warehouseID: cfg.WarehouseID,
		simulation:  cfg.SimulationMode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		simQueueDelay:  defaultSimQueueDelay,
		simStatusDelay: defaultSimStatusDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ApplySettings overrides the client's connection parameters with persisted
// user settings. Empty string fields keep their current value; the
// simulation flag is always applied.
func (c *Client) ApplySettings(settings models.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if settings.BaseURL != "" {
		c.baseURL = settings.BaseURL
	}
	if settings.JWT != "" {
		c.jwt = settings.JWT
	}
	if settings.APIKey != "" {
		c.apiKey = settings.APIKey
	}
	if settings.WarehouseID != "" {
		c.warehouseID = settings.WarehouseID
	}
	c.simulation = settings.SimulationMode
}

func (c *Client) snapshot() credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return credentials{
		baseURL:     c.baseURL,
		jwt:         c.jwt,
		apiKey:      c.apiKey,
		warehouseID: c.warehouseID,
		simulation:  c.simulation,
	}
}

// QueueStockReport submits a STATUS_WISE_STOCK_REPORT generation request and
// returns the external report id.
func (c *Client) QueueStockReport(ctx context.Context) (string, error) {
	if c.snapshot().simulation {
		if err := c.simWait(ctx, c.simQueueDelay); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%d", simStockPrefix, time.Now().UnixMilli()), nil
	}

	body := queueRequest{
		ReportType: string(models.ReportTypeStock),
	}

	var result queueResponse
	if err := c.post(ctx, "/reports/queue", body, &result); err != nil {
		return "", err
	}
	return result.Data.ReportID, nil
}

// QueueSalesReport submits a MINI_SALES_REPORT generation request for the
// given order-date range (inclusive, YYYY-MM-DD) and returns the external
// report id.
func (c *Client) QueueSalesReport(ctx context.Context, startDate, endDate string) (string, error) {
	creds := c.snapshot()
	if creds.simulation {
		if err := c.simWait(ctx, c.simQueueDelay); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s%d", simSalesPrefix, time.Now().UnixMilli()), nil
	}

	body := queueRequest{
		ReportType: string(models.ReportTypeSales),
		Params: &salesReportParams{
			InvoiceType:  "ALL",
			DateType:     "ORDER_DATE",
			StartDate:    startDate,
			EndDate:      endDate,
			WarehouseIDs: creds.warehouseID,
		},
	}

	var result queueResponse
	if err := c.post(ctx, "/reports/queue", body, &result); err != nil {
		return "", err
	}
	return result.Data.ReportID, nil
}

// CheckReportStatus queries the report generation state. Simulated report
// ids always resolve COMPLETED with a placeholder URL after a fixed delay,
// regardless of whether the remote service is reachable.
func (c *Client) CheckReportStatus(ctx context.Context, reportID string) (*DownloadStatus, error) {
	if c.snapshot().simulation || IsSimulatedReportID(reportID) {
		if err := c.simWait(ctx, c.simStatusDelay); err != nil {
			return nil, err
		}
		return &DownloadStatus{
			ReportStatus: ReportStatusCompleted,
			DownloadURL:  "#",
		}, nil
	}

	params := url.Values{}
	params.Set("reportId", reportID)

	var result downloadResponse
	if err := c.get(ctx, "/reports/download", params, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// simWait sleeps for the simulation delay while honoring context cancellation.
func (c *Client) simWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	reqURL := c.snapshot().baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.do(req, path, result)
}

// post performs a POST request with a JSON body.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.snapshot().baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, path, result)
}

// do executes a request with auth headers and decodes the JSON response.
func (c *Client) do(req *http.Request, endpoint string, result interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	creds := c.snapshot()
	req.Header.Set("Authorization", "Bearer "+creds.jwt)
	req.Header.Set("x-api-key", creds.apiKey)

	if c.logger != nil {
		c.logger.Debug().
			Str("method", req.Method).
			Str("endpoint", endpoint).
			Msg("EasyEcom API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp),
			Endpoint:   endpoint,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// extractErrorMessage pulls the most useful message out of an error
// response: the JSON "message" or "error" field when present, otherwise the
// raw body, otherwise the status line.
func extractErrorMessage(resp *http.Response) string {
	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}

	return string(body)
}
