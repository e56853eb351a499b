// Package fetch retrieves report archives, working around the cross-origin
// restrictions of signed download URLs by falling back to the same-origin
// relay endpoint when a direct download fails.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// DefaultTimeout bounds a single download attempt.
const DefaultTimeout = 60 * time.Second

// Result is a fetched payload with its forwarded content type.
type Result struct {
	Body        []byte
	ContentType string
}

// FallbackError reports that both the direct download and the relay attempt
// failed.
type FallbackError struct {
	DirectErr error
	RelayErr  error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("direct download failed (%v) and relay fallback failed (%v)", e.DirectErr, e.RelayErr)
}

// Fetcher downloads byte blobs with relay fallback. The relay URL can be
// re-pointed at runtime when the persisted settings change.
type Fetcher struct {
	httpClient *http.Client
	logger     arbor.ILogger

	mu       sync.RWMutex
	relayURL string
}

// New creates a Fetcher. relayURL is the base URL of the owned relay server;
// trailing slashes are tolerated.
func New(relayURL string, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		relayURL:   strings.TrimRight(relayURL, "/"),
		logger:     logger,
	}
}

// WithHTTPClient overrides the HTTP client, mainly for tests.
func (f *Fetcher) WithHTTPClient(client *http.Client) *Fetcher {
	f.httpClient = client
	return f
}

// SetRelayURL re-points the relay fallback. Empty values are ignored.
func (f *Fetcher) SetRelayURL(relayURL string) {
	if relayURL == "" {
		return
	}
	f.mu.Lock()
	f.relayURL = strings.TrimRight(relayURL, "/")
	f.mu.Unlock()
}

// Fetch retrieves the target URL, trying a direct request first and falling
// back once through the relay. The composite error carries both causes only
// when the fallback also fails.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Result, error) {
	result, directErr := f.get(ctx, target)
	if directErr == nil {
		return result, nil
	}

	if f.logger != nil {
		f.logger.Warn().
			Err(directErr).
			Str("url", target).
			Msg("Direct download failed, retrying via relay")
	}

	f.mu.RLock()
	relayURL := f.relayURL
	f.mu.RUnlock()

	relayTarget := fmt.Sprintf("%s/api/proxy-file?url=%s", relayURL, url.QueryEscape(target))
	result, relayErr := f.get(ctx, relayTarget)
	if relayErr == nil {
		return result, nil
	}

	return nil, &FallbackError{DirectErr: directErr, RelayErr: relayErr}
}

func (f *Fetcher) get(ctx context.Context, target string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for a useful message
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
