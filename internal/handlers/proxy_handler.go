package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// ProxyHandler relays report downloads for clients that cannot reach the
// signed URL directly. The fetcher's relay fallback points at this endpoint
// on a second deployment.
type ProxyHandler struct {
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewProxyHandler creates a new ProxyHandler
func NewProxyHandler(logger arbor.ILogger) *ProxyHandler {
	return &ProxyHandler{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// ProxyFileHandler handles GET /api/proxy-file?url=: streams the target's
// bytes through, forwarding the upstream Content-Type.
func (h *ProxyHandler) ProxyFileHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	target := r.URL.Query().Get("url")
	if target == "" {
		WriteError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid url")
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", target).Msg("Proxy fetch failed")
		WriteError(w, http.StatusInternalServerError, "failed to fetch file")
		return
	}
	defer resp.Body.Close()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Debug().Err(err).Str("url", target).Msg("Proxy stream interrupted")
	}
}
