// Package proxy bridges browser chat requests to the upstream model and
// re-streams the answer as server-sent events.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"syscall"

	"github.com/go-playground/validator/v10"

	"polyvibe/logger"
)

const (
	module = "proxy"

	invalidRequestMessage = "Invalid request: messages array required"
	missingKeyMessage     = "ZAI API key not configured"
	maxRequestBody        = 4 << 20
	maxErrorBody          = 64 << 10
)

// Handler serves POST /api/glm. Each request is handled on its own; nothing
// is shared between requests except the immutable upstream settings.
type Handler struct {
	upstream *Upstream
	validate *validator.Validate
	logger   logger.ILogger
}

func NewHandler(upstream *Upstream, log logger.ILogger) (*Handler, error) {
	if upstream == nil {
		return nil, errors.New("upstream required")
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		upstream: upstream,
		validate: validator.New(),
		logger:   log,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")

	turns, err := h.decode(r)
	if err != nil {
		h.logger.Warn(module, "rejected request", map[string]interface{}{"request_id": reqID, "error": err.Error()})
		writeError(w, http.StatusBadRequest, invalidRequestMessage)
		return
	}

	if !h.upstream.Configured() {
		h.logger.Error(module, "upstream credential not configured", map[string]interface{}{"request_id": reqID})
		writeError(w, http.StatusInternalServerError, missingKeyMessage)
		return
	}

	resp, err := h.upstream.Open(r.Context(), turns)
	var upErr *UpstreamError
	switch {
	case errors.As(err, &upErr):
		h.handleUpstreamError(w, upErr, reqID)
		return
	case err != nil:
		h.logger.Error(module, "upstream call failed", map[string]interface{}{"request_id": reqID, "error": err.Error()})
		writeError(w, http.StatusBadGateway, upstreamFailedMessage)
		return
	}
	defer resp.Body.Close()

	h.stream(w, r, resp, reqID)
}

func (h *Handler) decode(r *http.Request) ([]Turn, error) {
	var req ChatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, err
	}
	return req.Messages, nil
}

func (h *Handler) handleUpstreamError(w http.ResponseWriter, upErr *UpstreamError, reqID string) {
	if IsQuotaExhausted(upErr.Status, upErr.Detail) {
		h.logger.Warn(module, "upstream quota exhausted, serving demo payload", map[string]interface{}{
			"request_id": reqID,
			"status":     upErr.Status,
		})
		writeJSON(w, http.StatusOK, demoResponse())
		return
	}

	message := upstreamErrorMessage(upErr.Detail)
	h.logger.Error(module, "upstream returned an error", map[string]interface{}{
		"request_id": reqID,
		"status":     upErr.Status,
		"message":    message,
	})
	writeError(w, upErr.Status, message)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, resp *http.Response, reqID string) {
	flusher, ok := startEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming is not supported by this server.")
		return
	}

	stats, err := Relay(r.Context(), resp.Body, func(delta string) error {
		if err := writeSSEData(w, ContentEvent{Content: delta}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	details := stats.details()
	details["request_id"] = reqID
	if err != nil && !isDisconnect(err) {
		details["error"] = err.Error()
		h.logger.Error(module, "stream error", details)
		return
	}
	if stats.Dropped > 0 {
		h.logger.Warn(module, "dropped malformed upstream frames", details)
		return
	}
	h.logger.Info(module, "stream finished", details)
}

func isDisconnect(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, syscall.EPIPE)
}
