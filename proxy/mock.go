package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyvibe/logger"
)

const mockReplyTemplate = `This is a mock AI response to your message: "%s".

In the next phase, this will be connected to agents that can:
- Generate code
- Refactor existing code
- Provide Polygon dApp guidance
- Use local or cloud AI models

The response will stream in real-time for better UX.`

// MockEvent is one frame of the mock stream.
type MockEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type mockRequest struct {
	Message  string `json:"message"`
	Messages []Turn `json:"messages"`
}

// MockHandler serves POST /api/chat: a canned reply streamed one character
// per frame. It needs no upstream and is used for local development.
type MockHandler struct {
	delay  time.Duration
	logger logger.ILogger
}

func NewMockHandler(delay time.Duration, log logger.ILogger) *MockHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MockHandler{delay: delay, logger: log}
}

func (h *MockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req mockRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = lastUserContent(req.Messages)
	}
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	flusher, ok := startEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming is not supported by this server.")
		return
	}

	ctx := r.Context()
	reply := fmt.Sprintf(mockReplyTemplate, message)
	for _, ch := range reply {
		if h.delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(h.delay):
			}
		}
		if err := writeSSEData(w, MockEvent{Type: "token", Content: string(ch)}); err != nil {
			return
		}
		flusher.Flush()
	}

	if err := writeSSEData(w, MockEvent{Type: "done"}); err != nil {
		return
	}
	flusher.Flush()
	h.logger.Debug("mock", "mock stream finished", map[string]interface{}{"chars": len(reply)})
}

func lastUserContent(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == "user" {
			return strings.TrimSpace(turns[i].Content)
		}
	}
	return ""
}
