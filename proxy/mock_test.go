package proxy

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMockEvents(t *testing.T, body string) []MockEvent {
	t.Helper()
	var events []MockEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		var ev MockEvent
		require.NoError(t, json.Unmarshal([]byte(line[len(dataPrefix):]), &ev))
		events = append(events, ev)
	}
	return events
}

func TestMockHandlerStreamsReply(t *testing.T) {
	h := NewMockHandler(0, nil)
	for _, body := range []string{
		`{"message":"hello <world>"}`,
		`{"messages":[{"role":"user","content":"earlier"},{"role":"assistant","content":"ok"},{"role":"user","content":"hello <world>"}]}`,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

		events := readMockEvents(t, rec.Body.String())
		require.NotEmpty(t, events)
		assert.Equal(t, MockEvent{Type: "done"}, events[len(events)-1])

		var text strings.Builder
		for _, ev := range events[:len(events)-1] {
			assert.Equal(t, "token", ev.Type)
			text.WriteString(ev.Content)
		}
		assert.Contains(t, text.String(), `mock AI response to your message: "hello <world>"`)
	}
}

func TestMockHandlerRequiresMessage(t *testing.T) {
	h := NewMockHandler(0, nil)
	for _, body := range []string{"", `{}`, `{"message":"   "}`, `{"messages":[{"role":"assistant","content":"x"}]}`} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "Message is required", body)
	}
}
