package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan StreamDelta) (string, error) {
	t.Helper()
	var out string
	for d := range ch {
		if d.Err != nil {
			return out, d.Err
		}
		if d.Done {
			break
		}
		out += d.Token
	}
	return out, nil
}

func newStreamer(t *testing.T, h http.HandlerFunc) *ProxyStreamer {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := NewProxyStreamer(srv.URL, srv.Client(), nil)
	require.NoError(t, err)
	return s
}

func TestProxyStreamerRelaysContent(t *testing.T) {
	received := make(chan []Turn, 1)
	s := newStreamer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []Turn `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body.Messages
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"<!DOCTYPE html>\"}\n\n")
		fmt.Fprint(w, "data: {broken\n\n")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"content\":\"<html></html>\"}\n\n")
	})

	turns := BuildGeneratePrompt(nil, "a page").Turns()
	reply := s.Stream(context.Background(), turns)
	require.Equal(t, ReplyStreamed, reply.Kind)

	text, err := collect(t, reply.Deltas)
	require.NoError(t, err)
	assert.Equal(t, "<!DOCTYPE html><html></html>", text)
	assert.Equal(t, turns, <-received)
}

func TestProxyStreamerUnderstandsMockFrames(t *testing.T) {
	s := newStreamer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"h\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"i\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"done\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"token\",\"content\":\"ignored\"}\n\n")
	})

	reply := s.Stream(context.Background(), nil)
	text, err := collect(t, reply.Deltas)
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestProxyStreamerDemoPayload(t *testing.T) {
	s := newStreamer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		fmt.Fprint(w, `{"demo":true,"message":"demo mode","sampleHtml":"<!DOCTYPE html><html></html>"}`)
	})

	reply := s.Stream(context.Background(), nil)
	require.Equal(t, ReplyDemo, reply.Kind)
	assert.Equal(t, "demo mode", reply.Demo.Message)
	assert.Equal(t, "<!DOCTYPE html><html></html>", reply.Demo.SampleHTML)
}

func TestProxyStreamerErrorStatus(t *testing.T) {
	s := newStreamer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"token expired"}`)
	})

	reply := s.Stream(context.Background(), nil)
	require.Equal(t, ReplyFailed, reply.Kind)
	var perr *ProxyError
	require.ErrorAs(t, reply.Err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "token expired", perr.Message)
}

func TestProxyStreamerUnexpectedJSON(t *testing.T) {
	s := newStreamer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"hello":"world"}`)
	})

	reply := s.Stream(context.Background(), nil)
	assert.Equal(t, ReplyFailed, reply.Kind)
	assert.Error(t, reply.Err)
}

func TestProxyStreamerStopsOnCancel(t *testing.T) {
	s := newStreamer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"first\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	reply := s.Stream(ctx, nil)
	require.Equal(t, ReplyStreamed, reply.Kind)
	first := <-reply.Deltas
	assert.Equal(t, "first", first.Token)

	cancel()
	select {
	case <-drain(reply.Deltas):
	case <-time.After(2 * time.Second):
		t.Fatal("delta channel was not closed after cancel")
	}
}

func drain(ch <-chan StreamDelta) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	return done
}

func TestNewProxyStreamerRequiresEndpoint(t *testing.T) {
	_, err := NewProxyStreamer(" ", nil, nil)
	assert.Error(t, err)
}
