package generator

import (
	"context"
	"fmt"
)

// Streamer opens one request against the edge endpoint. Stream returns as
// soon as the endpoint has answered or failed; deltas then arrive on the
// reply's channel.
type Streamer interface {
	Stream(ctx context.Context, turns []Turn) Reply
}

// ReplyKind tags how the endpoint answered.
type ReplyKind int

const (
	ReplyStreamed ReplyKind = iota
	ReplyDemo
	ReplyFailed
)

// Reply is the tagged answer of one request. Exactly one of Deltas, Demo or
// Err is meaningful, selected by Kind.
type Reply struct {
	Kind   ReplyKind
	Deltas <-chan StreamDelta
	Demo   DemoPayload
	Err    error
}

// StreamDelta is one chunk of a streamed answer. The channel is closed after
// a Done or Err delta, or when the request context ends.
type StreamDelta struct {
	Token string
	Done  bool
	Err   error
}

// DemoPayload is the complete answer served when the upstream quota is exhausted.
type DemoPayload struct {
	Message    string
	SampleHTML string
}

// ProxyError is a non-demo failure reported by the edge endpoint.
type ProxyError struct {
	Status  int
	Message string
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy returned %d: %s", e.Status, e.Message)
}

func failed(err error) Reply {
	return Reply{Kind: ReplyFailed, Err: err}
}
