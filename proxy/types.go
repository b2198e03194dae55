package proxy

// Turn is one role-tagged chat message as sent by the browser or the studio.
type Turn struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the inbound body of POST /api/glm.
type ChatRequest struct {
	Messages []Turn `json:"messages" validate:"required,min=1,dive"`
}

// DemoResponse replaces the stream when the upstream quota is exhausted.
type DemoResponse struct {
	Demo       bool   `json:"demo"`
	Message    string `json:"message"`
	SampleHTML string `json:"sampleHtml"`
}

// ErrorResponse is the body of every non-streamed failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ContentEvent is one outgoing SSE frame carrying a delta.
type ContentEvent struct {
	Content string `json:"content"`
}

// RelayStats counts what happened to the upstream frames of one relay.
type RelayStats struct {
	Frames  int
	Deltas  int
	Dropped int
	Done    bool
}

func (s RelayStats) details() map[string]interface{} {
	return map[string]interface{}{
		"frames":  s.Frames,
		"deltas":  s.Deltas,
		"dropped": s.Dropped,
		"done":    s.Done,
	}
}
