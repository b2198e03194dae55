package generator

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"polyvibe/logger"
)

const (
	dataPrefix        = "data: "
	doneSentinel      = "[DONE]"
	maxFrameSize      = 1 << 20
	maxJSONReply      = 4 << 20
	requestFailedText = "API request failed"
)

// ProxyStreamer talks to the edge endpoint (POST {messages}) and decodes its
// event stream or demo payload.
type ProxyStreamer struct {
	endpoint string
	client   *http.Client
	logger   logger.ILogger
}

// NewProxyStreamer builds a streamer for endpoint. A nil client gets one
// without a total timeout; the panel bounds the wait itself.
func NewProxyStreamer(endpoint string, client *http.Client, log logger.ILogger) (*ProxyStreamer, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("proxy endpoint is required")
	}
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ProxyStreamer{endpoint: endpoint, client: client, logger: log}, nil
}

func (s *ProxyStreamer) Stream(ctx context.Context, turns []Turn) Reply {
	body, err := sjson.SetBytes([]byte(`{}`), "messages", turns)
	if err != nil {
		return failed(fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return failed(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return failed(fmt.Errorf("proxy request failed: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONReply))
		msg := gjson.GetBytes(raw, "error").String()
		if msg == "" {
			msg = requestFailedText
		}
		return failed(&ProxyError{Status: resp.StatusCode, Message: msg})
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		defer resp.Body.Close()
		return decodeJSONReply(resp.Body)
	}

	ch := make(chan StreamDelta)
	go s.readFrames(ctx, resp.Body, ch)
	return Reply{Kind: ReplyStreamed, Deltas: ch}
}

func decodeJSONReply(r io.Reader) Reply {
	raw, err := io.ReadAll(io.LimitReader(r, maxJSONReply))
	if err != nil {
		return failed(fmt.Errorf("read reply: %w", err))
	}
	if !gjson.ValidBytes(raw) || !gjson.GetBytes(raw, "demo").Bool() {
		return failed(errors.New("unexpected non-stream reply"))
	}
	return Reply{
		Kind: ReplyDemo,
		Demo: DemoPayload{
			Message:    gjson.GetBytes(raw, "message").String(),
			SampleHTML: gjson.GetBytes(raw, "sampleHtml").String(),
		},
	}
}

// readFrames forwards content deltas in arrival order. Frames that are not
// valid JSON are skipped. It never blocks once ctx is done.
func (s *ProxyStreamer) readFrames(ctx context.Context, body io.ReadCloser, ch chan<- StreamDelta) {
	defer close(ch)
	defer body.Close()

	send := func(d StreamDelta) bool {
		select {
		case ch <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	dropped := 0
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		data := line[len(dataPrefix):]
		if data == doneSentinel {
			send(StreamDelta{Done: true})
			return
		}
		if !gjson.Valid(data) {
			dropped++
			continue
		}
		if gjson.Get(data, "type").String() == "done" {
			send(StreamDelta{Done: true})
			return
		}
		content := gjson.Get(data, "content").String()
		if content == "" {
			continue
		}
		if !send(StreamDelta{Token: content}) {
			return
		}
	}

	if dropped > 0 {
		s.logger.Warn("generator", "dropped malformed frames", map[string]interface{}{"dropped": dropped})
	}
	if err := scanner.Err(); err != nil {
		send(StreamDelta{Err: fmt.Errorf("read stream: %w", err)})
		return
	}
	send(StreamDelta{Done: true})
}
