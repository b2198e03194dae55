package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tidwall/gjson"
)

const completionsPath = "chat/completions"

// UpstreamSettings configures the chat-completion API. BaseURL is the API
// root; the completions path is appended to it.
type UpstreamSettings struct {
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// UpstreamError is a non-2xx answer from the upstream. Detail holds the
// upstream error object, e.g. {"code":"1113","message":"..."}.
type UpstreamError struct {
	Status int
	Detail []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Detail)
}

// Upstream issues streaming chat-completion calls. It keeps no per-request state.
type Upstream struct {
	client      openai.Client
	model       string
	apiKey      string
	maxTokens   int
	temperature float64
}

// NewUpstream builds an Upstream. A nil client gets one without a total
// timeout; the caller's context bounds each call. Failed calls are never retried.
func NewUpstream(cfg UpstreamSettings, client *http.Client) *Upstream {
	if client == nil {
		client = &http.Client{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(client),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Upstream{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// Configured reports whether a credential is available.
func (u *Upstream) Configured() bool {
	return u.apiKey != ""
}

// Model returns the configured model id.
func (u *Upstream) Model() string {
	return u.model
}

// Open sends turns upstream with incremental delivery requested and returns
// the raw event-stream response; the caller owns the body. A non-2xx answer
// comes back as *UpstreamError.
func (u *Upstream) Open(ctx context.Context, turns []Turn) (*http.Response, error) {
	if !u.Configured() {
		return nil, errors.New("upstream api key missing")
	}

	var resp *http.Response
	err := u.client.Post(ctx, completionsPath, u.params(turns), &resp,
		option.WithJSONSet("stream", true),
		option.WithHeader("Accept", "text/event-stream"),
	)
	if err == nil {
		return resp, nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return nil, &UpstreamError{Status: apiErr.StatusCode, Detail: []byte(apiErr.RawJSON())}
	}
	// Error bodies the SDK cannot decode still carry a status.
	if resp != nil && resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: []byte(gjson.GetBytes(body, "error").Raw)}
	}
	return nil, fmt.Errorf("upstream request failed: %w", err)
}

func (u *Upstream) params(turns []Turn) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(t.Content))
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(t.Content))
		default:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(u.model),
		Messages:    msgs,
		MaxTokens:   openai.Int(int64(u.maxTokens)),
		Temperature: openai.Float(u.temperature),
	}
}
