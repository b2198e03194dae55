package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"polyvibe/logger"
)

const module = "generator"

// DefaultTimeout bounds the wait for the endpoint's answer.
const DefaultTimeout = 30 * time.Second

// Transcript wording shown to the user.
const (
	GeneratingPlaceholder = "🎨 I'm generating your landing page... This may take a moment as I create the perfect design for you!"
	GeneratedMessage      = "✅ Landing page generated successfully! Check the preview to see your new site. You can tell me what to change: \"Make the footer dark\", \"Change button text\", \"Add a contact form\", etc."
	ReviewMessage         = "👀 Here's a preview of your changes. Apply the change to update your page or cancel to keep it as is."
	TimeoutMessage        = "Request timed out. Please try again with a simpler request."
	GenericErrorMessage   = "Sorry, I encountered an error. Please try again."
	demoMessageFormat     = "%s\n\nHere's a sample landing page I generated for you:"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrBusy            = errors.New("a request is already in flight")
	ErrTimeout         = errors.New("request timed out")
	ErrNoPendingChange = errors.New("no pending change")
)

// Hooks observe a panel. They run outside the panel lock and may call its
// accessors; any of them may be nil.
type Hooks struct {
	OnLoading       func(loading bool, mode Mode)
	OnProgress      func(entry Entry)
	OnStreamingCode func(code string)
}

type PanelConfig struct {
	Timeout time.Duration
	Store   *HistoryStore
	Hooks   Hooks
	Logger  logger.ILogger
}

// Panel owns the transcript, the committed document and at most one pending
// change. It runs at most one submission at a time.
type Panel struct {
	agent   *Agent
	timeout time.Duration
	store   *HistoryStore
	hooks   Hooks
	logger  logger.ILogger

	mu        sync.Mutex
	state     State
	mode      Mode
	entries   []Entry
	committed string
	pending   *PendingChange
	doc       Document
}

// NewPanel creates a panel and restores the saved transcript, if any.
func NewPanel(agent *Agent, cfg PanelConfig) (*Panel, error) {
	if agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	p := &Panel{
		agent:   agent,
		timeout: cfg.Timeout,
		store:   cfg.Store,
		hooks:   cfg.Hooks,
		logger:  cfg.Logger,
	}
	if p.store != nil {
		entries, err := p.store.Load()
		if err != nil {
			p.logger.Warn(module, "failed to load chat history", map[string]interface{}{"error": err.Error(), "path": p.store.Path()})
		}
		p.entries = entries
	}
	return p, nil
}

// Submit runs one request cycle for text. A blank message or a call made
// while another submission is in flight is rejected with ErrEmptyMessage or
// ErrBusy and changes nothing. Every other outcome, failures included, is
// reported through the Result.
func (p *Panel) Submit(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	p.mu.Lock()
	if p.busyLocked() {
		p.mu.Unlock()
		return Result{}, ErrBusy
	}
	mode := ModeGenerate
	if p.committed != "" {
		mode = ModeEdit
	}
	history := append([]Entry(nil), p.entries...)
	current := p.committed
	p.pending = nil
	p.entries = append(p.entries, Entry{Role: RoleUser, Content: text, Timestamp: time.Now()})
	p.state = StateSubmitting
	p.mode = mode
	p.doc.Reset()
	p.mu.Unlock()

	p.persist()
	p.setLoading(true, mode)
	defer p.setLoading(false, mode)
	defer p.settle()

	p.logger.Info(module, "submission started", map[string]interface{}{"mode": mode.String(), "chars": len(text)})
	return p.run(ctx, mode, history, current, text), nil
}

func (p *Panel) run(parent context.Context, mode Mode, history []Entry, current, text string) Result {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	timer := time.AfterFunc(p.timeout, func() { cancel(ErrTimeout) })
	reply := p.agent.Generate(ctx, mode, history, current, text)
	timer.Stop()

	switch reply.Kind {
	case ReplyStreamed:
		return p.consume(ctx, mode, text, reply.Deltas)
	case ReplyDemo:
		return p.applyDemo(mode, reply.Demo)
	case ReplyFailed:
		return p.fail(ctx, mode, reply.Err)
	default:
		return p.fail(ctx, mode, fmt.Errorf("unknown reply kind %d", reply.Kind))
	}
}

func (p *Panel) consume(ctx context.Context, mode Mode, text string, deltas <-chan StreamDelta) Result {
	p.mu.Lock()
	p.state = StateStreaming
	p.mu.Unlock()

	progress := -1
	done := false
	for delta := range deltas {
		if delta.Err != nil {
			return p.fail(ctx, mode, delta.Err)
		}
		if delta.Done {
			done = true
			break
		}
		if delta.Token == "" {
			continue
		}

		p.mu.Lock()
		display := GeneratingPlaceholder
		if !p.doc.Append(delta.Token) {
			display = p.doc.String()
		}
		if progress < 0 {
			p.entries = append(p.entries, Entry{Role: RoleAssistant, Timestamp: time.Now()})
			progress = len(p.entries) - 1
		}
		p.entries[progress].Content = display
		entry := p.entries[progress]
		code := p.doc.String()
		p.mu.Unlock()

		p.progress(entry)
		if p.hooks.OnStreamingCode != nil {
			p.hooks.OnStreamingCode(code)
		}
	}

	if !done && ctx.Err() != nil {
		return p.fail(ctx, mode, context.Cause(ctx))
	}
	return p.complete(mode, text, progress)
}

// complete routes a finished buffer: text stays conversational, HTML is
// committed in generate mode and staged in edit mode.
func (p *Panel) complete(mode Mode, text string, progress int) Result {
	p.mu.Lock()
	final := p.doc.String()
	chars := p.doc.Len()
	res := Result{Mode: mode, Outcome: OutcomeText, Document: final}

	var ack *Entry
	switch {
	case !p.doc.IsHTML():
		p.state = StateIdle
	case mode == ModeGenerate:
		p.committed = final
		p.state = StateIdle
		res.Outcome = OutcomeCommitted
		ack = p.ackLocked(progress, GeneratedMessage)
	default:
		p.pending = &PendingChange{HTML: final, Instruction: text, CreatedAt: time.Now()}
		p.state = StateReviewing
		res.Outcome = OutcomeStaged
		ack = p.ackLocked(progress, ReviewMessage)
	}
	p.mu.Unlock()

	if ack != nil {
		p.progress(*ack)
	}
	p.persist()
	p.logger.Info(module, "submission finished", map[string]interface{}{
		"mode":    mode.String(),
		"outcome": res.Outcome.String(),
		"chars":   chars,
	})
	return res
}

func (p *Panel) ackLocked(progress int, msg string) *Entry {
	if progress < 0 {
		p.entries = append(p.entries, Entry{Role: RoleAssistant, Timestamp: time.Now()})
		progress = len(p.entries) - 1
	}
	p.entries[progress].Content = msg
	e := p.entries[progress]
	return &e
}

// applyDemo treats the sample page as a complete generated document and
// commits it directly.
func (p *Panel) applyDemo(mode Mode, demo DemoPayload) Result {
	p.mu.Lock()
	entry := Entry{Role: RoleAssistant, Content: fmt.Sprintf(demoMessageFormat, demo.Message), Timestamp: time.Now()}
	p.entries = append(p.entries, entry)
	res := Result{Mode: mode, Outcome: OutcomeText, Document: demo.SampleHTML}
	if demo.SampleHTML != "" {
		p.doc.Reset()
		p.doc.Append(demo.SampleHTML)
		p.committed = demo.SampleHTML
		res.Outcome = OutcomeCommitted
	}
	p.state = StateIdle
	p.mu.Unlock()

	p.progress(entry)
	p.persist()
	p.logger.Warn(module, "served demo payload", map[string]interface{}{"mode": mode.String(), "message": demo.Message})
	return res
}

// fail appends exactly one error entry and leaves both documents untouched.
func (p *Panel) fail(ctx context.Context, mode Mode, err error) Result {
	msg := GenericErrorMessage
	var perr *ProxyError
	switch {
	case errors.Is(context.Cause(ctx), ErrTimeout):
		err = ErrTimeout
		msg = TimeoutMessage
	case errors.As(err, &perr) && perr.Message != "":
		msg = perr.Message
	}

	p.mu.Lock()
	entry := Entry{Role: RoleAssistant, Content: msg, Timestamp: time.Now(), Failed: true}
	p.entries = append(p.entries, entry)
	p.state = StateIdle
	p.mu.Unlock()

	p.progress(entry)
	p.persist()
	p.logger.Error(module, "submission failed", map[string]interface{}{"mode": mode.String(), "error": err.Error()})
	return Result{Mode: mode, Outcome: OutcomeFailed, Err: err}
}

// settle returns an unfinished cycle to idle on any exit path.
func (p *Panel) settle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.busyLocked() {
		p.state = StateIdle
	}
}

// Approve promotes the pending change to the committed document.
func (p *Panel) Approve() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return ErrNoPendingChange
	}
	p.committed = p.pending.HTML
	p.pending = nil
	p.state = StateIdle
	p.logger.Info(module, "pending change applied", map[string]interface{}{"chars": len(p.committed)})
	return nil
}

// Cancel discards the pending change; the committed document is untouched.
func (p *Panel) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return ErrNoPendingChange
	}
	p.pending = nil
	p.state = StateIdle
	p.logger.Info(module, "pending change discarded", nil)
	return nil
}

// Reset starts a new chat: transcript, documents and the saved history are cleared.
func (p *Panel) Reset() error {
	p.mu.Lock()
	if p.busyLocked() {
		p.mu.Unlock()
		return ErrBusy
	}
	p.entries = nil
	p.committed = ""
	p.pending = nil
	p.doc.Reset()
	p.state = StateIdle
	p.mode = ModeGenerate
	p.mu.Unlock()

	if p.store != nil {
		return p.store.Clear()
	}
	return nil
}

func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Mode is the mode of the current or last submission.
func (p *Panel) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

func (p *Panel) Committed() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.committed
}

func (p *Panel) Pending() (PendingChange, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return PendingChange{}, false
	}
	return *p.pending, true
}

func (p *Panel) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Entry(nil), p.entries...)
}

func (p *Panel) RenderState() RenderState {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.busyLocked():
		return RenderStreaming
	case p.pending != nil:
		return RenderPending
	case p.committed != "":
		return RenderCommitted
	default:
		return RenderEmpty
	}
}

func (p *Panel) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busyLocked()
}

// StreamingCode is the raw buffer of the current or last stream.
func (p *Panel) StreamingCode() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.String()
}

func (p *Panel) busyLocked() bool {
	return p.state == StateSubmitting || p.state == StateStreaming
}

func (p *Panel) setLoading(loading bool, mode Mode) {
	if p.hooks.OnLoading != nil {
		p.hooks.OnLoading(loading, mode)
	}
}

func (p *Panel) progress(e Entry) {
	if p.hooks.OnProgress != nil {
		p.hooks.OnProgress(e)
	}
}

func (p *Panel) persist() {
	if p.store == nil {
		return
	}
	if err := p.store.Save(p.Entries()); err != nil {
		p.logger.Warn(module, "failed to save chat history", map[string]interface{}{"error": err.Error()})
	}
}
