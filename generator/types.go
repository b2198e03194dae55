package generator

import "time"

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message of an outgoing request. Order is meaningful.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Entry is one transcript message shown in the panel and persisted between runs.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Failed    bool      `json:"failed,omitempty"`
}

// Mode is decided once per submission: edit iff a committed document exists.
type Mode int

const (
	ModeGenerate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "generate"
}

// State is the panel's position in its request cycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateStreaming
	// StateReviewing means an edit result is staged and waits for Approve or Cancel.
	StateReviewing
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateStreaming:
		return "streaming"
	case StateReviewing:
		return "reviewing"
	default:
		return "idle"
	}
}

// Outcome is how one submission ended.
type Outcome int

const (
	OutcomeText Outcome = iota
	OutcomeCommitted
	OutcomeStaged
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeStaged:
		return "staged"
	case OutcomeFailed:
		return "failed"
	default:
		return "text"
	}
}

// RenderState is what the preview surface shows. Exactly one holds at a time.
type RenderState int

const (
	RenderEmpty RenderState = iota
	RenderStreaming
	RenderPending
	RenderCommitted
)

func (r RenderState) String() string {
	switch r {
	case RenderStreaming:
		return "streaming"
	case RenderPending:
		return "pending"
	case RenderCommitted:
		return "committed"
	default:
		return "empty"
	}
}

// PendingChange is an edit result held back from the committed document.
type PendingChange struct {
	HTML        string
	Instruction string
	CreatedAt   time.Time
}

// Result describes a finished submission. Document holds the accumulated
// text, or the committed/staged HTML.
type Result struct {
	Mode     Mode
	Outcome  Outcome
	Document string
	Err      error
}
