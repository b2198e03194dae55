package generator

import (
	"context"
	"errors"
)

// Agent builds the request for a submission and hands it to the streamer.
type Agent struct {
	llm Streamer
}

func NewAgent(llm Streamer) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("streamer is required")
	}
	return &Agent{llm: llm}, nil
}

// Generate picks the prompt by mode: generate replays history, edit sends
// only the current document with the instruction.
func (a *Agent) Generate(ctx context.Context, mode Mode, history []Entry, current, text string) Reply {
	var prompt Prompt
	if mode == ModeEdit {
		prompt = BuildEditPrompt(current, text)
	} else {
		prompt = BuildGeneratePrompt(history, text)
	}
	return a.llm.Stream(ctx, prompt.Turns())
}
