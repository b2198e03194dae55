package generator

import "fmt"

// SystemPrompt instructs the model to produce a full landing page.
const SystemPrompt = "You are a landing page designer. When a user describes a landing page they want, generate complete, production-ready HTML with inline CSS. Include modern styling, gradients, animations, and responsive design. Only output the raw HTML code, no explanations or markdown code blocks. Start with <!DOCTYPE html> and include all necessary tags."

// EditPrompt instructs the model to apply a targeted change to an existing page.
const EditPrompt = `You are a landing page editor. You will receive the current HTML code and a user's edit request.

CRITICAL INSTRUCTIONS:
1. Analyze the current HTML structure and identify which specific elements the user wants to change
2. Make ONLY the changes requested by the user to those specific elements
3. Preserve all other elements exactly as they are
4. Return ONLY the complete updated HTML with inline CSS
5. NO explanations, NO markdown code blocks, NO text before or after
6. Start with <!DOCTYPE html> and include all necessary tags

EXAMPLES:
- "Make the footer dark" → Update only the footer element
- "Change the button text to 'Buy Now'" → Update only that button
- "Add a contact form" → Insert form in appropriate location
- "Make the header bigger" → Update only the header styling`

const editRequestFormat = "Current HTML code:\n\n%s\n\nUser edit request: %s"

// Prompt is the message set sent for one submission.
type Prompt struct {
	System  string
	User    string
	History []Turn
}

// BuildGeneratePrompt replays the transcript before the new user turn.
// System entries are left out; failure notices go back as assistant turns.
func BuildGeneratePrompt(history []Entry, text string) Prompt {
	var turns []Turn
	for _, e := range history {
		if e.Role == RoleSystem {
			continue
		}
		turns = append(turns, Turn{Role: e.Role, Content: e.Content})
	}
	return Prompt{
		System:  SystemPrompt,
		User:    text,
		History: turns,
	}
}

// BuildEditPrompt embeds the whole current document with the instruction.
// History is not replayed.
func BuildEditPrompt(current, text string) Prompt {
	return Prompt{
		System: EditPrompt,
		User:   fmt.Sprintf(editRequestFormat, current, text),
	}
}

// Turns flattens the prompt into the ordered request sequence.
func (p Prompt) Turns() []Turn {
	turns := make([]Turn, 0, len(p.History)+2)
	turns = append(turns, Turn{Role: RoleSystem, Content: p.System})
	turns = append(turns, p.History...)
	turns = append(turns, Turn{Role: RoleUser, Content: p.User})
	return turns
}
