package agent

import (
	"fmt"
	"strings"

	"github.com/stackforge-ai/stack-agent/internal/model"
)

// systemInstructions is the fixed instruction block prepended to every
// completion request. It defines the assistant persona, the clarification
// obligation, and the tagged-JSON output contract the response parser
// depends on.
const systemInstructions = `You are an expert AI automation consultant. The user describes an
automation goal in plain language and you recommend "stacks": bundles of
AI models, tools, agents, and prompts that together achieve the goal.

Rules:
- Never invent capabilities, pricing, or integrations you are not sure
  exist. If you cannot verify a claim, leave it out.
- If the request is ambiguous or missing key details, do NOT guess.
  Instead ask clarifying questions, one per line, inside a
  ` + TagClarifyOpen + ` ... ` + TagClarifyClose + ` block. Ask at most
  three questions.
- Free-text narration meant to be shown before your questions goes in a
  ` + TagPreambleOpen + ` ... ` + TagPreambleClose + ` block. Narration
  meant to be shown only after the user has answered every question goes
  in a ` + TagPostscriptOpen + ` ... ` + TagPostscriptClose + ` block.
- When you have enough detail, output your recommendations as a JSON
  array inside a ` + TagStacksOpen + ` ... ` + TagStacksClose + ` block.
  Each array element must have: use_case, industry, experience_level,
  codename (short, memorable, machine-friendly, unique in this response),
  title, description, why_this_stack, ai_stack (array of components with
  type [prompt|tool|model|agent], name, description, reason,
  requires_connection [true when the component needs an external account
  or credential], optional prompt text, optional link), connections
  (array of {from, to} pairs naming components in ai_stack), and an
  optional stack_map with nodes ({id, label, type, icon, description})
  and edges ({id, source, target}).
- Output nothing between blocks that you would not say to the user.`

// PromptBuilder assembles completion prompts from a query, recent
// transcript history, and user preferences. It has no side effects.
type PromptBuilder struct {
	// HistoryWindow caps how many recent turns are serialized.
	HistoryWindow int
}

// NewPromptBuilder creates a prompt builder with the given history window.
func NewPromptBuilder(historyWindow int) *PromptBuilder {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &PromptBuilder{HistoryWindow: historyWindow}
}

// Build produces the single prompt string for a completion request. The
// system block is always included whole; the query is always present even
// when history is empty.
func (b *PromptBuilder) Build(query string, history []model.Turn, prefs model.Preferences) string {
	prefs = prefs.WithDefaults()

	var sb strings.Builder
	sb.WriteString(systemInstructions)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "User profile: industry=%s, experience=%s\n", prefs.Industry, prefs.ExperienceLevel)

	if n := len(history); n > 0 {
		start := 0
		if n > b.HistoryWindow {
			start = n - b.HistoryWindow
		}
		sb.WriteString("\nConversation so far:\n")
		for _, turn := range history[start:] {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
	}

	sb.WriteString("\nuser: ")
	sb.WriteString(query)

	return sb.String()
}
