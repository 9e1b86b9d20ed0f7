package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge-ai/stack-agent/internal/model"
)

func TestPromptBuilder_EmptyHistory(t *testing.T) {
	b := NewPromptBuilder(10)

	prompt := b.Build("automate my invoices", nil, model.Preferences{})

	// The whole system block is present, tag contract included.
	assert.Contains(t, prompt, TagStacksOpen)
	assert.Contains(t, prompt, TagClarifyOpen)
	assert.Contains(t, prompt, TagPreambleOpen)
	assert.Contains(t, prompt, TagPostscriptOpen)

	assert.Contains(t, prompt, "user: automate my invoices")
	assert.NotContains(t, prompt, "Conversation so far:")
}

func TestPromptBuilder_DefaultsPreferences(t *testing.T) {
	b := NewPromptBuilder(10)

	prompt := b.Build("q", nil, model.Preferences{})
	assert.Contains(t, prompt, "industry=general")
	assert.Contains(t, prompt, "experience=beginner")

	prompt = b.Build("q", nil, model.Preferences{Industry: "legal", ExperienceLevel: "expert"})
	assert.Contains(t, prompt, "industry=legal")
	assert.Contains(t, prompt, "experience=expert")
}

func TestPromptBuilder_WindowsHistory(t *testing.T) {
	b := NewPromptBuilder(3)

	history := make([]model.Turn, 6)
	for i := range history {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		history[i] = model.Turn{Role: role, Content: fmt.Sprintf("turn-%d", i)}
	}

	prompt := b.Build("next", history, model.Preferences{})

	assert.NotContains(t, prompt, "turn-2")
	assert.Contains(t, prompt, "turn-3")
	assert.Contains(t, prompt, "turn-5")
	assert.Contains(t, prompt, "assistant: turn-5")

	// History precedes the query.
	assert.Less(t, strings.Index(prompt, "turn-5"), strings.Index(prompt, "user: next"))
}

func TestPromptBuilder_SystemBlockFirst(t *testing.T) {
	b := NewPromptBuilder(10)
	prompt := b.Build("q", []model.Turn{{Role: model.RoleUser, Content: "earlier"}}, model.Preferences{})

	require.True(t, strings.HasPrefix(prompt, systemInstructions))
}
