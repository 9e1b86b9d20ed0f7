package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialogue_StartsIdle(t *testing.T) {
	var d Dialogue
	assert.Equal(t, StateIdle, d.State())
	_, ok := d.Next()
	assert.False(t, ok)
}

func TestDialogue_LoadQuestions(t *testing.T) {
	var d Dialogue

	assert.False(t, d.LoadQuestions(nil), "empty list never loads")
	require.True(t, d.LoadQuestions([]string{"q1", "q2"}))
	assert.Equal(t, StateAwaitingAnswer, d.State())
	assert.Equal(t, 2, d.PendingCount())

	// A second batch must not restart the cycle mid-dialogue.
	assert.False(t, d.LoadQuestions([]string{"q3"}))
	assert.Equal(t, 2, d.PendingCount())
}

func TestDialogue_AnswerIsFIFO(t *testing.T) {
	var d Dialogue
	require.True(t, d.LoadQuestions([]string{"q1", "q2", "q3"}))

	qa, ok := d.Answer("a1")
	require.True(t, ok)
	assert.Equal(t, AnsweredQuestion{Question: "q1", Answer: "a1"}, qa)

	// Remaining order unchanged.
	next, ok := d.Next()
	require.True(t, ok)
	assert.Equal(t, "q2", next)
	assert.Equal(t, StateAwaitingAnswer, d.State())

	d.Answer("a2")
	d.Answer("a3")
	assert.Equal(t, StateReadyToResume, d.State())
	assert.Equal(t, 0, d.PendingCount())
}

func TestDialogue_AnswerWithoutPending(t *testing.T) {
	var d Dialogue
	_, ok := d.Answer("unsolicited")
	assert.False(t, ok)
	assert.Equal(t, StateIdle, d.State())
}

func TestDialogue_NoReloadWhileAnswersBuffered(t *testing.T) {
	var d Dialogue
	require.True(t, d.LoadQuestions([]string{"q1"}))
	d.Answer("a1")
	require.Equal(t, StateReadyToResume, d.State())

	assert.False(t, d.LoadQuestions([]string{"q2"}))
}

func TestDialogue_Summary(t *testing.T) {
	var d Dialogue
	require.True(t, d.LoadQuestions([]string{"What kind of emails?", "How many per day?"}))
	d.Answer("marketing emails")
	d.Answer("about fifty")

	want := "What kind of emails?\nmarketing emails\n\nHow many per day?\nabout fifty"
	assert.Equal(t, want, d.Summary())

	d.ClearAnswered()
	assert.Equal(t, StateIdle, d.State())
	assert.Equal(t, "", d.Summary())
}
