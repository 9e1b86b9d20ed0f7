package agent

import (
	"strings"
)

// DialogueState is the clarification dialogue's current state.
type DialogueState int

const (
	// StateIdle: no pending questions, no unsent answers.
	StateIdle DialogueState = iota
	// StateAwaitingAnswer: the pending queue is non-empty.
	StateAwaitingAnswer
	// StateReadyToResume: the queue just emptied and answered
	// clarifications are buffered but not yet sent back.
	StateReadyToResume
)

// AnsweredQuestion pairs one clarification question with its answer.
type AnsweredQuestion struct {
	Question string
	Answer   string
}

// Dialogue tracks the clarification dialogue for one conversation. It is
// not safe for concurrent use; the owning session serializes access.
type Dialogue struct {
	pending  []string
	answered []AnsweredQuestion
}

// State derives the current dialogue state.
func (d *Dialogue) State() DialogueState {
	switch {
	case len(d.pending) > 0:
		return StateAwaitingAnswer
	case len(d.answered) > 0:
		return StateReadyToResume
	default:
		return StateIdle
	}
}

// LoadQuestions enqueues freshly extracted questions. Questions are only
// accepted when nothing is pending and nothing answered is buffered; a
// response arriving mid-dialogue never restarts the cycle.
func (d *Dialogue) LoadQuestions(questions []string) bool {
	if len(questions) == 0 || len(d.pending) > 0 || len(d.answered) > 0 {
		return false
	}
	d.pending = append(d.pending, questions...)
	return true
}

// Next returns the front-most pending question without dequeueing it.
func (d *Dialogue) Next() (string, bool) {
	if len(d.pending) == 0 {
		return "", false
	}
	return d.pending[0], true
}

// PendingCount returns how many questions remain unanswered.
func (d *Dialogue) PendingCount() int {
	return len(d.pending)
}

// Answer dequeues the front-most pending question (FIFO) and buffers the
// (question, answer) pair. Returns false when nothing was pending.
func (d *Dialogue) Answer(answer string) (AnsweredQuestion, bool) {
	if len(d.pending) == 0 {
		return AnsweredQuestion{}, false
	}
	qa := AnsweredQuestion{Question: d.pending[0], Answer: answer}
	d.pending = d.pending[1:]
	d.answered = append(d.answered, qa)
	return qa, true
}

// Summary synthesizes the resume message: every buffered pair rendered as
// "question\nanswer", pairs separated by a blank line, in answer order.
func (d *Dialogue) Summary() string {
	parts := make([]string, len(d.answered))
	for i, qa := range d.answered {
		parts[i] = qa.Question + "\n" + qa.Answer
	}
	return strings.Join(parts, "\n\n")
}

// ClearAnswered drops the answered buffer after the resume message has
// been submitted, returning the dialogue to Idle.
func (d *Dialogue) ClearAnswered() {
	d.answered = nil
}
