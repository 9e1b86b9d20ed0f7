package agent

// ModelChain is the fixed, ordered escalation chain of model identifiers
// for one conversation. Position only ever moves forward; a fresh session
// starts back at the head.
type ModelChain struct {
	models []string
	index  int
}

// NewModelChain creates a chain from the configured model list. The list
// is copied; an empty list yields a chain with a single empty entry so
// Current is always valid.
func NewModelChain(models []string) *ModelChain {
	if len(models) == 0 {
		models = []string{""}
	}
	copied := make([]string, len(models))
	copy(copied, models)
	return &ModelChain{models: copied}
}

// Current returns the active model identifier.
func (c *ModelChain) Current() string {
	return c.models[c.index]
}

// Advance moves to the next model in the chain. It returns the new model
// and true, or the current model and false when already at the last entry
// (advancing past the end is a no-op).
func (c *ModelChain) Advance() (string, bool) {
	if c.index >= len(c.models)-1 {
		return c.models[c.index], false
	}
	c.index++
	return c.models[c.index], true
}

// Exhausted reports whether the chain is at its last entry.
func (c *ModelChain) Exhausted() bool {
	return c.index >= len(c.models)-1
}
