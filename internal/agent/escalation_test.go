package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelChain_AdvancesForwardOnly(t *testing.T) {
	chain := NewModelChain([]string{"m1", "m2", "m3"})

	assert.Equal(t, "m1", chain.Current())
	assert.False(t, chain.Exhausted())

	next, ok := chain.Advance()
	require.True(t, ok)
	assert.Equal(t, "m2", next)
	assert.Equal(t, "m2", chain.Current())

	next, ok = chain.Advance()
	require.True(t, ok)
	assert.Equal(t, "m3", next)
	assert.True(t, chain.Exhausted())

	// Advancing past the end is a no-op.
	next, ok = chain.Advance()
	assert.False(t, ok)
	assert.Equal(t, "m3", next)
	assert.Equal(t, "m3", chain.Current())
}

func TestModelChain_CopiesInput(t *testing.T) {
	models := []string{"m1", "m2"}
	chain := NewModelChain(models)
	models[0] = "mutated"
	assert.Equal(t, "m1", chain.Current())
}

func TestModelChain_EmptyInput(t *testing.T) {
	chain := NewModelChain(nil)
	assert.Equal(t, "", chain.Current())
	_, ok := chain.Advance()
	assert.False(t, ok)
}
