// Package agent implements the conversational stack agent: prompt
// construction, completion response parsing, the clarification dialogue
// state machine, and the model escalation policy.
package agent

// Tag markers recognized in completion text. The prompt builder instructs
// the model to emit exactly these spellings and the response parser scans
// for them, so the two sides must never drift apart.
const (
	TagStacksOpen  = "<stacks_json>"
	TagStacksClose = "</stacks_json>"

	TagClarifyOpen  = "<clarifying_questions>"
	TagClarifyClose = "</clarifying_questions>"

	TagPreambleOpen  = "<preamble>"
	TagPreambleClose = "</preamble>"

	TagPostscriptOpen  = "<postscript>"
	TagPostscriptClose = "</postscript>"
)

// tagKind identifies one of the four recognized block kinds.
type tagKind int

const (
	kindPreamble tagKind = iota
	kindClarify
	kindPostscript
	kindStacks
)

// tagPair binds a kind to its opening and closing markers.
type tagPair struct {
	kind  tagKind
	open  string
	close string
}

// tagPairs lists every recognized block, in scan priority order.
var tagPairs = []tagPair{
	{kindPreamble, TagPreambleOpen, TagPreambleClose},
	{kindClarify, TagClarifyOpen, TagClarifyClose},
	{kindPostscript, TagPostscriptOpen, TagPostscriptClose},
	{kindStacks, TagStacksOpen, TagStacksClose},
}
