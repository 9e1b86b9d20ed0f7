package model

// ComponentKind classifies one element of a stack proposal.
type ComponentKind string

const (
	ComponentPrompt ComponentKind = "prompt"
	ComponentTool   ComponentKind = "tool"
	ComponentModel  ComponentKind = "model"
	ComponentAgent  ComponentKind = "agent"
)

// StackComponent is one element of a stack proposal.
type StackComponent struct {
	Type        ComponentKind `json:"type"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Reason      string        `json:"reason"`

	// RequiresConnection marks components that need an external account
	// or credential. Set upstream by the completion provider, never
	// inferred locally.
	RequiresConnection bool `json:"requires_connection"`

	// Prompt holds prompt text; only meaningful when Type is "prompt".
	Prompt string `json:"prompt,omitempty"`

	// Link points at documentation or a homepage.
	Link string `json:"link,omitempty"`
}

// Connection is a directed edge between two named components.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MapNode is one node in a proposal's visualization graph.
type MapNode struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// MapEdge is one edge in a proposal's visualization graph.
type MapEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// StackMap is the optional visualization graph attached to a proposal.
type StackMap struct {
	Nodes []MapNode `json:"nodes"`
	Edges []MapEdge `json:"edges"`
}

// StackProposal is a candidate bundle of AI components returned by the
// completion provider.
type StackProposal struct {
	UseCase         string `json:"use_case"`
	Industry        string `json:"industry"`
	ExperienceLevel string `json:"experience_level"`

	// Codename is a short machine-facing identifier, unique within one
	// response and distinct from the human-facing title.
	Codename    string `json:"codename"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// WhyThisStack is the plain-language justification.
	WhyThisStack string `json:"why_this_stack"`

	AIStack     []StackComponent `json:"ai_stack"`
	Connections []Connection     `json:"connections,omitempty"`

	// DanglingConnections holds edges whose endpoints name no component
	// in AIStack. They are flagged here at parse time instead of being
	// carried silently on Connections.
	DanglingConnections []Connection `json:"dangling_connections,omitempty"`

	StackMap *StackMap `json:"stack_map,omitempty"`
}
