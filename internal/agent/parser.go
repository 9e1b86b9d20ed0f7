package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/stackforge-ai/stack-agent/internal/model"
)

// DisplayPlaceholder replaces display text that would otherwise be empty
// or too short to be worth rendering.
const DisplayPlaceholder = "see sidebar for details"

// minDisplayLength is the threshold below which display text is replaced
// with DisplayPlaceholder.
const minDisplayLength = 10

// ParsedResponse is the structured interpretation of one raw completion.
type ParsedResponse struct {
	// Preambles are narration strings shown immediately.
	Preambles []string

	// Postscripts are narration strings withheld until every pending
	// clarification is resolved.
	Postscripts []string

	// Questions are clarification questions, in the order asked.
	Questions []string

	// Proposals are stack proposals decoded from the stacks block.
	Proposals []model.StackProposal

	// DisplayText is the raw text with every recognized block removed,
	// never empty (DisplayPlaceholder is substituted instead).
	DisplayText string

	// Recovered marks proposals salvaged from a truncated stacks block.
	Recovered bool
}

// blockSpan is one recognized tag block found by the scanner.
type blockSpan struct {
	pair   tagPair
	start  int // offset of the opening marker
	end    int // offset just past the closing marker, or len(raw)
	inner  string
	closed bool
}

// scanBlocks walks the text once, left to right, locating every
// recognized block. An opening marker with no matching close yields an
// unclosed span that extends to the end of the text.
func scanBlocks(raw string) []blockSpan {
	var spans []blockSpan
	pos := 0
	for pos < len(raw) {
		best := -1
		var bestPair tagPair
		for _, p := range tagPairs {
			if idx := strings.Index(raw[pos:], p.open); idx >= 0 {
				if abs := pos + idx; best == -1 || abs < best {
					best = abs
					bestPair = p
				}
			}
		}
		if best == -1 {
			break
		}

		innerStart := best + len(bestPair.open)
		if rel := strings.Index(raw[innerStart:], bestPair.close); rel >= 0 {
			end := innerStart + rel + len(bestPair.close)
			spans = append(spans, blockSpan{
				pair:   bestPair,
				start:  best,
				end:    end,
				inner:  raw[innerStart : innerStart+rel],
				closed: true,
			})
			pos = end
		} else {
			spans = append(spans, blockSpan{
				pair:   bestPair,
				start:  best,
				end:    len(raw),
				inner:  raw[innerStart:],
				closed: false,
			})
			pos = len(raw)
		}
	}
	return spans
}

// ParseResponse interprets raw completion text. It is best-effort and
// never fails: malformed or truncated structured output produces an empty
// proposal list, never an error.
func ParseResponse(raw string) *ParsedResponse {
	out := &ParsedResponse{}
	spans := scanBlocks(raw)

	// Clarification extraction always runs against the untouched raw
	// text, first closed pair only.
	for _, s := range spans {
		if s.pair.kind == kindClarify && s.closed {
			out.Questions = splitQuestions(s.inner)
			break
		}
	}

	for _, s := range spans {
		if !s.closed {
			continue
		}
		switch s.pair.kind {
		case kindPreamble:
			if t := strings.TrimSpace(s.inner); t != "" {
				out.Preambles = append(out.Preambles, t)
			}
		case kindPostscript:
			if t := strings.TrimSpace(s.inner); t != "" {
				out.Postscripts = append(out.Postscripts, t)
			}
		}
	}

	// Stack extraction: strict parse of the first stacks block, falling
	// back to truncation recovery when the close marker never arrived.
	extracted := false
	for _, s := range spans {
		if s.pair.kind != kindStacks {
			continue
		}
		if s.closed {
			if props, ok := decodeProposals(s.inner); ok {
				out.Proposals = props
				extracted = true
			}
		} else if props, ok := decodeProposals(recoverTruncated(s.inner)); ok {
			out.Proposals = props
			out.Recovered = true
			extracted = true
		}
		break
	}

	// Display text: every recognized block is removed. Closed blocks and
	// an unclosed stacks remnant drop entirely; any other unclosed marker
	// drops just the marker and keeps its text.
	var sb strings.Builder
	pos := 0
	for _, s := range spans {
		sb.WriteString(raw[pos:s.start])
		if !s.closed && s.pair.kind != kindStacks {
			sb.WriteString(s.inner)
		}
		pos = s.end
	}
	sb.WriteString(raw[pos:])
	display := sb.String()

	if extracted {
		display = stripCodeFences(display)
		display = stripBraceLines(display)
	}

	display = strings.TrimSpace(display)
	if len(display) < minDisplayLength {
		display = DisplayPlaceholder
	}
	out.DisplayText = display

	return out
}

// decodeProposals parses a JSON array of stack proposals. Connection
// endpoints that name no component in the proposal are moved onto the
// flagged dangling list; the proposal itself is always kept.
func decodeProposals(s string) ([]model.StackProposal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var props []model.StackProposal
	if err := json.Unmarshal([]byte(s), &props); err != nil {
		return nil, false
	}
	for i := range props {
		flagDanglingConnections(&props[i])
	}
	return props, true
}

// recoverTruncated trims a truncated stacks remnant back to the last
// closing brace or bracket, the point most likely to parse.
func recoverTruncated(s string) string {
	cut := strings.LastIndexAny(s, "}]")
	if cut < 0 {
		return ""
	}
	return s[:cut+1]
}

func flagDanglingConnections(p *model.StackProposal) {
	if len(p.Connections) == 0 {
		return
	}
	names := make(map[string]struct{}, len(p.AIStack))
	for _, c := range p.AIStack {
		names[c.Name] = struct{}{}
	}
	var live, dangling []model.Connection
	for _, conn := range p.Connections {
		_, okFrom := names[conn.From]
		_, okTo := names[conn.To]
		if okFrom && okTo {
			live = append(live, conn)
		} else {
			dangling = append(dangling, conn)
		}
	}
	p.Connections = live
	p.DanglingConnections = dangling
}

// questionPrefixRE matches numbered and bulleted list markers.
var questionPrefixRE = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)

// splitQuestions splits a clarification block into individual questions
// on line, numbered, and bulleted delimiters, dropping empty entries.
func splitQuestions(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = questionPrefixRE.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var codeFenceRE = regexp.MustCompile("(?s)```.*?```")

func stripCodeFences(s string) string {
	return codeFenceRE.ReplaceAllString(s, "")
}

// stripBraceLines drops stray lines that are whole top-level JSON object
// remnants left behind after block removal.
func stripBraceLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
