package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/graphgen/internal/directives"
	"github.com/starford/graphgen/internal/graph"
)

// graphContract is sent with every request regardless of mode.
const graphContract = `You are a diagram architect. Output pure JSON matching the provided schema.
1. Every node has a unique string "id", a "type" ("default", "group" or "smart"),
   "data": {"label": "..."} and "position": {"x": <number>, "y": <number>}.
2. "data.body" holds optional longer text; "data.backgroundColor" an optional CSS color.
3. "parentId" places a node inside a group node and must name an existing node.
4. Edges have a unique "id", "source" and "target" that name existing node ids, an optional
   "label", and "directed": true for process flow (arrows), false for symmetric relations.
5. Put a one or two sentence summary of the diagram in "explanation".`

// updateRules are appended to the system prompt in Update state.
const updateRules = `You are updating an existing diagram.
- Keep the id of every node that is conceptually unchanged; ids keep the client layout stable.
- Keep existing positions unless the instruction asks to move things.
- Do not delete nodes or edges unless the instruction explicitly asks for removal.
- Give new nodes and edges new ids that do not collide with any existing id.
- Return the FULL resulting diagram (existing plus new elements), never a diff.`

// SystemPrompt assembles the system instructions for a mode and state.
func SystemPrompt(d directives.Directive, state State) string {
	var b strings.Builder
	b.WriteString(graphContract)
	b.WriteString("\n\nStyle (")
	b.WriteString(d.Name)
	b.WriteString("):\n")
	b.WriteString(strings.TrimSpace(d.Instructions))
	if state == StateUpdate {
		b.WriteString("\n\n")
		b.WriteString(updateRules)
	}
	return b.String()
}

// BuildPrompt returns the instruction text for the generator. In Fresh state
// it is the caller's instruction verbatim; in Update state the prior graph is
// embedded as JSON together with the list of ids that must stay stable.
func BuildPrompt(instruction string, prior *graph.Graph, state State) (string, error) {
	if state == StateFresh {
		return instruction, nil
	}
	data, err := json.MarshalIndent(prior, "", "  ")
	if err != nil {
		return "", fmt.Errorf("resolver: serialize prior graph: %w", err)
	}

	var b strings.Builder
	b.WriteString("Current diagram:\n```json\n")
	b.Write(data)
	b.WriteString("\n```\n\n")
	fmt.Fprintf(&b, "Existing node ids (preserve unless removal is requested): %s\n", quoteAll(prior.NodeIDs()))
	if len(prior.Edges) > 0 {
		fmt.Fprintf(&b, "Existing edge ids: %s\n", quoteAll(prior.EdgeIDs()))
	}
	b.WriteString("\nInstruction:\n")
	b.WriteString(instruction)
	b.WriteString("\n\nReturn the complete updated diagram.")
	return b.String(), nil
}

func quoteAll(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return strings.Join(quoted, ", ")
}
