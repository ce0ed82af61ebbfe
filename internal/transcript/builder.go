// Package transcript assembles the bounded, chronologically ordered context
// sent to the language model for one turn. Build is a pure function of the
// goal, the trimmed history and the current page observation.
package transcript

import (
	"fmt"
	"sort"
	"strings"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
)

const (
	// HistoryLimit bounds the merged history to the most recent K entries,
	// regardless of how many variants contributed them.
	HistoryLimit = 10
	// MarkupPreviewLimit bounds raw markup inside the transcript. This is a
	// presentation cap, distinct from the storage cap in the action log.
	MarkupPreviewLimit = 5000
)

// Role tags a transcript block for the model API.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Block is one role-tagged segment of the transcript.
type Block struct {
	Role Role
	Text string
}

// Transcript is the ordered set of blocks for one model call.
type Transcript struct {
	Blocks []Block
}

// capabilityVersion identifies the action vocabulary below. The list is
// static: there is no runtime registration of tools.
const capabilityVersion = "pagepilot-actions/1"

const systemTemplate = `You are pagepilot, an autonomous assistant that navigates websites on behalf of a user. Capability set: ` + capabilityVersion + `.

Your goal: %s

You must respond ONLY with a single JSON object of the form {"actions":[...]}. Each element of the array is one action object. The available action types are:
- {"action_type":"click","selector":"<locator of the element to click>","reasoning":"<why>"}
- {"action_type":"wait","duration":<whole seconds, 0-300>,"reasoning":"<why>"}
- {"action_type":"message","text":"<text shown to the user>","reasoning":"<why>"}
- {"action_type":"complete","summary":"<final summary shown to the user>","reasoning":"<why>"}

Rules:
1. Prefer acting over waiting. Only wait when the page is clearly still loading.
2. The full page content is already supplied below. Do not ask for more of it.
3. Emit "complete" exactly once, and only when the goal is achieved or clearly unachievable.
4. Keep reasoning short and concrete.`

// Build assembles the transcript from the session goal, the bounded action
// history and the current page observation. It performs no I/O.
func Build(goal string, history []action.Record, page schemas.PageState) Transcript {
	blocks := []Block{
		{Role: RoleSystem, Text: fmt.Sprintf(systemTemplate, goal)},
	}

	trimmed := boundHistory(history, HistoryLimit)
	if len(trimmed) > 0 {
		var b strings.Builder
		b.WriteString("Actions taken so far, oldest first:\n")
		for _, r := range trimmed {
			b.WriteString("- ")
			b.WriteString(r.Describe())
			b.WriteByte('\n')
		}
		blocks = append(blocks, Block{Role: RoleUser, Text: strings.TrimRight(b.String(), "\n")})
	}

	blocks = append(blocks, Block{Role: RoleUser, Text: renderPage(page)})

	// Restate the goal only on the first turn; afterwards the system block
	// alone carries it, saving context budget.
	if len(trimmed) == 0 {
		blocks = append(blocks, Block{Role: RoleUser, Text: "Your goal: " + goal})
	}

	return Transcript{Blocks: blocks}
}

// boundHistory sorts records chronologically (stable, so equal timestamps
// keep insertion order via TurnSeq) and keeps the most recent limit entries.
func boundHistory(history []action.Record, limit int) []action.Record {
	sorted := make([]action.Record, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].TurnSeq < sorted[j].TurnSeq
	})
	if len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	return sorted
}

func renderPage(page schemas.PageState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current page: %s\n", page.URL)

	switch {
	case page.Structured != nil:
		b.WriteString("Parsed page elements:\n")
		for i, el := range page.Structured.Elements {
			fmt.Fprintf(&b, "[%d] <%s>", i, el.Tag)
			if el.Selector != "" {
				fmt.Fprintf(&b, " selector=%q", el.Selector)
			}
			if el.Text != "" {
				fmt.Fprintf(&b, " text=%q", el.Text)
			}
			fmt.Fprintf(&b, " visible=%t interactive=%t", el.Visible, el.Interactive)
			attrs := make([]string, 0, len(el.Attributes))
			for k := range el.Attributes {
				attrs = append(attrs, k)
			}
			sort.Strings(attrs)
			for _, k := range attrs {
				fmt.Fprintf(&b, " %s=%q", k, el.Attributes[k])
			}
			b.WriteByte('\n')
		}
		if len(page.Structured.Counts) > 0 {
			keys := make([]string, 0, len(page.Structured.Counts))
			for k := range page.Structured.Counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			b.WriteString("Element counts:")
			for _, k := range keys {
				fmt.Fprintf(&b, " %s=%d", k, page.Structured.Counts[k])
			}
			b.WriteByte('\n')
		}
	default:
		b.WriteString("Page markup:\n")
		b.WriteString(schemas.TruncateRunes(page.HTML, MarkupPreviewLimit))
		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}

// SystemPrompt returns the concatenated system blocks.
func (t Transcript) SystemPrompt() string {
	return t.joined(RoleSystem)
}

// UserPrompt returns the concatenated user blocks, in order.
func (t Transcript) UserPrompt() string {
	return t.joined(RoleUser)
}

func (t Transcript) joined(role Role) string {
	var parts []string
	for _, b := range t.Blocks {
		if b.Role == role {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
