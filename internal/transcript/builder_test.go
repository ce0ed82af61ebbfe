package transcript

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
)

func htmlPage(markup string) schemas.PageState {
	return schemas.PageState{URL: "https://shop.example/cart", HTML: markup}
}

func TestBuildFirstTurn(t *testing.T) {
	tr := Build("buy a red kettle", nil, htmlPage("<html><body>cart</body></html>"))

	require.Len(t, tr.Blocks, 3)
	assert.Equal(t, RoleSystem, tr.Blocks[0].Role)
	assert.Contains(t, tr.Blocks[0].Text, "buy a red kettle")
	assert.Contains(t, tr.Blocks[0].Text, `"action_type":"click"`)
	assert.Contains(t, tr.Blocks[0].Text, `"action_type":"complete"`)

	assert.Equal(t, RoleUser, tr.Blocks[1].Role)
	assert.Contains(t, tr.Blocks[1].Text, "https://shop.example/cart")
	assert.Contains(t, tr.Blocks[1].Text, "<html><body>cart</body></html>")

	// Goal restated only when there is no history.
	assert.Equal(t, "Your goal: buy a red kettle", tr.Blocks[2].Text)
}

func TestBuildLaterTurnOmitsGoalBlock(t *testing.T) {
	history := []action.Record{
		{Type: action.TypeClick, Detail: "#add-to-cart", CreatedAt: time.Now().UTC()},
	}
	tr := Build("buy a red kettle", history, htmlPage("<p/>"))

	require.Len(t, tr.Blocks, 3)
	assert.Contains(t, tr.Blocks[1].Text, `clicked element "#add-to-cart"`)
	for _, b := range tr.Blocks[1:] {
		assert.NotEqual(t, "Your goal: buy a red kettle", b.Text)
	}
}

func TestBuildBoundsMergedHistory(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var history []action.Record
	// 7 clicks and 7 waits interleaved in time; only the latest 10 combined
	// may survive, regardless of per-type counts.
	for i := 0; i < 7; i++ {
		history = append(history, action.Record{
			Type: action.TypeClick, Detail: fmt.Sprintf("#btn-%d", i),
			CreatedAt: base.Add(time.Duration(2*i) * time.Minute),
		})
		history = append(history, action.Record{
			Type: action.TypeWait, Detail: "1",
			CreatedAt: base.Add(time.Duration(2*i+1) * time.Minute),
		})
	}

	tr := Build("g", history, htmlPage("<p/>"))
	historyBlock := tr.Blocks[1].Text

	lines := 0
	for _, l := range strings.Split(historyBlock, "\n") {
		if strings.HasPrefix(l, "- ") {
			lines++
		}
	}
	assert.Equal(t, HistoryLimit, lines)

	// The oldest entries fell off; the newest survived.
	assert.NotContains(t, historyBlock, "#btn-0")
	assert.NotContains(t, historyBlock, "#btn-1")
	assert.Contains(t, historyBlock, "#btn-6")
}

func TestBuildTieBreakIsDeterministic(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	history := []action.Record{
		{Type: action.TypeClick, Detail: "#first", CreatedAt: at, TurnSeq: 0},
		{Type: action.TypeMessage, Detail: "second", CreatedAt: at, TurnSeq: 1},
	}
	tr := Build("g", history, htmlPage("<p/>"))
	text := tr.Blocks[1].Text
	assert.Less(t, strings.Index(text, "#first"), strings.Index(text, "second"))
}

func TestBuildTruncatesMarkupPreview(t *testing.T) {
	tr := Build("g", nil, htmlPage(strings.Repeat("a", MarkupPreviewLimit*2)))
	pageBlock := tr.Blocks[1].Text
	assert.Contains(t, pageBlock, schemas.TruncationMarker)
	// The preview itself respects the cap (block adds only the URL header).
	assert.Less(t, len(pageBlock), MarkupPreviewLimit+200)
}

func TestBuildRendersStructuredPage(t *testing.T) {
	page := schemas.PageState{
		URL: "https://shop.example",
		Structured: &schemas.StructuredPage{
			Elements: []schemas.PageElement{
				{Tag: "button", Selector: "#buy", Text: "Buy now", Visible: true, Interactive: true},
				{Tag: "div", Text: "footer", Visible: false},
			},
			Counts: map[string]int{"button": 1, "div": 1},
		},
	}
	tr := Build("g", nil, page)
	text := tr.Blocks[1].Text

	assert.Contains(t, text, `[0] <button> selector="#buy" text="Buy now" visible=true interactive=true`)
	assert.Contains(t, text, "[1] <div>")
	assert.Contains(t, text, "Element counts: button=1 div=1")
	assert.NotContains(t, text, "Page markup")
}

func TestPromptAccessors(t *testing.T) {
	tr := Build("goal", nil, htmlPage("<p/>"))
	assert.Contains(t, tr.SystemPrompt(), "pagepilot")
	assert.Contains(t, tr.UserPrompt(), "Current page:")
	assert.NotContains(t, tr.UserPrompt(), "You must respond ONLY")
}
