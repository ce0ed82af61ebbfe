package schemas

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageStateValidate(t *testing.T) {
	structured := &StructuredPage{Elements: []PageElement{{Tag: "a", Visible: true}}}

	t.Run("html representation is valid", func(t *testing.T) {
		p := PageState{URL: "https://example.com", HTML: "<html></html>"}
		assert.NoError(t, p.Validate())
	})

	t.Run("structured representation is valid", func(t *testing.T) {
		p := PageState{URL: "https://example.com", Structured: structured}
		assert.NoError(t, p.Validate())
	})

	t.Run("both representations are rejected", func(t *testing.T) {
		p := PageState{URL: "https://example.com", HTML: "<p/>", Structured: structured}
		assert.ErrorIs(t, p.Validate(), ErrBothRepresentation)
	})

	t.Run("neither representation is rejected", func(t *testing.T) {
		p := PageState{URL: "https://example.com"}
		assert.ErrorIs(t, p.Validate(), ErrNoRepresentation)
	})

	t.Run("empty url is rejected", func(t *testing.T) {
		p := PageState{HTML: "<p/>"}
		assert.Error(t, p.Validate())
	})

	t.Run("overlong url is rejected", func(t *testing.T) {
		p := PageState{URL: "https://example.com/" + strings.Repeat("a", MaxURLLength), HTML: "<p/>"}
		assert.Error(t, p.Validate())
	})
}

func TestTruncateRunes(t *testing.T) {
	t.Run("short text passes through", func(t *testing.T) {
		assert.Equal(t, "hello", TruncateRunes("hello", 10))
	})

	t.Run("long text is cut with marker inside the budget", func(t *testing.T) {
		in := strings.Repeat("x", 200)
		out := TruncateRunes(in, 50)
		assert.Equal(t, 50, utf8.RuneCountInString(out))
		assert.True(t, strings.HasSuffix(out, TruncationMarker))
	})

	t.Run("multi-byte text is never split mid-rune", func(t *testing.T) {
		in := strings.Repeat("é", 100)
		out := TruncateRunes(in, 40)
		require.True(t, utf8.ValidString(out))
		assert.Equal(t, 40, utf8.RuneCountInString(out))
	})

	t.Run("exact fit is untouched", func(t *testing.T) {
		in := strings.Repeat("y", 30)
		assert.Equal(t, in, TruncateRunes(in, 30))
	})
}
