package schemas

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field length bounds enforced across the wire surface. These are structural
// limits only; no semantic validation happens at this layer.
const (
	MaxURLLength   = 2000
	MaxTitleLength = 1000
)

// TruncationMarker is appended whenever text is cut to fit a length budget.
// The marker always fits inside the budget, so truncated text never exceeds it.
const TruncationMarker = "... [truncated]"

var (
	ErrNoRepresentation   = errors.New("page state requires either html or structured_data")
	ErrBothRepresentation = errors.New("page state must carry exactly one of html and structured_data")
)

// Session is a single ongoing automation task bound to one goal and one
// growing action history. A session is active while CompletedAt is nil; once
// set, the session is terminal and immutable.
type Session struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the session can still accept turns.
func (s Session) Active() bool { return s.CompletedAt == nil }

// PageElement is one parsed element from a structured page snapshot.
type PageElement struct {
	Tag         string            `json:"tag"`
	Selector    string            `json:"selector,omitempty"`
	Text        string            `json:"text,omitempty"`
	Visible     bool              `json:"visible"`
	Interactive bool              `json:"interactive"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// StructuredPage is the parsed-element representation of a page: the element
// list plus aggregate counts and free-form metadata from the extractor.
type StructuredPage struct {
	Elements []PageElement     `json:"elements"`
	Counts   map[string]int    `json:"counts,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// PageState is the caller-supplied observation for one turn. Exactly one of
// HTML and Structured must be present; Screenshot may accompany either.
// It is an input shape only and is never persisted as its own entity.
type PageState struct {
	URL        string          `json:"url"`
	HTML       string          `json:"html,omitempty"`
	Structured *StructuredPage `json:"structured_data,omitempty"`
	Screenshot string          `json:"screenshot,omitempty"` // base64-encoded image
}

// Validate enforces the structural invariants of a page observation.
func (p PageState) Validate() error {
	if n := utf8.RuneCountInString(p.URL); n == 0 || n > MaxURLLength {
		return fmt.Errorf("page url must be 1-%d characters, got %d", MaxURLLength, n)
	}
	hasHTML := p.HTML != ""
	hasStructured := p.Structured != nil
	if hasHTML && hasStructured {
		return ErrBothRepresentation
	}
	if !hasHTML && !hasStructured {
		return ErrNoRepresentation
	}
	return nil
}

// TruncateRunes cuts s to at most limit runes, appending TruncationMarker
// when anything was removed. The result, marker included, never exceeds
// limit runes and never splits a multi-byte character.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	marker := TruncationMarker
	keep := limit - utf8.RuneCountInString(marker)
	if keep < 0 {
		// Degenerate budget smaller than the marker itself.
		return string([]rune(marker)[:limit])
	}
	return string([]rune(s)[:keep]) + marker
}
