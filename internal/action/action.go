// Package action defines the closed set of instructions the model may emit
// for one turn, realized as a tagged union with one concrete type per
// variant. The discriminator on the wire is "action_type".
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Type is the stable discriminator for an action variant.
type Type string

const (
	TypeClick    Type = "click"
	TypeWait     Type = "wait"
	TypeMessage  Type = "message"
	TypeComplete Type = "complete"
)

// Structural bounds per variant. Validation checks lengths and ranges only;
// the content itself is never interpreted here.
const (
	MaxSelectorLength = 500
	MaxTextLength     = 1000
	MaxWaitSeconds    = 300
)

var (
	ErrMissingType  = errors.New("action object missing action_type discriminator")
	ErrUnknownType  = errors.New("unrecognized action_type")
	ErrMissingField = errors.New("action object missing required field")
)

// Action is one typed instruction-or-signal produced by the model. All four
// variants implement it with pointer receivers.
type Action interface {
	ActionType() Type
	// Validate performs structural checks (length and range bounds).
	Validate() error
	// Describe renders a short type-specific line used in condensed history.
	Describe() string
	// Stamp records the shared per-turn creation timestamp.
	Stamp(t time.Time)
	Created() time.Time
	Rationale() string
}

// Meta carries the fields shared by every action variant: the creation
// timestamp (identical for all actions of one turn) and an optional
// free-text rationale.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	Reasoning string    `json:"reasoning,omitempty"`
}

func (m *Meta) Stamp(t time.Time)  { m.CreatedAt = t }
func (m *Meta) Created() time.Time { return m.CreatedAt }
func (m *Meta) Rationale() string  { return m.Reasoning }

// Click instructs the executor to click the element matched by Selector.
type Click struct {
	Meta
	Selector string `json:"selector"`
}

func (c *Click) ActionType() Type { return TypeClick }

func (c *Click) Validate() error {
	if n := utf8.RuneCountInString(c.Selector); n == 0 || n > MaxSelectorLength {
		return fmt.Errorf("click selector must be 1-%d characters, got %d", MaxSelectorLength, n)
	}
	return nil
}

func (c *Click) Describe() string { return fmt.Sprintf("clicked element %q", c.Selector) }

func (c *Click) MarshalJSON() ([]byte, error) {
	type alias Click
	return json.Marshal(struct {
		ActionType Type `json:"action_type"`
		*alias
	}{TypeClick, (*alias)(c)})
}

// Wait instructs the executor to pause for Duration seconds.
type Wait struct {
	Meta
	Duration int `json:"duration"`
}

func (w *Wait) ActionType() Type { return TypeWait }

func (w *Wait) Validate() error {
	if w.Duration < 0 || w.Duration > MaxWaitSeconds {
		return fmt.Errorf("wait duration must be within [0, %d] seconds, got %d", MaxWaitSeconds, w.Duration)
	}
	return nil
}

func (w *Wait) Describe() string { return fmt.Sprintf("waited %d seconds", w.Duration) }

func (w *Wait) MarshalJSON() ([]byte, error) {
	type alias Wait
	return json.Marshal(struct {
		ActionType Type `json:"action_type"`
		*alias
	}{TypeWait, (*alias)(w)})
}

// Message carries user-facing text back to the caller. Non-terminal.
type Message struct {
	Meta
	Text string `json:"text"`
}

func (m *Message) ActionType() Type { return TypeMessage }

func (m *Message) Validate() error {
	if n := utf8.RuneCountInString(m.Text); n == 0 || n > MaxTextLength {
		return fmt.Errorf("message text must be 1-%d characters, got %d", MaxTextLength, n)
	}
	return nil
}

func (m *Message) Describe() string { return fmt.Sprintf("sent message %q", m.Text) }

func (m *Message) MarshalJSON() ([]byte, error) {
	type alias Message
	return json.Marshal(struct {
		ActionType Type `json:"action_type"`
		*alias
	}{TypeMessage, (*alias)(m)})
}

// Complete signals that the goal is achieved (or unachievable) and carries a
// user-facing summary. Its presence in a turn's action set is terminal: the
// session is marked completed.
type Complete struct {
	Meta
	Summary string `json:"summary"`
}

func (c *Complete) ActionType() Type { return TypeComplete }

func (c *Complete) Validate() error {
	if n := utf8.RuneCountInString(c.Summary); n == 0 || n > MaxTextLength {
		return fmt.Errorf("completion summary must be 1-%d characters, got %d", MaxTextLength, n)
	}
	return nil
}

func (c *Complete) Describe() string { return fmt.Sprintf("completed the task: %s", c.Summary) }

func (c *Complete) MarshalJSON() ([]byte, error) {
	type alias Complete
	return json.Marshal(struct {
		ActionType Type `json:"action_type"`
		*alias
	}{TypeComplete, (*alias)(c)})
}

// Unmarshal decodes a single action object by its discriminator. Payloads
// missing the discriminator, carrying an unknown discriminator, or missing
// the variant's required field are rejected with the matching sentinel.
func Unmarshal(data []byte) (Action, error) {
	var head struct {
		ActionType *Type `json:"action_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("malformed action object: %w", err)
	}
	if head.ActionType == nil {
		return nil, ErrMissingType
	}

	switch *head.ActionType {
	case TypeClick:
		var shadow struct {
			Meta
			Selector *string `json:"selector"`
		}
		if err := json.Unmarshal(data, &shadow); err != nil {
			return nil, fmt.Errorf("malformed click action: %w", err)
		}
		if shadow.Selector == nil {
			return nil, fmt.Errorf("%w: click requires selector", ErrMissingField)
		}
		return &Click{Meta: shadow.Meta, Selector: *shadow.Selector}, nil

	case TypeWait:
		var shadow struct {
			Meta
			Duration *int `json:"duration"`
		}
		if err := json.Unmarshal(data, &shadow); err != nil {
			return nil, fmt.Errorf("malformed wait action: %w", err)
		}
		if shadow.Duration == nil {
			return nil, fmt.Errorf("%w: wait requires duration", ErrMissingField)
		}
		return &Wait{Meta: shadow.Meta, Duration: *shadow.Duration}, nil

	case TypeMessage:
		var shadow struct {
			Meta
			Text *string `json:"text"`
		}
		if err := json.Unmarshal(data, &shadow); err != nil {
			return nil, fmt.Errorf("malformed message action: %w", err)
		}
		if shadow.Text == nil {
			return nil, fmt.Errorf("%w: message requires text", ErrMissingField)
		}
		return &Message{Meta: shadow.Meta, Text: *shadow.Text}, nil

	case TypeComplete:
		var shadow struct {
			Meta
			Summary *string `json:"summary"`
		}
		if err := json.Unmarshal(data, &shadow); err != nil {
			return nil, fmt.Errorf("malformed complete action: %w", err)
		}
		if shadow.Summary == nil {
			return nil, fmt.Errorf("%w: complete requires summary", ErrMissingField)
		}
		return &Complete{Meta: shadow.Meta, Summary: *shadow.Summary}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, *head.ActionType)
	}
}

// Detail extracts the variant-specific payload of an action as text, for the
// condensed per-variant columns of the action log.
func Detail(a Action) string {
	switch v := a.(type) {
	case *Click:
		return v.Selector
	case *Wait:
		return fmt.Sprintf("%d", v.Duration)
	case *Message:
		return v.Text
	case *Complete:
		return v.Summary
	default:
		return ""
	}
}
