package action

import (
	"fmt"
	"time"
)

// Record is the condensed read model of one logged action, merged across the
// per-variant tables. Detail holds the variant payload rendered as text
// (selector, duration, message text or completion summary).
type Record struct {
	Type      Type
	Detail    string
	Reasoning string
	CreatedAt time.Time
	// TurnSeq preserves list order inside a turn, where every action shares
	// one timestamp.
	TurnSeq int
}

// Describe renders the record as one condensed history line.
func (r Record) Describe() string {
	var line string
	switch r.Type {
	case TypeClick:
		line = fmt.Sprintf("clicked element %q", r.Detail)
	case TypeWait:
		line = fmt.Sprintf("waited %s seconds", r.Detail)
	case TypeMessage:
		line = fmt.Sprintf("sent message %q", r.Detail)
	case TypeComplete:
		line = fmt.Sprintf("completed the task: %s", r.Detail)
	default:
		line = fmt.Sprintf("performed %s action", r.Type)
	}
	if r.Reasoning != "" {
		line += fmt.Sprintf(" (reasoning: %s)", r.Reasoning)
	}
	return line
}
