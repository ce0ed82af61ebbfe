// Package extract turns raw model output into validated actions. It runs an
// ordered chain of strategies: a schema-based JSON path, a text-pattern
// fallback, and finally a synthesized message so that a turn always yields
// at least one action.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/varekai/pagepilot/api/schemas"
	"github.com/varekai/pagepilot/internal/action"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonBlockRegex strips an optional markdown code fence around the object.
var jsonBlockRegex = regexp.MustCompile("(?s)(?:```json\\s*|)(\\{.*\\})(?:```|)")

// Call-like patterns for the fallback path, one per verb. Suffixed names
// such as ClickElement(...) or TaskComplete(...) match too.
var (
	completeCallRegex = regexp.MustCompile(`(?i)\b(?:task_?)?complete\w*\s*\(([^)]*)\)`)
	clickCallRegex    = regexp.MustCompile(`(?i)\bclick\w*\s*\(([^)]*)\)`)
	waitCallRegex     = regexp.MustCompile(`(?i)\bwait\w*\s*\(([^)]*)\)`)
	messageCallRegex  = regexp.MustCompile(`(?i)\b(?:send_?)?message\w*\s*\(([^)]*)\)`)
)

// rawReasoningLimit bounds how much of an unusable model response is carried
// into the synthesized message's rationale for debugging.
const rawReasoningLimit = 500

// Extractor parses model responses into actions. Parsing problems are logged
// and degraded, never surfaced as errors.
type Extractor struct {
	log *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	return &Extractor{log: logger.Named("extractor")}
}

// Extract runs the strategy chain over raw model output. The returned list
// is never empty: when nothing can be parsed, a single message action
// explains the situation and carries a truncated copy of the raw text.
func (e *Extractor) Extract(raw string) []action.Action {
	actions := e.primary(raw)
	if len(actions) == 0 {
		actions = e.fallback(raw)
	}
	if len(actions) == 0 {
		actions = []action.Action{e.synthesize(raw)}
	}
	return actions
}

// envelope is the expected top-level shape of a well-formed response.
type envelope struct {
	Actions []jsoniter.RawMessage `json:"actions"`
}

// primary parses the response as a JSON object with a heterogeneous actions
// array. Individual objects that are malformed, missing their discriminator
// or missing a required field are skipped; only the outer structure failing
// degrades the whole path.
func (e *Extractor) primary(raw string) []action.Action {
	candidate := strings.TrimSpace(raw)
	if m := jsonBlockRegex.FindStringSubmatch(candidate); len(m) > 1 {
		candidate = m[1]
	}

	var env envelope
	if err := json.UnmarshalFromString(candidate, &env); err != nil {
		e.log.Debug("Primary extraction failed to parse outer structure",
			zap.Error(err), zap.String("raw", schemas.TruncateRunes(raw, 200)))
		return nil
	}

	var actions []action.Action
	for i, obj := range env.Actions {
		a, err := action.Unmarshal(obj)
		if err != nil {
			e.log.Warn("Skipping unusable action object",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := a.Validate(); err != nil {
			e.log.Warn("Skipping structurally invalid action",
				zap.Int("index", i), zap.String("action_type", string(a.ActionType())), zap.Error(err))
			continue
		}
		actions = append(actions, a)
	}
	return actions
}

type callMatch struct {
	pos    int
	parsed action.Action
}

// fallback scans the raw text for call-like verb patterns, taking the first
// match per verb. A complete match always wins outright: finishing the task
// supersedes any other action in the same turn.
func (e *Extractor) fallback(raw string) []action.Action {
	if m := completeCallRegex.FindStringSubmatch(raw); m != nil {
		if a := (&action.Complete{Summary: trimArg(m[1])}); a.Validate() == nil {
			e.log.Info("Fallback extraction found terminal complete call")
			return []action.Action{a}
		}
	}

	var matches []callMatch
	if loc := clickCallRegex.FindStringSubmatchIndex(raw); loc != nil {
		a := &action.Click{Selector: trimArg(raw[loc[2]:loc[3]])}
		if a.Validate() == nil {
			matches = append(matches, callMatch{pos: loc[0], parsed: a})
		}
	}
	if loc := waitCallRegex.FindStringSubmatchIndex(raw); loc != nil {
		if secs, err := strconv.Atoi(trimArg(raw[loc[2]:loc[3]])); err == nil {
			a := &action.Wait{Duration: secs}
			if a.Validate() == nil {
				matches = append(matches, callMatch{pos: loc[0], parsed: a})
			}
		}
	}
	if loc := messageCallRegex.FindStringSubmatchIndex(raw); loc != nil {
		a := &action.Message{Text: trimArg(raw[loc[2]:loc[3]])}
		if a.Validate() == nil {
			matches = append(matches, callMatch{pos: loc[0], parsed: a})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	actions := make([]action.Action, 0, len(matches))
	for _, m := range matches {
		actions = append(actions, m.parsed)
	}
	if len(actions) > 0 {
		e.log.Info("Fallback extraction recovered actions from free text",
			zap.Int("count", len(actions)))
	}
	return actions
}

// synthesize builds the guaranteed-progress message action for responses
// that yielded nothing on either path.
func (e *Extractor) synthesize(raw string) action.Action {
	e.log.Warn("Model output produced no usable actions, synthesizing message",
		zap.String("raw", schemas.TruncateRunes(raw, 200)))
	msg := &action.Message{
		Text: "The model response contained no recognizable actions. Waiting for the next page state.",
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		msg.Reasoning = "model returned an empty response"
	} else {
		msg.Reasoning = "unparseable model output: " + schemas.TruncateRunes(trimmed, rawReasoningLimit)
	}
	return msg
}

// trimArg strips whitespace and surrounding quotes from a captured call
// argument.
func trimArg(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	return strings.TrimSpace(s)
}
