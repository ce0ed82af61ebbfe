package action

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	cases := []struct {
		name   string
		action Action
	}{
		{"click", &Click{Meta: Meta{CreatedAt: now, Reasoning: "login button"}, Selector: "#login"}},
		{"wait", &Wait{Meta: Meta{CreatedAt: now}, Duration: 0}},
		{"message", &Message{Meta: Meta{CreatedAt: now, Reasoning: "status"}, Text: "halfway there"}},
		{"complete", &Complete{Meta: Meta{CreatedAt: now}, Summary: "checkout finished"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.action)
			require.NoError(t, err)

			decoded, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, tc.action, decoded)
			assert.Equal(t, tc.action.ActionType(), decoded.ActionType())
		})
	}
}

func TestUnmarshalDiscriminator(t *testing.T) {
	t.Run("missing action_type", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"selector":"#a"}`))
		assert.ErrorIs(t, err, ErrMissingType)
	})

	t.Run("unknown action_type", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"action_type":"teleport"}`))
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"action_type":`))
		assert.Error(t, err)
	})
}

func TestUnmarshalRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"click without selector", `{"action_type":"click","reasoning":"r"}`},
		{"wait without duration", `{"action_type":"wait"}`},
		{"message without text", `{"action_type":"message"}`},
		{"complete without summary", `{"action_type":"complete"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tc.payload))
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}

	t.Run("explicit zero duration is present, not missing", func(t *testing.T) {
		a, err := Unmarshal([]byte(`{"action_type":"wait","duration":0}`))
		require.NoError(t, err)
		assert.Equal(t, 0, a.(*Wait).Duration)
		assert.NoError(t, a.Validate())
	})
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		action Action
		ok     bool
	}{
		{"valid click", &Click{Selector: "#btn"}, true},
		{"empty selector", &Click{}, false},
		{"overlong selector", &Click{Selector: strings.Repeat("a", MaxSelectorLength+1)}, false},
		{"selector at cap", &Click{Selector: strings.Repeat("a", MaxSelectorLength)}, true},
		{"wait lower bound", &Wait{Duration: 0}, true},
		{"wait upper bound", &Wait{Duration: MaxWaitSeconds}, true},
		{"wait negative", &Wait{Duration: -1}, false},
		{"wait too long", &Wait{Duration: MaxWaitSeconds + 1}, false},
		{"valid message", &Message{Text: "hi"}, true},
		{"empty message", &Message{}, false},
		{"overlong message", &Message{Text: strings.Repeat("m", MaxTextLength+1)}, false},
		{"valid complete", &Complete{Summary: "done"}, true},
		{"empty complete", &Complete{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.action.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStampAndAccessors(t *testing.T) {
	a := &Click{Selector: "#x"}
	now := time.Now().UTC()
	a.Stamp(now)
	assert.Equal(t, now, a.Created())
	assert.Empty(t, a.Rationale())
}

func TestRecordDescribe(t *testing.T) {
	r := Record{Type: TypeClick, Detail: "#submit", Reasoning: "form filled"}
	assert.Equal(t, `clicked element "#submit" (reasoning: form filled)`, r.Describe())

	r = Record{Type: TypeWait, Detail: "5"}
	assert.Equal(t, "waited 5 seconds", r.Describe())
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "#a", Detail(&Click{Selector: "#a"}))
	assert.Equal(t, "7", Detail(&Wait{Duration: 7}))
	assert.Equal(t, "hello", Detail(&Message{Text: "hello"}))
	assert.Equal(t, "done", Detail(&Complete{Summary: "done"}))
}
