package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantKind    Kind
		wantContent string
	}{
		{
			name:     "selection event",
			raw:      `{"type":"selection","start":3,"end":9}`,
			wantKind: KindSelection,
		},
		{
			name:     "selection clear event",
			raw:      `{"type":"selection_clear"}`,
			wantKind: KindSelection,
		},
		{
			name:        "json with content field",
			raw:         `{"content":"hello world"}`,
			wantKind:    KindContent,
			wantContent: "hello world",
		},
		{
			name:        "json with unrecognized type falls back to content field",
			raw:         `{"type":"update","content":"new text"}`,
			wantKind:    KindContent,
			wantContent: "new text",
		},
		{
			name:        "json object without content field is raw content",
			raw:         `{"foo":"bar"}`,
			wantKind:    KindContent,
			wantContent: `{"foo":"bar"}`,
		},
		{
			name:        "plain text is content",
			raw:         "plain text edit",
			wantKind:    KindContent,
			wantContent: "plain text edit",
		},
		{
			name:        "json scalar is content",
			raw:         `42`,
			wantKind:    KindContent,
			wantContent: "42",
		},
		{
			name:        "json null is content",
			raw:         `null`,
			wantKind:    KindContent,
			wantContent: "null",
		},
		{
			name:        "empty payload is empty content",
			raw:         "",
			wantKind:    KindContent,
			wantContent: "",
		},
		{
			name:        "non-string content field is raw content",
			raw:         `{"content":7}`,
			wantKind:    KindContent,
			wantContent: `{"content":7}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Classify([]byte(tt.raw))
			assert.Equal(t, tt.wantKind, msg.Kind)
			if tt.wantKind == KindContent {
				assert.Equal(t, tt.wantContent, msg.Content)
			} else {
				assert.NotNil(t, msg.Fields)
			}
		})
	}
}

func TestContentNotice(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(ContentNotice("hello"), &decoded))

	assert.Equal(t, "content", decoded["type"])
	assert.Equal(t, "hello", decoded["content"])
}

func TestUsersNotice(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(UsersNotice(3), &decoded))

	assert.Equal(t, "users", decoded["type"])
	assert.Equal(t, float64(3), decoded["count"])
}

func TestSelectionRelayInjectsUserID(t *testing.T) {
	msg := Classify([]byte(`{"type":"selection","start":1,"end":5}`))
	require.Equal(t, KindSelection, msg.Kind)

	relay := SelectionRelay(msg.Fields, "client-42")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(relay, &decoded))
	assert.Equal(t, "selection", decoded["type"])
	assert.Equal(t, "client-42", decoded["userId"])
	assert.Equal(t, float64(1), decoded["start"])
	assert.Equal(t, float64(5), decoded["end"])
}
