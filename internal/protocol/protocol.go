package protocol

import "encoding/json"

// Kind classifies one inbound frame.
type Kind int

const (
	// A document content update (persisted, relayed to all-but-sender)
	KindContent Kind = iota

	// A cursor/selection presence event (relay-only, never persisted)
	KindSelection
)

// Wire type tags
const (
	TypeContent        = "content"
	TypeUsers          = "users"
	TypeSelection      = "selection"
	TypeSelectionClear = "selection_clear"
)

// Message is the result of classifying one inbound frame.
type Message struct {
	Kind Kind

	// Fields holds the decoded JSON object for selection events.
	Fields map[string]interface{}

	// Content holds the document text for content updates.
	Content string
}

// Classify decides what an inbound frame is, evaluated once per message.
// A JSON object tagged selection/selection_clear is a selection event.
// Everything else is a content update: the `content` field when the frame
// is a JSON object carrying one, otherwise the raw text as-is. A frame
// that fails to parse as JSON is plain text content, not an error.
func Classify(raw []byte) Message {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Message{Kind: KindContent, Content: string(raw)}
	}

	if t, ok := fields["type"].(string); ok && (t == TypeSelection || t == TypeSelectionClear) {
		return Message{Kind: KindSelection, Fields: fields}
	}

	if content, ok := fields["content"].(string); ok {
		return Message{Kind: KindContent, Content: content}
	}

	return Message{Kind: KindContent, Content: string(raw)}
}

type contentNotice struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type usersNotice struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// ContentNotice encodes the normalized content frame sent to room members.
func ContentNotice(content string) []byte {
	b, _ := json.Marshal(contentNotice{Type: TypeContent, Content: content})
	return b
}

// UsersNotice encodes the live member count frame.
func UsersNotice(count int) []byte {
	b, _ := json.Marshal(usersNotice{Type: TypeUsers, Count: count})
	return b
}

// SelectionRelay re-serializes a selection event with the sender's client
// id injected, so receivers can attribute the cursor.
func SelectionRelay(fields map[string]interface{}, clientID string) []byte {
	fields["userId"] = clientID
	b, _ := json.Marshal(fields)
	return b
}
