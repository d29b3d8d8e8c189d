package chat

import (
	"encoding/json"
	"strings"
)

// Normalize maps an inbound message to its canonical form. It reports false
// when the message carries no text after trimming; callers must skip those.
func Normalize(raw RawMessage) (Message, bool) {
	text := contentText(raw.Content)
	if text == "" {
		text = raw.Text
	}
	if text == "" {
		text = raw.Message
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, false
	}

	role := raw.Role
	if role == "" {
		role = RoleUser
	}
	return Message{Role: role, Text: text}, true
}

// NormalizeAll converts a batch of raw messages, dropping empty ones.
func NormalizeAll(raw []RawMessage) []Message {
	messages := make([]Message, 0, len(raw))
	for _, r := range raw {
		if msg, ok := Normalize(r); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// contentText extracts text from a content field that is either a plain
// string or an array of parts, where each part is a string or an object
// carrying a text field. Parts are joined with single spaces.
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	pieces := make([]string, 0, len(parts))
	for _, part := range parts {
		var plain string
		if err := json.Unmarshal(part, &plain); err == nil {
			if plain != "" {
				pieces = append(pieces, plain)
			}
			continue
		}
		var obj struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &obj); err == nil && obj.Text != "" {
			pieces = append(pieces, obj.Text)
		}
	}
	return strings.Join(pieces, " ")
}
