package protocol

import (
	"errors"

	"github.com/tidwall/gjson"
)

// Sentinel errors for inbound message parsing.
var (
	// ErrInvalidJSON is returned when an inbound message is not valid JSON.
	ErrInvalidJSON = errors.New("protocol: invalid JSON")

	// ErrNotObject is returned when an inbound message is valid JSON but
	// not a JSON object.
	ErrNotObject = errors.New("protocol: message is not an object")
)

// Message is one decoded inbound client message: a read-only JSON tree
// with query-by-key access. The zero value is an empty message.
type Message struct {
	root gjson.Result
}

// ParseMessage validates and decodes one inbound text message.
func ParseMessage(data []byte) (Message, error) {
	if !gjson.ValidBytes(data) {
		return Message{}, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Message{root: root}, ErrNotObject
	}
	return Message{root: root}, nil
}

// Event returns the message's "event" field, or "" when the field is
// absent or not a string.
func (m Message) Event() string {
	ev := m.root.Get("event")
	if ev.Type != gjson.String {
		return ""
	}
	return ev.String()
}

// Get returns the value at a gjson path within the message.
func (m Message) Get(path string) gjson.Result {
	return m.root.Get(path)
}

// Ticket returns the raw JSON of the message's "ticket" field, or ""
// when no ticket was supplied. Tickets are echoed byte-for-byte, so the
// raw form is the canonical one.
func (m Message) Ticket() string {
	t := m.root.Get("ticket")
	if !t.Exists() {
		return ""
	}
	return t.Raw
}

// Raw returns the original JSON text of the message.
func (m Message) Raw() string {
	return m.root.Raw
}
