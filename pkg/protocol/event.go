package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// EncodeEvent builds an outbound event object. Fields must be JSON
// encodable; the "event" name always wins over a same-named field.
func EncodeEvent(name string, fields map[string]any) ([]byte, error) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["event"] = name
	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %q: %w", name, err)
	}
	return out, nil
}

// ErrorEvent builds the wire form of an "error" notification with no
// correlation ticket.
func ErrorEvent(message string, level Level) []byte {
	out, err := json.Marshal(struct {
		Event   string `json:"event"`
		Message string `json:"message"`
		Level   int    `json:"level"`
	}{Event: "error", Message: message, Level: int(level)})
	if err != nil {
		// Marshaling a flat struct of strings and ints cannot fail.
		panic(err)
	}
	return out
}

// ErrorEventTicket builds an "error" notification echoing the raw ticket
// value from the offending request. ticketRaw is the ticket's original
// JSON text as returned by Message.Ticket; an empty string means no
// ticket and produces the same output as ErrorEvent.
func ErrorEventTicket(message string, level Level, ticketRaw string) []byte {
	return WithTicket(ErrorEvent(message, level), ticketRaw)
}

// WithTicket injects a raw ticket value into an already-encoded event.
// A malformed ticket is dropped rather than corrupting the event.
func WithTicket(event []byte, ticketRaw string) []byte {
	if ticketRaw == "" {
		return event
	}
	out, err := sjson.SetRawBytes(event, "ticket", []byte(ticketRaw))
	if err != nil {
		return event
	}
	return out
}
