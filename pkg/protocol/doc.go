// Package protocol implements the JSON wire contract of the debugwire
// debugger protocol.
//
// Every message in either direction is a single JSON object. Messages from
// the client name the operation they want in an "event" field:
//
//	{ "event": "NAME", ... }
//
// and fall into two broad categories:
//
//   - Requests from the debugger client. If there's a response, it generally
//     uses the same event name. It may not be immediate - it's an event.
//   - Spontaneous events from the host: log lines, stepping changes, game
//     lifecycle, not directly requested.
//
// When the server can't understand a message, or an operation fails, it
// answers with an error event:
//
//   - "event": "error"
//   - "message": a string describing what happened
//   - "level": integer severity (1 = NOTICE, 2 = ERROR, 3 = WARN,
//     4 = INFO, 5 = DEBUG, 6 = VERBOSE)
//   - "ticket": optional; present if the offending message carried a
//     "ticket" field, echoing that value unchanged
//
// Clients may attach a "ticket" field of any JSON type to a request and
// will find the identical value on the matching response, which is the
// only correlation mechanism the protocol offers.
//
// At connection start, a client should send a "version" event first.
//
// Inbound messages are parsed into a read-only tree (Message) backed by
// gjson; the server never mutates a client payload.
package protocol
