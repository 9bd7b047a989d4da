package server

import (
	"github.com/emucore/debugwire/pkg/protocol"
)

// Request represents one decoded client message on its way through a
// handler. It is constructed per message, consumed by exactly one handler
// lookup, and dead once the handler returns.
type Request struct {
	// Event is the non-empty event name the client sent.
	Event string

	// Payload is the full decoded message, read-only.
	Payload protocol.Message

	session   *Session
	ticketRaw string

	responded bool
	deferred  bool
}

func newRequest(event string, s *Session, msg protocol.Message) *Request {
	return &Request{
		Event:     event,
		Payload:   msg,
		session:   s,
		ticketRaw: msg.Ticket(),
	}
}

// Session returns the originating session, for replies and broadcasts.
func (r *Request) Session() *Session {
	return r.session
}

// Respond sends a response event named after the request, with the
// request's ticket echoed back.
func (r *Request) Respond(fields map[string]any) {
	r.RespondEvent(r.Event, fields)
}

// RespondEvent sends a response under a different event name, still
// carrying the request's ticket. Used by operations whose answer arrives
// under a status event rather than the request name.
func (r *Request) RespondEvent(name string, fields map[string]any) {
	out, err := protocol.EncodeEvent(name, fields)
	if err != nil {
		r.session.logger.Error("encode response failed", "event", name, "error", err)
		r.Fail("Internal error: could not encode response")
		return
	}
	r.responded = true
	r.session.Send(protocol.WithTicket(out, r.ticketRaw))
}

// Fail sends an error event of level ERROR with the request's ticket
// echoed back.
func (r *Request) Fail(message string) {
	r.FailLevel(message, protocol.LevelError)
}

// FailLevel sends an error event with an explicit severity.
func (r *Request) FailLevel(message string, level protocol.Level) {
	r.responded = true
	r.session.Send(protocol.ErrorEventTicket(message, level, r.ticketRaw))
}

// Defer marks the request as not yet finished: the handler kicked off
// something whose result will be announced later (typically by a
// broadcaster). The session answers by entering its high-activity polling
// window so the follow-up is noticed quickly.
func (r *Request) Defer() {
	r.deferred = true
}

// pending reports whether the handler left the request unfinished.
func (r *Request) pending() bool {
	return r.deferred && !r.responded
}
