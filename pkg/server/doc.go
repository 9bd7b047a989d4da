// Package server implements the session lifecycle and event-dispatch core
// of the debugwire debugger protocol.
//
// Any number of debugger clients may connect to an instrumented host
// process at once. Each connection gets a Session running a single
// cooperative loop: receive at most one message with a timeout, dispatch
// it to the handler a Subscriber registered for its event name, then give
// every Broadcaster a chance to push unsolicited notifications. The poll
// timeout adapts: after a handler defers a request the loop tightens to
// the active interval for a fixed window of ticks, then relaxes again.
//
// Host start/stop transitions are serialized against debugger activity by
// the Coordinator's lifecycle guard, a single lock shared by all
// sessions. The host acquires it when a transition begins (StageStarting,
// StageStopping) and releases it when the transition ends
// (StageStartComplete, StageStopped); sessions hold it around subscriber
// init, handler dispatch, broadcast fan-out, and subscriber shutdown. The
// host-side hold deliberately spans two callbacks and is not scoped to
// any single function.
//
// The Coordinator also counts live sessions. StopAll sets a cooperative
// stop flag, which every session observes once per tick and answers by
// closing itself; StopAll returns once the count drains to zero.
package server
