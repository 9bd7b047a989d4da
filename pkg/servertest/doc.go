// Package servertest provides testing helpers for debugwire subscribers
// and broadcasters.
//
// A Harness runs a real session loop over an in-memory transport, so a
// test can play the debugger client without a websocket:
//
//	func TestVersion(t *testing.T) {
//	    reg := server.NewRegistry().Subscribe(&game.Subscriber{...})
//	    h := servertest.New(t, reg)
//	    defer h.Close()
//
//	    h.Send(`{"event":"version","ticket":1}`)
//	    resp := h.Expect(t, "version")
//	    if resp.Get("name").String() == "" {
//	        t.Error("version response missing name")
//	    }
//	}
package servertest
