package protocol

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/gjson"
)

func TestErrorEvent_Shape(t *testing.T) {
	out := ErrorEvent("Bad message: invalid JSON", LevelError)
	if !gjson.ValidBytes(out) {
		t.Fatalf("ErrorEvent produced invalid JSON: %s", out)
	}
	root := gjson.ParseBytes(out)
	if got := root.Get("event").String(); got != "error" {
		t.Errorf("event = %q, want %q", got, "error")
	}
	if got := root.Get("message").String(); got != "Bad message: invalid JSON" {
		t.Errorf("message = %q", got)
	}
	if got := root.Get("level").Int(); got != 2 {
		t.Errorf("level = %d, want 2", got)
	}
	if root.Get("ticket").Exists() {
		t.Error("ticket present on untracked error event")
	}
}

func TestErrorEventTicket_EchoesRawValue(t *testing.T) {
	cases := []string{`"abc"`, `42`, `{"n":1}`, `null`}
	for _, raw := range cases {
		out := ErrorEventTicket("Bad message: unknown event", LevelError, raw)
		got := gjson.GetBytes(out, "ticket").Raw
		if got != raw {
			t.Errorf("ticket raw = %s, want %s", got, raw)
		}
	}
}

func TestErrorEventTicket_EmptyTicketOmitted(t *testing.T) {
	out := ErrorEventTicket("Bad message", LevelError, "")
	if gjson.GetBytes(out, "ticket").Exists() {
		t.Errorf("ticket present: %s", out)
	}
}

func TestEncodeEvent(t *testing.T) {
	out, err := EncodeEvent("version", map[string]any{
		"name":    "debugwire",
		"version": "1.0.0",
	})
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(out, &body); err != nil {
		t.Fatalf("output not JSON: %v", err)
	}
	if body["event"] != "version" || body["name"] != "debugwire" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestEncodeEvent_NameWinsOverField(t *testing.T) {
	out, err := EncodeEvent("log", map[string]any{"event": "spoofed"})
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	if got := gjson.GetBytes(out, "event").String(); got != "log" {
		t.Errorf("event = %q, want %q", got, "log")
	}
}

func TestLevelString(t *testing.T) {
	if LevelNotice.String() != "NOTICE" || LevelVerbose.String() != "VERBOSE" {
		t.Error("level names wrong")
	}
	if Level(99).String() != "UNKNOWN" {
		t.Error("unknown level should stringify as UNKNOWN")
	}
}
