package models

import (
	"encoding/json"
	"testing"
)

func TestRecordRoleFallback(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"message role wins", `{"type":"assistant","message":{"role":"user","content":"hi"}}`, "user"},
		{"falls back to type", `{"type":"assistant","message":{"content":"hi"}}`, "assistant"},
		{"no message", `{"type":"summary"}`, "summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := json.Unmarshal([]byte(tt.line), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := r.Role(); got != tt.want {
				t.Errorf("Role() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordText(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"string content", `{"type":"user","message":{"role":"user","content":"olá"}}`, "olá"},
		{
			"text blocks concatenated in order",
			`{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"a"},{"type":"tool_use","id":"t1","name":"Bash"},{"type":"text","text":"b"}]}}`,
			"ab",
		},
		{"only tool blocks", `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"x"}]}}`, ""},
		{"no message", `{"type":"user"}`, ""},
		{"numeric content", `{"type":"user","message":{"role":"user","content":42}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := json.Unmarshal([]byte(tt.line), &r); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := r.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordSidechainAndTime(t *testing.T) {
	var r Record
	line := `{"type":"user","isSidechain":true,"timestamp":"2025-01-02T03:04:05.123Z","message":{"role":"user","content":"x"}}`
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.Sidechain() {
		t.Error("expected sidechain record")
	}
	ts, ok := r.Time()
	if !ok || ts.Year() != 2025 || ts.Nanosecond() != 123000000 {
		t.Errorf("Time() = %v, %v", ts, ok)
	}

	r.Timestamp = "not a time"
	if _, ok := r.Time(); ok {
		t.Error("expected malformed timestamp to be rejected")
	}
}

func TestNewTextMessageRoundTrip(t *testing.T) {
	r := Record{BaseMessage: BaseMessage{Type: TypeUser}, Message: NewTextMessage("user", "linha \"um\"")}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Text() != "linha \"um\"" || !back.ContentIsString() {
		t.Errorf("round trip lost content: %s", data)
	}
}

func TestTimestampAcceptsEpochNumbers(t *testing.T) {
	tests := []struct {
		line string
		want Timestamp
	}{
		{`{"type":"user","timestamp":"2025-01-01T00:00:00Z"}`, "2025-01-01T00:00:00Z"},
		{`{"type":"user","timestamp":1735689600}`, "2025-01-01T00:00:00Z"},
		{`{"type":"user","timestamp":1735689600000}`, "2025-01-01T00:00:00Z"},
		{`{"type":"user","timestamp":null}`, ""},
		{`{"type":"user","timestamp":[1]}`, ""},
	}
	for _, tt := range tests {
		var r Record
		if err := json.Unmarshal([]byte(tt.line), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.line, err)
		}
		if r.Timestamp != tt.want {
			t.Errorf("%s: Timestamp = %q, want %q", tt.line, r.Timestamp, tt.want)
		}
	}
}
