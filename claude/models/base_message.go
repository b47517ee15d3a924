package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Record types that the chat layer reads or writes.
const (
	TypeUser        = "user"
	TypeAssistant   = "assistant"
	TypeCustomTitle = "custom-title"
)

// BaseMessage contains fields common to all transcript records.
type BaseMessage struct {
	Type       string    `json:"type"`
	UUID       string    `json:"uuid,omitempty"`
	ParentUUID *string   `json:"parentUuid,omitempty"`
	Timestamp  Timestamp `json:"timestamp,omitempty"`
}

// EnvelopeFields contains optional fields that may appear on any record.
type EnvelopeFields struct {
	IsSidechain *bool  `json:"isSidechain,omitempty"`
	UserType    string `json:"userType,omitempty"`
	CWD         string `json:"cwd,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
	Version     string `json:"version,omitempty"`
}

// Sidechain reports whether the record belongs to a sub-agent branch.
func (e EnvelopeFields) Sidechain() bool {
	return e.IsSidechain != nil && *e.IsSidechain
}

// Timestamp is a record time as written by the tool, normally RFC 3339.
// Epoch numbers (seconds or milliseconds) are converted to RFC 3339, and
// any other JSON value decodes as empty so the rest of the record survives.
type Timestamp string

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ts = Timestamp(s)
		return nil
	}
	if n, err := strconv.ParseFloat(string(data), 64); err == nil {
		*ts = Timestamp(epochTime(n).UTC().Format(time.RFC3339Nano))
		return nil
	}
	*ts = ""
	return nil
}

// Values past 1e11 are taken as milliseconds.
func epochTime(n float64) time.Time {
	if n > 1e11 {
		return time.UnixMilli(int64(n))
	}
	sec := int64(n)
	return time.Unix(sec, int64((n-float64(sec))*1e9))
}
