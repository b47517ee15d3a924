package history

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/xiaoyuanzhu-com/claudechat/models"
)

// TimeLayout is the format the cache has always used for timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Conversation is one cached session. Keys the app does not know about are
// kept in Extra and written back unchanged.
type Conversation struct {
	ID           int              `json:"id"`
	Title        string           `json:"title"`
	Timestamp    string           `json:"timestamp"`
	LastUpdated  string           `json:"last_updated"`
	SessionID    string           `json:"session_id,omitempty"`
	ProjectGroup string           `json:"project_group,omitempty"`
	MessageCount int              `json:"message_count,omitempty"`
	Messages     []models.Message `json:"messages"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownKeys = map[string]bool{
	"id": true, "title": true, "timestamp": true, "last_updated": true,
	"session_id": true, "project_group": true, "message_count": true, "messages": true,
}

type conversationAlias Conversation

// UnmarshalJSON decodes known fields and stashes the rest.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var alias conversationAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if knownKeys[k] {
			delete(all, k)
		}
	}
	*c = Conversation(alias)
	if len(all) > 0 {
		c.Extra = all
	} else {
		c.Extra = nil
	}
	return nil
}

// MarshalJSON writes known fields followed by preserved extras.
func (c Conversation) MarshalJSON() ([]byte, error) {
	alias := conversationAlias(c)
	if alias.Messages == nil {
		alias.Messages = []models.Message{}
	}
	base, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		if !knownKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	// base always ends with '}'
	out := append([]byte{}, base[:len(base)-1]...)
	for _, k := range keys {
		name, _ := json.Marshal(k)
		out = append(out, ',')
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, c.Extra[k]...)
	}
	return append(out, '}'), nil
}

// LastUpdatedTime parses LastUpdated; unparseable values sort as oldest.
func (c *Conversation) LastUpdatedTime() time.Time {
	return ParseTime(c.LastUpdated)
}

// Legacy reports whether the entry predates session ids.
func (c *Conversation) Legacy() bool {
	return c.SessionID == ""
}

// Document is the whole history cache file.
type Document struct {
	Conversations []Conversation  `json:"conversations"`
	UserInfo      models.UserInfo `json:"user_info"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Conversations: []Conversation{},
		UserInfo:      models.NewUserInfo(),
	}
}

// Find looks a conversation up by session id, falling back to the numeric
// id for legacy entries. It returns the slice index or -1.
func (d *Document) Find(key string) int {
	if key == "" {
		return -1
	}
	for i := range d.Conversations {
		if d.Conversations[i].SessionID == key {
			return i
		}
	}
	if n, err := strconv.Atoi(key); err == nil {
		for i := range d.Conversations {
			if d.Conversations[i].ID == n {
				return i
			}
		}
	}
	return -1
}

// Get returns a copy of the conversation for key.
func (d *Document) Get(key string) (Conversation, bool) {
	i := d.Find(key)
	if i < 0 {
		return Conversation{}, false
	}
	return d.Conversations[i], true
}

// Remove deletes the conversation for key and reports whether one was found.
func (d *Document) Remove(key string) (Conversation, bool) {
	i := d.Find(key)
	if i < 0 {
		return Conversation{}, false
	}
	removed := d.Conversations[i]
	d.Conversations = append(d.Conversations[:i], d.Conversations[i+1:]...)
	return removed, true
}

// NextID returns one more than the largest id in use.
func (d *Document) NextID() int {
	max := 0
	for _, c := range d.Conversations {
		if c.ID > max {
			max = c.ID
		}
	}
	return max + 1
}

// SortByLastUpdated orders conversations newest first. The sort is stable
// so entries with equal timestamps keep their relative order.
func (d *Document) SortByLastUpdated() {
	sort.SliceStable(d.Conversations, func(i, j int) bool {
		return d.Conversations[i].LastUpdatedTime().After(d.Conversations[j].LastUpdatedTime())
	})
}

// normalize repairs documents written by older versions: nil maps are
// filled, missing ids are assigned, and duplicate session ids are collapsed
// into the most recently updated entry.
func (d *Document) normalize() {
	if d.Conversations == nil {
		d.Conversations = []Conversation{}
	}
	if d.UserInfo.Preferences == nil {
		d.UserInfo.Preferences = map[string]string{}
	}
	if d.UserInfo.Context == nil {
		d.UserInfo.Context = map[string]any{}
	}

	seen := make(map[string]int)
	kept := d.Conversations[:0]
	for _, c := range d.Conversations {
		if c.SessionID != "" {
			if j, ok := seen[c.SessionID]; ok {
				if c.LastUpdatedTime().After(kept[j].LastUpdatedTime()) {
					id := kept[j].ID
					kept[j] = c
					kept[j].ID = id
				}
				continue
			}
			seen[c.SessionID] = len(kept)
		}
		kept = append(kept, c)
	}
	d.Conversations = kept

	usedIDs := make(map[int]bool)
	next := d.NextID()
	for i := range d.Conversations {
		id := d.Conversations[i].ID
		if id <= 0 || usedIDs[id] {
			d.Conversations[i].ID = next
			next++
		}
		usedIDs[d.Conversations[i].ID] = true
	}
}

// FormatTime renders t in the cache's local-time layout.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}

// ParseTime accepts the cache layout as well as RFC 3339 strings.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.ParseInLocation(TimeLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// Python isoformat without zone
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999", s, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
