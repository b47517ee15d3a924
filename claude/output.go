package claude

import (
	"regexp"
	"strings"
)

var (
	conversationRe = regexp.MustCompile(`Conversation:\s+([\w-]+)`)
	headerRe       = regexp.MustCompile(`(?s)^.*?Conversation:\s+[\w-]+.*?\n\n(.*)$`)
	markerLineRe   = regexp.MustCompile(`(?m)^.*Conversation:\s+[\w-]+.*(?:\n|$)`)
)

// Reply is a parsed CLI response.
type Reply struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ParseOutput separates the reply text from the CLI's conversation header.
// The conversation id is only read when starting a new conversation.
func ParseOutput(output string, continuing bool) Reply {
	var reply Reply
	if !continuing {
		if m := conversationRe.FindStringSubmatch(output); m != nil {
			reply.ConversationID = m[1]
		}
	}

	text := output
	if m := headerRe.FindStringSubmatch(output); m != nil {
		text = m[1]
	} else {
		text = markerLineRe.ReplaceAllString(output, "")
	}
	reply.Text = strings.TrimSpace(text)
	return reply
}

// streamFilter drops the conversation header from streamed output. A header
// is only expected when the first line carries the conversation marker, and
// it ends at the first blank line.
type streamFilter struct {
	decided  bool
	inHeader bool
}

func (f *streamFilter) feed(line string) (string, bool) {
	if !f.decided {
		f.decided = true
		f.inHeader = conversationRe.MatchString(line)
	}
	if f.inHeader {
		if strings.TrimSpace(line) == "" {
			f.inHeader = false
		}
		return "", false
	}
	if conversationRe.MatchString(line) {
		return "", false
	}
	return line, true
}
