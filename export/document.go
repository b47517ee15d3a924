package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Markdown renders a conversation as a Markdown document.
func Markdown(c history.Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Title)
	if c.Timestamp != "" {
		fmt.Fprintf(&b, "_%s", c.Timestamp)
		if c.LastUpdated != "" && c.LastUpdated != c.Timestamp {
			fmt.Fprintf(&b, " → %s", c.LastUpdated)
		}
		b.WriteString("_\n\n")
	}
	for _, m := range c.Messages {
		b.WriteString(MessageMarkdown(m))
	}
	return b.String()
}

// MessageMarkdown renders one message under a role heading.
func MessageMarkdown(m models.Message) string {
	label := "Você"
	if m.Role == models.RoleAssistant {
		label = "Claude"
	}
	return fmt.Sprintf("### %s\n\n%s\n\n", label, strings.TrimSpace(m.Content))
}
