package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/xiaoyuanzhu-com/claudechat/export"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	groupStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	metaStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// wrapWidth is the word-wrap column for rendered Markdown
func wrapWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n - 4
	}
	return 96
}

// markdown renders md for the terminal. Rendering failures and --raw fall
// back to the source text.
func (e *env) markdown(w io.Writer, md string) {
	if e.raw {
		fmt.Fprintln(w, strings.TrimRight(md, "\n"))
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth()),
	)
	if err == nil {
		if out, rerr := r.Render(md); rerr == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprintln(w, strings.TrimRight(md, "\n"))
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	return export.JSON(w, v)
}

func conversationLine(c history.Conversation) string {
	key := c.SessionID
	if key == "" {
		key = strconv.Itoa(c.ID)
	}
	meta := fmt.Sprintf("%d msgs · %s · %s", c.MessageCount, c.LastUpdated, key)
	return fmt.Sprintf("  %s %s  %s",
		metaStyle.Render(fmt.Sprintf("#%-3d", c.ID)),
		titleStyle.Render(c.Title),
		metaStyle.Render(meta))
}

func taskLine(t models.Task) string {
	mark := "[ ]"
	switch t.Status {
	case models.StatusCompleted:
		mark = successStyle.Render("[x]")
	case models.StatusInProgress:
		mark = warnStyle.Render("[~]")
	}
	return fmt.Sprintf("  %s %s %s %s",
		metaStyle.Render(t.ID+"."),
		mark,
		t.Content,
		metaStyle.Render("("+t.Priority+")"))
}
