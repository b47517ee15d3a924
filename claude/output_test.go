package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		continuing bool
		wantText   string
		wantID     string
	}{
		{"plain reply", "Olá!\n", false, "Olá!", ""},
		{"header then blank line", "Conversation: 123\n\nResposta\ncom linhas\n", false, "Resposta\ncom linhas", "123"},
		{"marker without blank line", "Conversation: 9\nResposta", false, "Resposta", "9"},
		{"continuing ignores id", "Conversation: 123\n\nOk", true, "Ok", ""},
		{"uuid ids", "Conversation: 4f1c-aa\n\nOk", false, "Ok", "4f1c-aa"},
		{"whitespace trimmed", "\n\n  hi  \n", false, "hi", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseOutput(tt.output, tt.continuing)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantID, got.ConversationID)
		})
	}
}

func TestArgs(t *testing.T) {
	assert.Equal(t, []string{"-p", "oi"}, Args("oi", false))
	assert.Equal(t, []string{"-c", "-p", "oi"}, Args("oi", true))
}
