package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xiaoyuanzhu-com/claudechat/claude/models"
	domain "github.com/xiaoyuanzhu-com/claudechat/models"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/utils"
)

// Title rules
const (
	MaxTitleRunes = 50
	MinTitleRunes = 3
	UntitledTitle = "Nova Conversa"   // first line too short
	NonTextTitle  = "Conversa Claude" // first record has no plain-text content
)

var (
	userTypeMarker    = []byte(`"type":"user"`)
	userRoleMarker    = []byte(`"role":"user"`)
	customTitleMarker = []byte(`"type":"custom-title"`)
)

// ReadAll returns every parseable record of the session's transcript.
// Malformed lines are skipped with a warning.
func (s *Store) ReadAll(sessionID string) ([]models.Record, error) {
	path, err := s.Locate(sessionID)
	if err != nil {
		return nil, err
	}
	return ReadFile(path)
}

// Messages returns the session's normalized conversation.
func (s *Store) Messages(sessionID string) ([]domain.Message, error) {
	records, err := s.ReadAll(sessionID)
	if err != nil {
		return nil, err
	}
	return Normalize(records), nil
}

// ReadFile parses a transcript file line by line.
func ReadFile(path string) ([]models.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer file.Close()

	var records []models.Record
	err = eachLine(file, func(lineNum int, line []byte) {
		if rec, ok := parseLine(line, lineNum, path); ok {
			records = append(records, rec)
		}
	})
	return records, err
}

// Normalize reduces raw records to user/assistant turns: sidechain records and
// records without a message are skipped, the role comes from message.role or
// the record type, and records with an unknown role or empty text are dropped.
func Normalize(records []models.Record) []domain.Message {
	messages := make([]domain.Message, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.Sidechain() || rec.Message == nil {
			continue
		}
		role := rec.Role()
		if !domain.ValidRole(role) {
			continue
		}
		text := rec.Text()
		if text == "" {
			continue
		}
		messages = append(messages, domain.Message{
			Role:      role,
			Content:   text,
			Timestamp: string(rec.Timestamp),
		})
	}
	return messages
}

// Summary is what discovery needs from a transcript without parsing every line.
type Summary struct {
	First       *models.Record // first parseable record
	Last        *models.Record // last parseable record
	CustomTitle string         // latest explicit rename, if any
	UserLines   int            // lines that look like user records
}

// Summarize scans a transcript once. Only the first line, the trailing lines,
// and rename records are decoded. UserLines is a substring count over raw
// lines and may include tool results.
func Summarize(path string) (Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer file.Close()

	var sum Summary
	// Keep the two newest lines so a torn final write still leaves a valid tail
	var tail [2][]byte
	var tailNums [2]int

	err = eachLine(file, func(lineNum int, line []byte) {
		if bytes.Contains(line, userTypeMarker) || bytes.Contains(line, userRoleMarker) {
			sum.UserLines++
		}
		if sum.First == nil {
			if rec, ok := parseLine(line, lineNum, path); ok {
				sum.First = &rec
			}
		}
		if bytes.Contains(line, customTitleMarker) {
			if rec, ok := parseLine(line, lineNum, path); ok && rec.CustomTitle != "" {
				sum.CustomTitle = rec.CustomTitle
			}
		}
		tail[0], tailNums[0] = tail[1], tailNums[1]
		tail[1], tailNums[1] = append([]byte(nil), line...), lineNum
	})
	if err != nil {
		return sum, err
	}

	for i := len(tail) - 1; i >= 0; i-- {
		if tail[i] == nil {
			continue
		}
		var rec models.Record
		if json.Unmarshal(tail[i], &rec) == nil {
			sum.Last = &rec
			break
		}
	}
	if sum.Last == nil {
		sum.Last = sum.First
	}
	return sum, nil
}

// DeriveTitle turns message content into a session title: the first line,
// cut to MaxTitleRunes, or UntitledTitle when shorter than MinTitleRunes.
func DeriveTitle(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < MinTitleRunes {
		return UntitledTitle
	}
	return utils.TruncateRunes(line, MaxTitleRunes)
}

// TitleFromRecord applies the title rule to a transcript's first record.
func TitleFromRecord(rec *models.Record) string {
	if rec == nil {
		return NonTextTitle
	}
	if rec.Type == models.TypeCustomTitle && rec.CustomTitle != "" {
		return rec.CustomTitle
	}
	if !rec.ContentIsString() {
		return NonTextTitle
	}
	return DeriveTitle(rec.Text())
}

// eachLine calls fn for every non-blank line. ReadBytes has no line length
// limit, unlike bufio.Scanner.
func eachLine(r io.Reader, fn func(lineNum int, line []byte)) error {
	reader := bufio.NewReader(r)
	lineNum := 0
	for {
		lineNum++
		line, err := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			fn(lineNum, trimmed)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("error reading transcript: %w", err)
		}
	}
}

func parseLine(line []byte, lineNum int, path string) (models.Record, bool) {
	var rec models.Record
	if err := json.Unmarshal(line, &rec); err != nil {
		log.Warn().
			Err(err).
			Int("line", lineNum).
			Str("file", path).
			Msg("skipping malformed transcript line")
		return rec, false
	}
	return rec, true
}
