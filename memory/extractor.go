package memory

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/xiaoyuanzhu-com/claudechat/models"
)

// Extractor pulls user memory out of free text and turns memory back into a
// prompt prefix. Implementations are language specific.
type Extractor interface {
	ExtractName(text string) (string, bool)
	ExtractPreferences(text string) map[string]string
	BuildContext(info models.UserInfo) string
	WrapPrompt(context, prompt string) string
}

// PreferencePattern captures one preference. A pattern with two groups takes
// the category from the first and the value from the second; a pattern with
// one group uses Category.
type PreferencePattern struct {
	Pattern  *regexp.Regexp
	Category string
}

// Locale is an ordered set of patterns plus the phrasing used for context.
type Locale struct {
	Name string

	// Tried before NamePatterns so an explicit rename wins over a first mention.
	RenamePatterns []*regexp.Regexp
	NamePatterns   []*regexp.Regexp

	// Preference patterns only run when the text contains one of these.
	PreferenceTriggers []string
	PreferencePatterns []PreferencePattern

	NameSentence     string // fmt pattern taking the name
	PreferencesLabel string
	PromptTemplate   string // fmt pattern taking context and prompt
}

// PatternExtractor implements Extractor with regular expressions.
type PatternExtractor struct {
	locale Locale
}

var _ Extractor = (*PatternExtractor)(nil)

// New creates an extractor for locale.
func New(locale Locale) *PatternExtractor {
	return &PatternExtractor{locale: locale}
}

// ForLocale returns the extractor for a locale name, defaulting to Portuguese.
func ForLocale(name string) *PatternExtractor {
	switch strings.ToLower(name) {
	case "en", "en-us", "en_us", "english":
		return New(English())
	default:
		return New(Portuguese())
	}
}

// Locale returns the extractor's configuration.
func (e *PatternExtractor) Locale() Locale {
	return e.locale
}

// ExtractName returns the name the user gave, preserving its original case.
// Matching is case-insensitive and the first matching pattern wins.
func (e *PatternExtractor) ExtractName(text string) (string, bool) {
	for _, group := range [][]*regexp.Regexp{e.locale.RenamePatterns, e.locale.NamePatterns} {
		for _, re := range group {
			m := re.FindStringSubmatchIndex(text)
			if m == nil || len(m) < 4 || m[2] < 0 {
				continue
			}
			return text[m[2]:m[3]], true
		}
	}
	return "", false
}

// ExtractPreferences returns category to value pairs found in text.
func (e *PatternExtractor) ExtractPreferences(text string) map[string]string {
	lower := strings.ToLower(text)
	triggered := false
	for _, t := range e.locale.PreferenceTriggers {
		if strings.Contains(lower, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil
	}

	prefs := make(map[string]string)
	for _, p := range e.locale.PreferencePatterns {
		m := p.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		category, value := p.Category, ""
		switch len(m) {
		case 2:
			value = m[1]
		case 3:
			category, value = strings.ToLower(m[1]), m[2]
		default:
			continue
		}
		value = strings.Join(strings.Fields(value), " ")
		if category == "" || value == "" {
			continue
		}
		if _, exists := prefs[category]; !exists {
			prefs[category] = value
		}
	}
	if len(prefs) == 0 {
		return nil
	}
	return prefs
}

// BuildContext renders memory as sentences: the name, then free-form context
// entries, then preferences. Map entries are emitted in key order.
func (e *PatternExtractor) BuildContext(info models.UserInfo) string {
	var parts []string
	if name := info.Name(); name != "" {
		parts = append(parts, fmt.Sprintf(e.locale.NameSentence, name))
	}
	for _, k := range sortedKeys(info.Context) {
		parts = append(parts, fmt.Sprintf("%s: %v.", k, info.Context[k]))
	}
	if len(info.Preferences) > 0 {
		prefs := make([]string, 0, len(info.Preferences))
		for _, k := range sortedKeys(info.Preferences) {
			prefs = append(prefs, fmt.Sprintf("%s: %s", k, info.Preferences[k]))
		}
		parts = append(parts, e.locale.PreferencesLabel+strings.Join(prefs, ", ")+".")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// WrapPrompt prefixes prompt with context. An empty context leaves it unchanged.
func (e *PatternExtractor) WrapPrompt(context, prompt string) string {
	if context == "" {
		return prompt
	}
	return fmt.Sprintf(e.locale.PromptTemplate, context, prompt)
}

// Apply merges whatever text reveals into info and reports whether it changed.
func Apply(x Extractor, info *models.UserInfo, text string) bool {
	changed := false
	if name, ok := x.ExtractName(text); ok && info.Name() != name {
		info.UserName = &name
		changed = true
	}
	for k, v := range x.ExtractPreferences(text) {
		if info.Preferences == nil {
			info.Preferences = map[string]string{}
		}
		if info.Preferences[k] != v {
			info.Preferences[k] = v
			changed = true
		}
	}
	return changed
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
