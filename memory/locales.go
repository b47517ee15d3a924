package memory

import "regexp"

// nameChars matches one word of a personal name, accented letters included.
const nameChars = `([A-Za-zÀ-ÿ]+)`

// Portuguese is the default locale.
func Portuguese() Locale {
	return Locale{
		Name: "pt",
		RenamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:me\s+chame\s+de|meu\s+nome\s+agora\s+é|mudar\s+(?:meu\s+)?nome\s+para|trocar\s+(?:meu\s+)?nome\s+(?:para|por))\s+` + nameChars),
		},
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)meu nome\s+(?:é|eh)\s+` + nameChars),
			regexp.MustCompile(`(?i)me chamo\s+` + nameChars),
			regexp.MustCompile(`(?i)sou\s+(?:o|a)\s+` + nameChars),
			regexp.MustCompile(`(?i)pode me chamar de\s+` + nameChars),
		},
		PreferenceTriggers: []string{"gost", "prefer", "favorit"},
		PreferencePatterns: []PreferencePattern{
			{Pattern: regexp.MustCompile(`(?i)minha\s+(comida|bebida|cor|música|musica)\s+(?:preferida|favorita)\s+(?:é|eh)\s+([A-Za-zÀ-ÿ\s]+)`)},
			{Pattern: regexp.MustCompile(`(?i)(?:gosto|adoro|amo|prefiro)\s+(?:de\s+)?([A-Za-zÀ-ÿ\s]+)`), Category: "gosta"},
		},
		NameSentence:     "O nome do usuário é %s.",
		PreferencesLabel: "Preferências do usuário: ",
		PromptTemplate:   "[CONTEXTO: %s]\n\n%s",
	}
}

// English mirrors the Portuguese patterns.
func English() Locale {
	return Locale{
		Name: "en",
		RenamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:call\s+me|my\s+name\s+is\s+now|change\s+my\s+name\s+to)\s+` + nameChars),
		},
		NamePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)my\s+name\s+is\s+` + nameChars),
			regexp.MustCompile(`(?i)i'?m\s+called\s+` + nameChars),
			regexp.MustCompile(`(?i)i\s+am\s+called\s+` + nameChars),
		},
		PreferenceTriggers: []string{"like", "love", "prefer", "favorite", "favourite"},
		PreferencePatterns: []PreferencePattern{
			{Pattern: regexp.MustCompile(`(?i)my\s+favou?rite\s+(food|drink|colou?r|music)\s+is\s+([A-Za-zÀ-ÿ\s]+)`)},
			{Pattern: regexp.MustCompile(`(?i)i\s+(?:like|love|prefer)\s+([A-Za-zÀ-ÿ\s]+)`), Category: "likes"},
		},
		NameSentence:     "The user's name is %s.",
		PreferencesLabel: "User preferences: ",
		PromptTemplate:   "[CONTEXT: %s]\n\n%s",
	}
}
