package teamctx

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/teamlens/teamlens/store"
)

// ExtractThemes counts theme-keyword hits over the given messages and keeps
// the top themes by frequency. Each theme records up to exampleCap snippets
// and the set of involved person ids.
func ExtractThemes(messages []*store.Message, topN, exampleCap int) []ConversationTheme {
	if topN <= 0 {
		topN = 5
	}
	if exampleCap <= 0 {
		exampleCap = 3
	}

	byTheme := map[string]*ConversationTheme{}
	for _, message := range messages {
		content := strings.ToLower(message.Content)
		for theme, keywords := range ThemeKeywords {
			if !containsAny(content, keywords) {
				continue
			}

			t, ok := byTheme[theme]
			if !ok {
				t = &ConversationTheme{Theme: theme}
				byTheme[theme] = t
			}
			t.Frequency++
			if message.CreatedTs > t.LastMentioned {
				t.LastMentioned = message.CreatedTs
			}
			if message.PersonID != nil && !containsID(t.PersonIDs, *message.PersonID) {
				t.PersonIDs = append(t.PersonIDs, *message.PersonID)
			}
			if len(t.Examples) < exampleCap {
				t.Examples = append(t.Examples, truncate(message.Content, 120))
			}
		}
	}

	themes := make([]ConversationTheme, 0, len(byTheme))
	for _, t := range byTheme {
		themes = append(themes, *t)
	}
	sort.SliceStable(themes, func(i, j int) bool {
		if themes[i].Frequency != themes[j].Frequency {
			return themes[i].Frequency > themes[j].Frequency
		}
		return themes[i].Theme < themes[j].Theme
	})

	if len(themes) > topN {
		themes = themes[:topN]
	}
	return themes
}

// DetectChallenges emits each challenge label whose keywords appear anywhere
// in the windowed corpus, at most once per label.
func DetectChallenges(messages []*store.Message) []string {
	var corpus strings.Builder
	for _, message := range messages {
		corpus.WriteString(strings.ToLower(message.Content))
		corpus.WriteByte('\n')
	}
	text := corpus.String()

	challenges := []string{}
	for label, keywords := range ChallengeKeywords {
		if containsAny(text, keywords) {
			challenges = append(challenges, label)
		}
	}
	sort.Strings(challenges)
	return challenges
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func containsID(ids []int32, id int32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// truncate shortens text to at most maxLen bytes without splitting a rune.
func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
