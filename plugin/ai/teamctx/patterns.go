package teamctx

import (
	"sort"
	"strings"

	"github.com/teamlens/teamlens/store"
)

// ExtractPatterns derives discussion patterns from a message window:
// most-discussed people, trending topics, and cross-mentions of one roster
// member in conversations about another.
func ExtractPatterns(messages []*store.Message, persons []*store.Person, topThemes, exampleCap int) ConversationPatterns {
	nameByID := map[int32]string{}
	for _, person := range persons {
		nameByID[person.ID] = person.Name
	}

	counts := map[int32]int{}
	crossCounts := map[[2]int32]int{}
	for _, message := range messages {
		if message.PersonID != nil {
			counts[*message.PersonID]++
		}

		// Cross-mentions: another roster member's name inside a message
		// scoped to someone else.
		content := strings.ToLower(message.Content)
		for _, person := range persons {
			if message.PersonID != nil && person.ID == *message.PersonID {
				continue
			}
			if person.Name == "" {
				continue
			}
			if strings.Contains(content, strings.ToLower(person.Name)) {
				scope := int32(0)
				if message.PersonID != nil {
					scope = *message.PersonID
				}
				crossCounts[[2]int32{scope, person.ID}]++
			}
		}
	}

	mostDiscussed := make([]PersonMentions, 0, len(counts))
	for personID, count := range counts {
		mostDiscussed = append(mostDiscussed, PersonMentions{
			PersonID: personID,
			Name:     nameByID[personID],
			Count:    count,
		})
	}
	sort.SliceStable(mostDiscussed, func(i, j int) bool {
		if mostDiscussed[i].Count != mostDiscussed[j].Count {
			return mostDiscussed[i].Count > mostDiscussed[j].Count
		}
		return mostDiscussed[i].PersonID < mostDiscussed[j].PersonID
	})
	if len(mostDiscussed) > 5 {
		mostDiscussed = mostDiscussed[:5]
	}

	crossMentions := make([]CrossMention, 0, len(crossCounts))
	for pair, count := range crossCounts {
		if pair[0] == 0 {
			continue
		}
		crossMentions = append(crossMentions, CrossMention{
			PersonID:    pair[0],
			MentionedID: pair[1],
			Count:       count,
		})
	}
	sort.SliceStable(crossMentions, func(i, j int) bool {
		return crossMentions[i].Count > crossMentions[j].Count
	})

	return ConversationPatterns{
		MostDiscussed:  mostDiscussed,
		TrendingTopics: ExtractThemes(messages, topThemes, exampleCap),
		CrossMentions:  crossMentions,
	}
}
