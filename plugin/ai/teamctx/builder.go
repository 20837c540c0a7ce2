package teamctx

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teamlens/teamlens/plugin/ai/cache"
	"github.com/teamlens/teamlens/store"
)

// DataStore is the slice of the data store the builder reads from.
type DataStore interface {
	ListPersons(ctx context.Context, find *store.FindPerson) ([]*store.Person, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
}

// Builder assembles the management context from four independent,
// cache-wrapped fetches. Each fetch degrades to an empty result on failure
// rather than failing the whole call.
type Builder struct {
	store DataStore
	cache cache.CacheService
	cfg   Config
}

// NewBuilder creates a context builder. cacheService may be nil.
func NewBuilder(dataStore DataStore, cacheService cache.CacheService, cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.ThemeWindow <= 0 {
		cfg.ThemeWindow = def.ThemeWindow
	}
	if cfg.ChallengeWindow <= 0 {
		cfg.ChallengeWindow = def.ChallengeWindow
	}
	if cfg.PatternWindow <= 0 {
		cfg.PatternWindow = def.PatternWindow
	}
	if cfg.TopThemes <= 0 {
		cfg.TopThemes = def.TopThemes
	}
	if cfg.ExampleCap <= 0 {
		cfg.ExampleCap = def.ExampleCap
	}
	if cfg.RosterTTL <= 0 {
		cfg.RosterTTL = def.RosterTTL
	}
	if cfg.ThemesTTL <= 0 {
		cfg.ThemesTTL = def.ThemesTTL
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = def.ChallengeTTL
	}
	if cfg.PatternTTL <= 0 {
		cfg.PatternTTL = def.PatternTTL
	}
	return &Builder{store: dataStore, cache: cacheService, cfg: cfg}
}

// BuildContext runs the four fetches concurrently and joins them into one
// always-valid (possibly empty) context. It never returns an error for
// data-source failures.
func (b *Builder) BuildContext(ctx context.Context, userID int32) (*ManagementContext, error) {
	result := &ManagementContext{
		People:            []PersonSummary{},
		TeamSize:          TeamSize{ByRelationship: map[store.Relationship]int{}},
		RecentThemes:      []ConversationTheme{},
		CurrentChallenges: []string{},
	}

	g, gctx := errgroup.WithContext(ctx)

	var people []PersonSummary
	var teamSize TeamSize
	g.Go(func() error {
		people, teamSize = b.fetchRoster(gctx, userID)
		return nil
	})

	var themes []ConversationTheme
	g.Go(func() error {
		themes = b.fetchThemes(gctx, userID)
		return nil
	})

	var challenges []string
	g.Go(func() error {
		challenges = b.fetchChallenges(gctx, userID)
		return nil
	})

	var patterns ConversationPatterns
	g.Go(func() error {
		patterns = b.fetchPatterns(gctx, userID)
		return nil
	})

	// Branches swallow their own failures, so the join cannot fail.
	_ = g.Wait()

	result.People = people
	result.TeamSize = teamSize
	result.RecentThemes = themes
	result.CurrentChallenges = challenges
	result.Patterns = patterns

	// Per-person recent themes are derived from the joined theme list.
	for i := range result.People {
		person := &result.People[i]
		for _, theme := range themes {
			if containsID(theme.PersonIDs, person.ID) {
				person.RecentThemes = append(person.RecentThemes, theme.Theme)
				if len(person.RecentThemes) >= 3 {
					break
				}
			}
		}
	}

	return result, nil
}

func (b *Builder) fetchRoster(ctx context.Context, userID int32) ([]PersonSummary, TeamSize) {
	empty := TeamSize{ByRelationship: map[store.Relationship]int{}}

	key := cache.Key(userID, "people")
	var cached struct {
		People   []PersonSummary `json:"people"`
		TeamSize TeamSize        `json:"team_size"`
	}
	if b.getCached(ctx, key, &cached) {
		return cached.People, cached.TeamSize
	}

	persons, err := b.store.ListPersons(ctx, &store.FindPerson{CreatorID: &userID})
	if err != nil {
		slog.Warn("failed to list roster", "user_id", userID, "error", err)
		return []PersonSummary{}, empty
	}

	people := make([]PersonSummary, 0, len(persons))
	teamSize := TeamSize{ByRelationship: map[store.Relationship]int{}}
	for _, person := range persons {
		if person.Relationship == store.RelationshipSelf {
			continue
		}
		people = append(people, PersonSummary{
			ID:           person.ID,
			Name:         person.Name,
			Role:         person.Role,
			Relationship: person.Relationship,
			LastContact:  person.LastContactTs,
		})
		teamSize.Total++
		teamSize.ByRelationship[person.Relationship]++
	}

	cached.People = people
	cached.TeamSize = teamSize
	b.setCached(ctx, key, cached, b.cfg.RosterTTL)
	return people, teamSize
}

func (b *Builder) fetchThemes(ctx context.Context, userID int32) []ConversationTheme {
	key := cache.Key(userID, "themes")
	var cached []ConversationTheme
	if b.getCached(ctx, key, &cached) {
		return cached
	}

	messages := b.windowMessages(ctx, userID, b.cfg.ThemeWindow)
	themes := ExtractThemes(messages, b.cfg.TopThemes, b.cfg.ExampleCap)
	b.setCached(ctx, key, themes, b.cfg.ThemesTTL)
	return themes
}

func (b *Builder) fetchChallenges(ctx context.Context, userID int32) []string {
	key := cache.Key(userID, "challenges")
	var cached []string
	if b.getCached(ctx, key, &cached) {
		return cached
	}

	messages := b.windowMessages(ctx, userID, b.cfg.ChallengeWindow)
	challenges := DetectChallenges(messages)
	b.setCached(ctx, key, challenges, b.cfg.ChallengeTTL)
	return challenges
}

func (b *Builder) fetchPatterns(ctx context.Context, userID int32) ConversationPatterns {
	key := cache.Key(userID, "patterns")
	var cached ConversationPatterns
	if b.getCached(ctx, key, &cached) {
		return cached
	}

	messages := b.windowMessages(ctx, userID, b.cfg.PatternWindow)
	persons, err := b.store.ListPersons(ctx, &store.FindPerson{CreatorID: &userID})
	if err != nil {
		slog.Warn("failed to list persons for patterns", "user_id", userID, "error", err)
		persons = nil
	}

	patterns := ExtractPatterns(messages, persons, b.cfg.TopThemes, b.cfg.ExampleCap)
	b.setCached(ctx, key, patterns, b.cfg.PatternTTL)
	return patterns
}

// windowMessages lists user-authored messages in the trailing window.
// Failures degrade to an empty corpus.
func (b *Builder) windowMessages(ctx context.Context, userID int32, window time.Duration) []*store.Message {
	after := time.Now().Add(-window).Unix()
	role := store.MessageRoleUser
	messages, err := b.store.ListMessages(ctx, &store.FindMessage{
		CreatorID:    &userID,
		Role:         &role,
		CreatedAfter: &after,
	})
	if err != nil {
		slog.Warn("failed to list window messages", "user_id", userID, "error", err)
		return nil
	}
	return messages
}

func (b *Builder) getCached(ctx context.Context, key string, out any) bool {
	if b.cache == nil {
		return false
	}
	buf, ok := b.cache.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(buf, out) == nil
}

func (b *Builder) setCached(ctx context.Context, key string, value any, ttl time.Duration) {
	if b.cache == nil {
		return
	}
	if buf, err := json.Marshal(value); err == nil {
		_ = b.cache.Set(ctx, key, buf, ttl)
	}
}
