package semantic

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/cache"
	"github.com/teamlens/teamlens/store"
)

// MessageStore is the slice of the data store the searcher needs.
type MessageStore interface {
	SearchMessagesByVector(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.MessageWithScore, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
}

// Searcher runs the semantic memory search pipeline.
type Searcher struct {
	store    MessageStore
	embedder ai.EmbeddingService
	// completion is optional; when nil the AI-assisted stages are skipped.
	completion ai.CompletionService
	cache      cache.CacheService
	cfg        Config
}

// NewSearcher creates a searcher. completion may be nil.
func NewSearcher(messageStore MessageStore, embedder ai.EmbeddingService, completion ai.CompletionService, cacheService cache.CacheService, cfg Config) *Searcher {
	if cfg.MinQueryLen <= 0 {
		cfg.MinQueryLen = 10
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.72
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.AdjacentWindow <= 0 {
		cfg.AdjacentWindow = 3 * 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Searcher{
		store:      messageStore,
		embedder:   embedder,
		completion: completion,
		cache:      cacheService,
		cfg:        cfg,
	}
}

// Search retrieves similar past conversation snippets for the query,
// optionally scoped to one person. Returns nil when the query is below the
// minimum length; never returns an error for AI-stage failures.
func (s *Searcher) Search(ctx context.Context, userID int32, query string, scopePersonID *int32) (*Result, error) {
	if len(query) <= s.cfg.MinQueryLen {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, nil
	}

	// Scope is part of the key: a person-scoped search and an unscoped one
	// for the same query return different result sets.
	scope := "all"
	if scopePersonID != nil {
		scope = strconv.Itoa(int(*scopePersonID))
	}
	cacheKey := cache.Key(userID, "semantic", scope, queryPrefix(query))
	if s.cache != nil {
		if buf, ok := s.cache.Get(ctx, cacheKey); ok {
			var cached Result
			if err := json.Unmarshal(buf, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	// 1. Query expansion; failures keep the raw query.
	expanded := s.expandQuery(ctx, query)

	// 2. Embed and run the similarity search.
	vector, err := s.embedder.Embed(ctx, expanded)
	if err != nil {
		slog.Warn("failed to embed query", "user_id", userID, "error", err)
		return nil, nil
	}

	hits, err := s.vectorSearch(ctx, userID, vector, scopePersonID)
	if err != nil {
		slog.Warn("vector search failed", "user_id", userID, "error", err)
		return nil, nil
	}

	result := &Result{Similar: hits}

	// Cross-person insights come from an unscoped pass when the main search
	// was scoped to one person.
	if scopePersonID != nil {
		result.CrossPersonInsights = s.crossPersonInsights(ctx, userID, vector, *scopePersonID)
	}

	// 3. Re-rank with per-item fallback to the raw similarity.
	s.rerank(ctx, query, result.Similar)
	sort.SliceStable(result.Similar, func(i, j int) bool {
		return result.Similar[i].Relevance > result.Similar[j].Relevance
	})

	// 4. Connected conversations for the top results.
	s.attachConnected(ctx, userID, result.Similar)

	// 5. Cross-snippet pattern detection needs at least 3 ranked hits.
	if len(result.Similar) >= 3 {
		result.Patterns = s.detectPatterns(ctx, query, result.Similar)
	}

	if s.cache != nil {
		if buf, err := json.Marshal(result); err == nil {
			_ = s.cache.Set(ctx, cacheKey, buf, s.cfg.CacheTTL)
		}
	}
	return result, nil
}

func (s *Searcher) vectorSearch(ctx context.Context, userID int32, vector []float32, scopePersonID *int32) ([]SearchHit, error) {
	rows, err := s.store.SearchMessagesByVector(ctx, &store.VectorSearchOptions{
		CreatorID: userID,
		PersonID:  scopePersonID,
		Vector:    vector,
		Threshold: s.cfg.Threshold,
		Limit:     s.cfg.Limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, SearchHit{
			MessageID:  row.Message.ID,
			Content:    row.Message.Content,
			PersonID:   row.Message.PersonID,
			Role:       row.Message.Role,
			CreatedTs:  row.Message.CreatedTs,
			Similarity: row.Score,
			Relevance:  row.Score,
		})
	}
	return hits, nil
}

func (s *Searcher) crossPersonInsights(ctx context.Context, userID int32, vector []float32, scopePersonID int32) []CrossPersonInsight {
	rows, err := s.store.SearchMessagesByVector(ctx, &store.VectorSearchOptions{
		CreatorID: userID,
		Vector:    vector,
		Threshold: s.cfg.Threshold,
		Limit:     s.cfg.Limit,
	})
	if err != nil {
		slog.Warn("cross-person vector search failed", "user_id", userID, "error", err)
		return nil
	}

	insights := []CrossPersonInsight{}
	seen := map[int32]bool{}
	for _, row := range rows {
		pid := row.Message.PersonID
		if pid == nil || *pid == scopePersonID || seen[*pid] {
			continue
		}
		seen[*pid] = true
		insights = append(insights, CrossPersonInsight{
			PersonID:   *pid,
			Snippet:    snippet(row.Message.Content, 160),
			Similarity: row.Score,
		})
	}
	return insights
}

// attachConnected fetches temporally adjacent messages from the same person
// for the top three hits.
func (s *Searcher) attachConnected(ctx context.Context, userID int32, hits []SearchHit) {
	for i := range hits {
		if i >= 3 {
			break
		}
		hit := &hits[i]
		if hit.PersonID == nil {
			continue
		}

		after := hit.CreatedTs - int64(s.cfg.AdjacentWindow/time.Second)
		before := hit.CreatedTs + int64(s.cfg.AdjacentWindow/time.Second)
		limit := 5
		messages, err := s.store.ListMessages(ctx, &store.FindMessage{
			CreatorID:     &userID,
			PersonID:      hit.PersonID,
			CreatedAfter:  &after,
			CreatedBefore: &before,
			Limit:         &limit,
		})
		if err != nil {
			slog.Warn("failed to fetch connected messages", "message_id", hit.MessageID, "error", err)
			continue
		}

		for _, message := range messages {
			if message.ID == hit.MessageID {
				continue
			}
			hit.Connected = append(hit.Connected, ConnectedMessage{
				MessageID: message.ID,
				Content:   snippet(message.Content, 160),
				CreatedTs: message.CreatedTs,
			})
		}
	}
}

// queryPrefix bounds cache key length for long queries.
func queryPrefix(query string) string {
	const maxLen = 64
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen]
}

// snippet shortens content to at most maxLen bytes without splitting a rune.
func snippet(content string, maxLen int) string {
	if len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "..."
}
