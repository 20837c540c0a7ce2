package mention

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/teamlens/teamlens/plugin/ai"
	"github.com/teamlens/teamlens/plugin/ai/cache"
	"github.com/teamlens/teamlens/store"
)

type heuristicPattern struct {
	re           *regexp.Regexp
	base         float64
	relationship store.Relationship
	// roleGroup is the capture index of a role hint, 0 when absent.
	roleGroup int
}

// Ordered roughly by specificity. The relationship-bearing phrases carry the
// highest base confidence because they name both the person and the tie.
var heuristicPatterns = []heuristicPattern{
	{re: regexp.MustCompile(`\bmy\s+direct\s+report,?\s+([A-Z][a-z]+)\b`), base: 0.85, relationship: store.RelationshipDirectReport},
	{re: regexp.MustCompile(`\b([A-Z][a-z]+),\s+my\s+direct\s+report\b`), base: 0.85, relationship: store.RelationshipDirectReport},
	{re: regexp.MustCompile(`\bmy\s+manager,?\s+([A-Z][a-z]+)\b`), base: 0.85, relationship: store.RelationshipManager},
	{re: regexp.MustCompile(`\b([A-Z][a-z]+),\s+my\s+manager\b`), base: 0.85, relationship: store.RelationshipManager},
	{re: regexp.MustCompile(`\bmy\s+peer,?\s+([A-Z][a-z]+)\b`), base: 0.8, relationship: store.RelationshipPeer},
	{re: regexp.MustCompile(`\b(?:1:1|1 on 1|one[- ]on[- ]one)\s+with\s+([A-Z][a-z]+)\b`), base: 0.8},
	{re: regexp.MustCompile(`\bmeeting\s+with\s+([A-Z][a-z]+)\b`), base: 0.75},
	{re: regexp.MustCompile(`\btalk(?:ed|ing)?\s+(?:to|with)\s+([A-Z][a-z]+)\b`), base: 0.7},
	{re: regexp.MustCompile(`\b([A-Z][a-z]+)\s+and\s+I\b`), base: 0.7},
	{re: regexp.MustCompile(`\b([A-Z][a-z]+)\s+\(([a-zA-Z][a-zA-Z ]{1,30})\)`), base: 0.7, roleGroup: 2},
	{re: regexp.MustCompile(`\bwork(?:ing|ed)?\s+with\s+([A-Z][a-z]+)\b`), base: 0.65},
	{re: regexp.MustCompile(`\bcheck(?:ed|ing)?\s+in\s+with\s+([A-Z][a-z]+)\b`), base: 0.65},
}

// minimalPattern is the last-resort scan when the full battery plus
// validation yields nothing usable.
var minimalPattern = regexp.MustCompile(`\bwork(?:ing|ed)?\s+with\s+([A-Z][a-z]+)\b`)

// commonWords are capitalized tokens the battery tends to catch that are
// never person names.
var commonWords = map[string]struct{}{
	"the": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"today": {}, "tomorrow": {}, "yesterday": {}, "monday": {}, "tuesday": {},
	"wednesday": {}, "thursday": {}, "friday": {}, "saturday": {}, "sunday": {},
	"everyone": {}, "someone": {}, "anyone": {}, "nobody": {},
	"team": {}, "engineering": {}, "marketing": {}, "sales": {}, "product": {},
	"january": {}, "february": {}, "march": {}, "april": {}, "may": {},
	"june": {}, "july": {}, "august": {}, "september": {}, "october": {},
	"november": {}, "december": {},
	"ok": {}, "okay": {}, "hr": {}, "it": {}, "ai": {},
}

var workVocabulary = []string{
	"meeting", "1:1", "one-on-one", "project", "review", "deadline",
	"promotion", "feedback", "sprint", "standup", "sync", "report",
	"performance", "goals", "hiring", "interview",
}

// Detector extracts person mentions from chat messages. The completion
// service is optional; without it detection stops at the heuristic tiers.
type Detector struct {
	completion ai.CompletionService
	cache      cache.CacheService
	cfg        Config
}

func NewDetector(completion ai.CompletionService, cacheService cache.CacheService, cfg Config) *Detector {
	if cfg.ConfidenceFloor <= 0 {
		cfg.ConfidenceFloor = DefaultConfig().ConfidenceFloor
	}
	if cfg.AIScoreFloor <= 0 {
		cfg.AIScoreFloor = DefaultConfig().AIScoreFloor
	}
	if cfg.AIBoost <= 0 {
		cfg.AIBoost = DefaultConfig().AIBoost
	}
	if cfg.ContextBoost <= 0 {
		cfg.ContextBoost = DefaultConfig().ContextBoost
	}
	if cfg.ValidationTTL <= 0 {
		cfg.ValidationTTL = DefaultConfig().ValidationTTL
	}
	return &Detector{completion: completion, cache: cacheService, cfg: cfg}
}

// Detect returns the people referenced in message, highest confidence first.
// Names already on the roster are passed in existingNames and never
// re-reported. It never returns an error; failed tiers degrade to the
// cheaper ones below.
func (d *Detector) Detect(ctx context.Context, userID int32, message string, existingNames []string) []DetectedPerson {
	candidates := d.heuristics(message, existingNames)
	if len(candidates) == 0 {
		return nil
	}

	if d.completion != nil {
		validated, err := d.validateWithAI(ctx, userID, message, candidates)
		if err != nil {
			slog.Warn("mention AI validation failed, keeping heuristic results", "err", err)
		} else {
			candidates = validated
		}
	}

	return d.finalize(candidates)
}

// DetectLocal runs only the heuristic tiers. It makes no external calls, so
// callers on a latency-sensitive path can use it directly and leave the AI
// re-scoring to a later Detect.
func (d *Detector) DetectLocal(message string, existingNames []string) []DetectedPerson {
	return d.finalize(d.heuristics(message, existingNames))
}

func (d *Detector) heuristics(message string, existingNames []string) []DetectedPerson {
	known := make(map[string]struct{}, len(existingNames))
	for _, name := range existingNames {
		known[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	candidates := d.scan(message, known)
	candidates = d.validateLocal(message, candidates)
	if len(candidates) == 0 {
		candidates = d.minimalScan(message, known)
	}
	return candidates
}

// scan runs the full pattern battery and collects every raw candidate.
// Known roster names are dropped here so they never reach the later tiers.
func (d *Detector) scan(message string, known map[string]struct{}) []DetectedPerson {
	var out []DetectedPerson
	for _, p := range heuristicPatterns {
		for _, m := range p.re.FindAllStringSubmatch(message, -1) {
			if _, ok := known[strings.ToLower(m[1])]; ok {
				continue
			}
			candidate := DetectedPerson{
				Name:             m[1],
				RelationshipHint: string(p.relationship),
				Confidence:       p.base,
				Context:          strings.TrimSpace(m[0]),
			}
			if p.roleGroup > 0 && p.roleGroup < len(m) {
				candidate.RoleGuess = strings.TrimSpace(m[p.roleGroup])
			}
			out = append(out, candidate)
		}
	}
	return out
}

// validateLocal drops candidates that cannot be names and applies the
// work-context boost.
func (d *Detector) validateLocal(message string, candidates []DetectedPerson) []DetectedPerson {
	boost := 0.0
	lowered := strings.ToLower(message)
	for _, word := range workVocabulary {
		if strings.Contains(lowered, word) {
			boost = d.cfg.ContextBoost
			break
		}
	}

	out := candidates[:0]
	for _, c := range candidates {
		if !plausibleName(c.Name) {
			continue
		}
		c.Confidence += boost
		if c.Confidence > 0.9 {
			// AI validation owns the range above 0.9.
			c.Confidence = 0.9
		}
		out = append(out, c)
	}
	return out
}

func (d *Detector) minimalScan(message string, known map[string]struct{}) []DetectedPerson {
	var out []DetectedPerson
	for _, m := range minimalPattern.FindAllStringSubmatch(message, -1) {
		if _, ok := known[strings.ToLower(m[1])]; ok {
			continue
		}
		if !plausibleName(m[1]) {
			continue
		}
		out = append(out, DetectedPerson{
			Name:       m[1],
			Confidence: 0.6,
			Context:    strings.TrimSpace(m[0]),
		})
	}
	return out
}

// finalize applies the confidence floor, sorts, and dedupes by name keeping
// the strongest entry.
func (d *Detector) finalize(candidates []DetectedPerson) []DetectedPerson {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	seen := make(map[string]struct{}, len(candidates))
	var out []DetectedPerson
	for _, c := range candidates {
		if c.Confidence < d.cfg.ConfidenceFloor {
			continue
		}
		key := strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func plausibleName(name string) bool {
	if len(name) < 2 || len(name) > 30 {
		return false
	}
	if _, ok := commonWords[strings.ToLower(name)]; ok {
		return false
	}
	upper := 0
	for _, r := range name {
		if unicode.IsDigit(r) {
			return false
		}
		if unicode.IsUpper(r) {
			upper++
		}
	}
	// All-caps tokens are acronyms, not names.
	return upper < len(name)
}
