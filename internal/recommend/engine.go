// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

// Package recommend implements the in-process recommendation engine.
//
// The engine aggregates interaction, sentiment, and content-analysis events
// into per-user profiles and a bounded content catalog, then serves hybrid
// recommendations: Jaccard-based collaborative filtering, content-based
// feature matching, and a trending fallback. All state is in memory and
// owned exclusively by the engine; snapshots are written best-effort to an
// optional side store.
package recommend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/streamsense/streamsense/internal/cache"
	"github.com/streamsense/streamsense/internal/metrics"
)

// ErrInvalidInput is returned when an identifier is empty.
var ErrInvalidInput = errors.New("recommend: empty identifier")

// SideStore receives best-effort snapshots of computed state. Failures are
// logged and otherwise ignored; the engine never blocks on the store.
type SideStore interface {
	SaveProfile(ctx context.Context, profile UserProfile) error
	SaveRecommendations(ctx context.Context, subjectID string, items []string) error
}

// Engine is the recommendation aggregator. It is safe for concurrent use.
// Construct one at startup and pass it to handlers explicitly; there is no
// package-level instance.
type Engine struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu sync.RWMutex

	// profiles and interactions are keyed by user ID.
	profiles     map[string]*UserProfile
	interactions map[string]map[string]struct{}

	// items is the LRU-bounded content arena keyed by item ID.
	items *cache.LRU[*ContentItem]

	// recent is a fixed-size ring of interactions for trending, evicted
	// by count rather than age.
	recent    []Interaction
	recentPos int
	recentLen int

	respCache *cache.Cache
	store     SideStore
}

// NewEngine creates an engine with the given config.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:          cfg,
		logger:       logger.With().Str("component", "recommend").Logger(),
		now:          time.Now,
		profiles:     make(map[string]*UserProfile),
		interactions: make(map[string]map[string]struct{}),
		items:        cache.NewLRU[*ContentItem](cfg.MaxItems),
		recent:       make([]Interaction, cfg.MaxRecentInteractions),
		respCache:    cache.New(cfg.CacheTTL),
	}, nil
}

// SetStore attaches a best-effort side store. Call before serving traffic.
func (e *Engine) SetStore(s SideStore) {
	e.store = s
}

// SetClock overrides the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Close releases background resources.
func (e *Engine) Close() {
	e.respCache.Close()
}

// RecordInteraction ingests one (user, item, type) event. The event updates
// the user's interaction set, preference weights, engagement score, the
// item's activity counters, and the trending history.
func (e *Engine) RecordInteraction(userID, itemID string, typ InteractionType, ts time.Time) error {
	if userID == "" || itemID == "" {
		return ErrInvalidInput
	}
	if ts.IsZero() {
		ts = e.now()
	}

	weight := typ.Weight()
	category := extractCategory(itemID)

	e.mu.Lock()
	seen, ok := e.interactions[userID]
	if !ok {
		seen = make(map[string]struct{})
		e.interactions[userID] = seen
	}
	seen[itemID] = struct{}{}

	profile := e.profileLocked(userID)
	profile.Preferences[category] += weight
	profile.Engagement = clamp01((profile.Engagement + weight) / 2)
	profile.LastActive = ts

	e.pushRecentLocked(Interaction{UserID: userID, ItemID: itemID, Type: typ, Timestamp: ts})
	snapshot := copyProfile(profile)
	e.mu.Unlock()

	e.touchItem(itemID, func(item *ContentItem) {
		item.ActivityLevel++
		item.LastUpdated = ts
	})

	e.saveProfileAsync(snapshot)
	return nil
}

// ProcessSentiment ingests a sentiment event for a user watching an item.
// Positive sentiment (>0.5) nudges the category preference up by 0.2,
// anything else down by 0.1. Engagement moves toward the sentiment score.
func (e *Engine) ProcessSentiment(userID, itemID string, sentiment float64, _ string) error {
	if userID == "" || itemID == "" {
		return ErrInvalidInput
	}

	now := e.now()
	category := extractCategory(itemID)

	delta := -0.1
	if sentiment > 0.5 {
		delta = 0.2
	}

	e.mu.Lock()
	profile := e.profileLocked(userID)
	profile.Preferences[category] += delta
	profile.Engagement = clamp01((profile.Engagement + sentiment) / 2)
	profile.SentimentHistory[itemID] = sentiment
	profile.LastActive = now
	snapshot := copyProfile(profile)
	e.mu.Unlock()

	e.touchItem(itemID, func(item *ContentItem) {
		total := item.AvgSentiment*float64(item.SentimentCount) + sentiment
		item.SentimentCount++
		item.AvgSentiment = total / float64(item.SentimentCount)
		item.LastUpdated = now
	})

	e.saveProfileAsync(snapshot)
	return nil
}

// ProcessContentAnalysis merges feature tags and viewer metrics into the
// content catalog. Items are created on first reference.
func (e *Engine) ProcessContentAnalysis(itemID string, features []string, viewerCount int64) error {
	if itemID == "" {
		return ErrInvalidInput
	}

	now := e.now()
	e.touchItem(itemID, func(item *ContentItem) {
		for _, f := range features {
			item.Features[f] = struct{}{}
		}
		if viewerCount > 0 {
			item.ViewerCount = viewerCount
		}
		item.LastUpdated = now
	})
	return nil
}

// Recommend produces up to limit item IDs for a user. Candidates come from
// collaborative filtering first, then content-based matching, then
// deterministic padding from the static fallback list. An item the user has interacted
// with is never returned, including from the fallback. There is no error
// path: absence of data degrades silently to the fallback list.
func (e *Engine) Recommend(userID string, limit int) Response {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}()
	metrics.RecommendRequests.WithLabelValues("personalized").Inc()

	resp := Response{SubjectID: userID, Algorithm: "hybrid", Recommendations: []string{}}
	if limit <= 0 || userID == "" {
		return resp
	}

	cacheKey := cache.GenerateKey("personalized", struct {
		UserID string
		Limit  int
	}{userID, limit})
	if cached, ok := e.respCache.Get(cacheKey); ok {
		metrics.CacheHits.WithLabelValues("recommend").Inc()
		return cached.(Response)
	}
	metrics.CacheMisses.WithLabelValues("recommend").Inc()

	e.mu.RLock()
	seen := e.interactions[userID]
	seenCopy := make(map[string]struct{}, len(seen))
	exclude := make(map[string]struct{}, len(seen)+limit)
	for id := range seen {
		seenCopy[id] = struct{}{}
		exclude[id] = struct{}{}
	}

	picked := make([]string, 0, limit)
	picked = e.collaborativeLocked(userID, seen, exclude, picked, limit)
	e.mu.RUnlock()

	if len(picked) < limit {
		picked = e.contentBased(e.subjectFeatures(seenCopy), userID, exclude, picked, limit)
	}

	fallbackCount := 0
	for _, id := range e.cfg.Fallback {
		if len(picked) >= limit {
			break
		}
		if _, dup := exclude[id]; dup {
			continue
		}
		exclude[id] = struct{}{}
		picked = append(picked, id)
		fallbackCount++
	}
	if fallbackCount > 0 {
		metrics.RecommendFallbackItems.Add(float64(fallbackCount))
	}

	resp.Recommendations = picked
	resp.FallbackCount = fallbackCount
	if len(picked) > 0 {
		resp.Confidence = 1 - float64(fallbackCount)/float64(len(picked))
	}

	e.respCache.Set(cacheKey, resp)
	e.saveRecommendationsAsync(userID, picked)
	return resp
}

// SimilarItems returns up to limit items whose feature sets resemble the
// given item, ordered by descending similarity. Sparse results are padded
// from the static fallback list.
func (e *Engine) SimilarItems(itemID string, limit int) Response {
	metrics.RecommendRequests.WithLabelValues("similar").Inc()

	resp := Response{SubjectID: itemID, Algorithm: "content_based", Recommendations: []string{}}
	if limit <= 0 || itemID == "" {
		return resp
	}

	var features map[string]struct{}
	if item, ok := e.Item(itemID); ok {
		features = item.Features
	}

	exclude := map[string]struct{}{itemID: {}}
	picked := e.contentBased(features, itemID, exclude, make([]string, 0, limit), limit)

	fallbackCount := 0
	for _, id := range e.cfg.Fallback {
		if len(picked) >= limit {
			break
		}
		if _, dup := exclude[id]; dup {
			continue
		}
		exclude[id] = struct{}{}
		picked = append(picked, id)
		fallbackCount++
	}

	resp.Recommendations = picked
	resp.FallbackCount = fallbackCount
	if len(picked) > 0 {
		resp.Confidence = 1 - float64(fallbackCount)/float64(len(picked))
	}
	return resp
}

// Trending returns up to limit item IDs ranked by recent interaction count,
// padded from the static fallback list.
func (e *Engine) Trending(limit int) []string {
	metrics.RecommendRequests.WithLabelValues("trending").Inc()

	if limit <= 0 {
		return []string{}
	}

	e.mu.RLock()
	live := e.liveTrendingLocked()
	e.mu.RUnlock()

	picked := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, id := range live {
		if len(picked) >= limit {
			break
		}
		seen[id] = struct{}{}
		picked = append(picked, id)
	}
	for _, id := range e.cfg.Fallback {
		if len(picked) >= limit {
			break
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		picked = append(picked, id)
	}
	return picked
}

// Profile returns a copy of a user's profile.
func (e *Engine) Profile(userID string) (UserProfile, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.profiles[userID]
	if !ok {
		return UserProfile{}, false
	}
	return copyProfile(p), true
}

// Item returns a copy of a catalog item.
func (e *Engine) Item(itemID string) (ContentItem, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	item, ok := e.items.Peek(itemID)
	if !ok {
		return ContentItem{}, false
	}

	out := *item
	out.Features = make(map[string]struct{}, len(item.Features))
	for f := range item.Features {
		out.Features[f] = struct{}{}
	}
	return out, true
}

// collaborativeLocked runs Jaccard-based collaborative filtering.
// Neighbors above the similarity threshold are ranked descending (ties
// broken by ID for determinism); the top N each contribute up to
// ItemsPerNeighbor unseen items. Caller must hold at least a read lock.
func (e *Engine) collaborativeLocked(userID string, seen map[string]struct{}, exclude map[string]struct{}, picked []string, limit int) []string {
	type neighbor struct {
		id  string
		sim float64
	}

	neighbors := make([]neighbor, 0)
	for otherID, otherItems := range e.interactions {
		if otherID == userID {
			continue
		}
		sim := Jaccard(seen, otherItems)
		if sim > e.cfg.CollaborativeThreshold {
			neighbors = append(neighbors, neighbor{id: otherID, sim: sim})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].id < neighbors[j].id
	})
	if len(neighbors) > e.cfg.TopNeighbors {
		neighbors = neighbors[:e.cfg.TopNeighbors]
	}

	for _, n := range neighbors {
		items := make([]string, 0, len(e.interactions[n.id]))
		for id := range e.interactions[n.id] {
			items = append(items, id)
		}
		sort.Strings(items)

		contributed := 0
		for _, id := range items {
			if len(picked) >= limit || contributed >= e.cfg.ItemsPerNeighbor {
				break
			}
			if _, dup := exclude[id]; dup {
				continue
			}
			exclude[id] = struct{}{}
			picked = append(picked, id)
			contributed++
		}
	}

	return picked
}

// contentBased ranks catalog items by feature similarity to the subject's
// feature set, descending, and appends those above the threshold.
func (e *Engine) contentBased(features map[string]struct{}, subjectID string, exclude map[string]struct{}, picked []string, limit int) []string {
	if len(features) == 0 {
		return picked
	}

	type candidate struct {
		id  string
		sim float64
	}

	e.mu.RLock()
	candidates := make([]candidate, 0)
	for _, id := range e.items.Keys() {
		if id == subjectID {
			continue
		}
		if _, dup := exclude[id]; dup {
			continue
		}
		item, ok := e.items.Peek(id)
		if !ok {
			continue
		}
		sim := Jaccard(features, item.Features)
		if sim > e.cfg.ContentThreshold {
			candidates = append(candidates, candidate{id: id, sim: sim})
		}
	}
	e.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].id < candidates[j].id
	})

	for _, c := range candidates {
		if len(picked) >= limit {
			break
		}
		exclude[c.id] = struct{}{}
		picked = append(picked, c.id)
	}
	return picked
}

// subjectFeatures unions the features of every item the user interacted
// with, forming the subject's content profile.
func (e *Engine) subjectFeatures(seen map[string]struct{}) map[string]struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	features := make(map[string]struct{})
	for id := range seen {
		if item, ok := e.items.Peek(id); ok {
			for f := range item.Features {
				features[f] = struct{}{}
			}
		}
	}
	return features
}

// liveTrendingLocked ranks items by frequency in the recent interaction
// ring, descending, ties broken by ID. Caller must hold at least a read lock.
func (e *Engine) liveTrendingLocked() []string {
	counts := make(map[string]int)
	for i := 0; i < e.recentLen; i++ {
		counts[e.recent[i].ItemID]++
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// profileLocked returns the profile for a user, creating a default one on
// first reference. Caller must hold the write lock.
func (e *Engine) profileLocked(userID string) *UserProfile {
	profile, ok := e.profiles[userID]
	if !ok {
		profile = &UserProfile{
			UserID:           userID,
			Preferences:      make(map[string]float64),
			Engagement:       0.5,
			SentimentHistory: make(map[string]float64),
			LastActive:       e.now(),
		}
		e.profiles[userID] = profile
	}
	return profile
}

// pushRecentLocked appends to the trending ring, overwriting the oldest
// entry once full. Caller must hold the write lock.
func (e *Engine) pushRecentLocked(in Interaction) {
	e.recent[e.recentPos] = in
	e.recentPos = (e.recentPos + 1) % len(e.recent)
	if e.recentLen < len(e.recent) {
		e.recentLen++
	}
}

// touchItem applies fn to an item under the engine lock, creating the item
// on first reference.
func (e *Engine) touchItem(itemID string, fn func(*ContentItem)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	item, ok := e.items.Peek(itemID)
	if !ok {
		item = &ContentItem{
			ID:       itemID,
			Features: make(map[string]struct{}),
		}
	}
	fn(item)
	e.items.Add(itemID, item)
}

func (e *Engine) saveProfileAsync(profile UserProfile) {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.SaveProfile(ctx, profile); err != nil {
			e.logger.Warn().Err(err).Str("user_id", profile.UserID).Msg("profile snapshot write failed")
		}
	}()
}

func (e *Engine) saveRecommendationsAsync(userID string, items []string) {
	if e.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.store.SaveRecommendations(ctx, userID, items); err != nil {
			e.logger.Warn().Err(err).Str("user_id", userID).Msg("recommendation snapshot write failed")
		}
	}()
}

func copyProfile(p *UserProfile) UserProfile {
	out := UserProfile{
		UserID:           p.UserID,
		Engagement:       p.Engagement,
		LastActive:       p.LastActive,
		Preferences:      make(map[string]float64, len(p.Preferences)),
		SentimentHistory: make(map[string]float64, len(p.SentimentHistory)),
	}
	for k, v := range p.Preferences {
		out.Preferences[k] = v
	}
	for k, v := range p.SentimentHistory {
		out.SentimentHistory[k] = v
	}
	return out
}
