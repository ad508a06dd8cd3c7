package agents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/metrics"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
)

// ContextRetriever fetches destination knowledge for the current message.
// Retrieval problems degrade to an empty context.
type ContextRetriever struct {
	searcher model.Searcher
	k        int
	timeout  time.Duration
	cache    *cache.Cache
}

func NewContextRetriever(searcher model.Searcher, cfg model.RetrievalConfig, timeout time.Duration) *ContextRetriever {
	k := cfg.TopK
	if k <= 0 {
		k = 5
	}
	r := &ContextRetriever{searcher: searcher, k: k, timeout: timeout}
	if cfg.CacheTTL > 0 {
		r.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return r
}

// Retrieve returns up to k snippets, most relevant first. It never fails.
func (r *ContextRetriever) Retrieve(ctx context.Context, query string, filters model.Filters) []string {
	if r.searcher == nil || strings.TrimSpace(query) == "" {
		return []string{}
	}
	key := cacheKey(query, filters)
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			metrics.RetrievalResults.WithLabelValues("cached").Inc()
			return slices.Clone(v.([]string))
		}
	}

	sctx, cancel := withCallTimeout(ctx, r.timeout)
	defer cancel()
	docs, err := r.searcher.Search(sctx, query, r.k, filters)
	if err != nil {
		logx.Warn().Err(err).Str("query", query).Msg("retrieval unavailable, continuing without context")
		metrics.RetrievalResults.WithLabelValues("error").Inc()
		return []string{}
	}
	if len(docs) > r.k {
		docs = docs[:r.k]
	}
	if len(docs) == 0 {
		metrics.RetrievalResults.WithLabelValues("empty").Inc()
	} else {
		metrics.RetrievalResults.WithLabelValues("hit").Inc()
	}
	snippets := lo.Map(docs, func(d model.Document, _ int) string {
		if d.Title == "" {
			return d.Content
		}
		return d.Title + ": " + d.Content
	})
	if r.cache != nil {
		r.cache.SetDefault(key, slices.Clone(snippets))
	}
	return snippets
}

func cacheKey(query string, f model.Filters) string {
	interests := lo.Map(f.Interests, func(s string, _ int) string { return strings.ToLower(strings.TrimSpace(s)) })
	slices.Sort(interests)
	return fmt.Sprintf("%s|%s|%s", strings.ToLower(strings.TrimSpace(query)), strings.ToLower(f.Destination), strings.Join(interests, ","))
}
