package a2a

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultCacheSize bounds the number of distinct base URLs kept.
const defaultCacheSize = 64

// CachingResolver remembers successfully resolved cards per base URL for a
// fixed TTL. Failures are never cached, so a cold or expired entry always
// surfaces the underlying resolution error. Cached cards are shared and
// must not be mutated.
type CachingResolver struct {
	next  CardResolver
	cards *expirable.LRU[string, *AgentCard]
}

var _ CardResolver = (*CachingResolver)(nil)

// NewCachingResolver wraps next with a cache of the given TTL.
func NewCachingResolver(next CardResolver, ttl time.Duration) *CachingResolver {
	return &CachingResolver{
		next:  next,
		cards: expirable.NewLRU[string, *AgentCard](defaultCacheSize, nil, ttl),
	}
}

// ResolveCard returns the cached card for baseURL or resolves it.
func (r *CachingResolver) ResolveCard(ctx context.Context, baseURL string) (*AgentCard, error) {
	if card, ok := r.cards.Get(baseURL); ok {
		return card, nil
	}
	card, err := r.next.ResolveCard(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	r.cards.Add(baseURL, card)
	return card, nil
}

// Purge drops every cached card.
func (r *CachingResolver) Purge() {
	r.cards.Purge()
}
