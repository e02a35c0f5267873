// Package sessioncache provides session-lifetime reuse of the subscription
// enumeration. The enumerator itself does no caching; this wrapper owns the
// TTL policy so repeated report runs within one session avoid redundant
// listing calls.
package sessioncache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/azure-flow/internal/model"
	"github.com/Veraticus/azure-flow/internal/service"
)

// DefaultTTL is how long an enumeration result stays fresh.
const DefaultTTL = 15 * time.Minute

// Lister wraps a SubscriptionLister with an in-memory TTL cache. Errors are
// never cached. Safe for concurrent use.
type Lister struct {
	fetchedAt time.Time
	inner     service.SubscriptionLister
	logger    *slog.Logger
	cached    []model.Subscription
	ttl       time.Duration
	mu        sync.Mutex
}

// New wraps a lister with the given TTL; ttl <= 0 uses DefaultTTL.
func New(inner service.SubscriptionLister, ttl time.Duration) *Lister {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Lister{
		inner:  inner,
		ttl:    ttl,
		logger: slog.Default().With("component", "sessioncache"),
	}
}

// ListSubscriptions returns the cached enumeration when fresh, fetching
// otherwise.
func (l *Lister) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && time.Since(l.fetchedAt) < l.ttl {
		l.logger.Debug("Using cached subscription list", "count", len(l.cached))
		return append([]model.Subscription(nil), l.cached...), nil
	}

	subs, err := l.inner.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	l.cached = append([]model.Subscription(nil), subs...)
	l.fetchedAt = time.Now()
	return subs, nil
}

// Invalidate drops the cached enumeration.
func (l *Lister) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}

var _ service.SubscriptionLister = (*Lister)(nil)
