package contacts

import (
	"context"
	"errors"
	"time"

	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// DefaultCacheTTL bounds how long a cached resolution stays authoritative.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Cache is the persistence surface the caching resolver needs. Satisfied by
// *Repository.
type Cache interface {
	Get(ctx context.Context, companyName string) (*Details, error)
	Put(ctx context.Context, d *Details) error
}

// CachingResolver serves fresh cache hits and falls through to the inner
// resolver on miss or staleness, writing the result back. A failing cache
// write never fails the resolution.
type CachingResolver struct {
	cache Cache
	inner Resolver
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewCachingResolver(cache Cache, inner Resolver, ttl time.Duration, log *logger.Logger) *CachingResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachingResolver{
		cache: cache,
		inner: inner,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

func (r *CachingResolver) Resolve(ctx context.Context, companyName string) (*Details, error) {
	cached, err := r.cache.Get(ctx, companyName)
	switch {
	case err == nil:
		if r.now().Sub(cached.FetchedAt) < r.ttl {
			return cached, nil
		}
	case !errors.Is(err, ErrCacheMiss):
		// A broken cache read degrades to a direct resolution.
		r.log.Warn("contact cache read failed", "company", companyName, "error", err)
	}

	resolved, err := r.inner.Resolve(ctx, companyName)
	if err != nil {
		// Serve a stale entry over a hard failure when we have one.
		if cached != nil {
			r.log.Warn("contact resolution failed, serving stale cache", "company", companyName, "error", err)
			return cached, nil
		}
		return nil, err
	}

	if resolved.FetchedAt.IsZero() {
		resolved.FetchedAt = r.now()
	}
	if err := r.cache.Put(ctx, resolved); err != nil {
		r.log.Warn("contact cache write failed", "company", companyName, "error", err)
	}
	return resolved, nil
}
