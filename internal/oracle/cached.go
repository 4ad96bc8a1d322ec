package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/clipcheck/clipcheck/internal/model"
)

// CachedEvaluator memoizes successful verdicts for identical
// (content, gate) pairs. The oracle is non-deterministic, so reusing a
// verdict within the TTL also keeps a single run self-consistent: the same
// content never gets two different answers to the same gate.
type CachedEvaluator struct {
	inner GateEvaluator
	cache *gocache.Cache
}

// NewCachedEvaluator wraps inner with an in-memory verdict cache.
func NewCachedEvaluator(inner GateEvaluator, ttl time.Duration) *CachedEvaluator {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedEvaluator{
		inner: inner,
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

// Evaluate returns a cached verdict when available, otherwise consults the
// inner evaluator. Errors are never cached.
func (c *CachedEvaluator) Evaluate(ctx context.Context, content string, gate model.GateSpec) (Verdict, error) {
	key := verdictKey(content, gate.Name)
	if cached, found := c.cache.Get(key); found {
		return cached.(Verdict), nil
	}

	verdict, err := c.inner.Evaluate(ctx, content, gate)
	if err != nil {
		return Verdict{}, err
	}

	c.cache.Set(key, verdict, gocache.DefaultExpiration)
	return verdict, nil
}

func verdictKey(content, gate string) string {
	hash := sha256.Sum256([]byte(gate + "\x00" + content))
	return "clipcheck:v1:" + hex.EncodeToString(hash[:])
}
