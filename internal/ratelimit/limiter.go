// Package ratelimit implements the fixed-window request gate that guards
// LLM-backed endpoints.
//
// Counters live in a Cache under "ratelimit:{path_component}:{identity}". A
// window starts with the first request and ends when the cache entry expires;
// every write refreshes the TTL. Refused requests still increment the counter.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/metrics"
)

// Rate allows Rate requests per Per.
type Rate struct {
	Rate int
	Per  time.Duration
}

// Rules configures which paths are limited and how.
type Rules struct {
	Default       Rate
	Custom        map[string]Rate // path prefix -> rate
	Exempt        []string        // path prefixes never limited
	LimitAllPaths bool            // when false only Custom prefixes are limited
}

// DefaultRules returns 6 requests per minute on every path.
func DefaultRules() Rules {
	return Rules{
		Default:       Rate{Rate: 6, Per: 60 * time.Second},
		Custom:        map[string]Rate{},
		LimitAllPaths: true,
	}
}

// Decision is the outcome of Limiter.Decide.
type Decision struct {
	Allowed bool
	Limited bool // false when the path is exempt or unmetered
	Key     string
	Rate    Rate
}

// Limiter is safe for concurrent use. Rules can be swapped at runtime.
type Limiter struct {
	cache    Cache
	recorder metrics.Recorder

	mu    sync.RWMutex
	rules Rules
}

// NewLimiter returns a Limiter over cache. A nil recorder disables metrics.
func NewLimiter(cache Cache, rules Rules, recorder metrics.Recorder) *Limiter {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Limiter{cache: cache, rules: rules, recorder: recorder}
}

// SetRules replaces the active rules.
func (l *Limiter) SetRules(r Rules) {
	l.mu.Lock()
	l.rules = r
	l.mu.Unlock()
	logging.RateLimit("rules updated: default=%d/%v custom=%d exempt=%d all_paths=%v",
		r.Default.Rate, r.Default.Per, len(r.Custom), len(r.Exempt), r.LimitAllPaths)
}

// Rules returns a copy of the active rules.
func (l *Limiter) Rules() Rules {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rules
}

// Key builds the cache key for a path component and identity.
func Key(pathComponent string, id Identity) string {
	return fmt.Sprintf("ratelimit:%s:%s", pathComponent, id)
}

// matchCustom returns the longest custom prefix matching path.
func (r Rules) matchCustom(path string) (string, Rate, bool) {
	best := ""
	var rate Rate
	for prefix, rt := range r.Custom {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best, rate = prefix, rt
		}
	}
	if best == "" {
		return "", Rate{}, false
	}
	if rate.Rate <= 0 {
		rate.Rate = r.Default.Rate
	}
	if rate.Per <= 0 {
		rate.Per = r.Default.Per
	}
	return best, rate, true
}

func (r Rules) exempt(path string) bool {
	for _, p := range r.Exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// PathComponent returns the longest custom prefix matching path, else the
// first path segment.
func (r Rules) PathComponent(path string) string {
	if prefix, _, ok := r.matchCustom(path); ok {
		return prefix
	}
	return firstSegment(path)
}

func firstSegment(path string) string {
	parts := strings.SplitN(path, "/", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Decide applies the rules to a request for path by id.
func (l *Limiter) Decide(ctx context.Context, path string, id Identity) (Decision, error) {
	rules := l.Rules()

	if rules.exempt(path) {
		return Decision{Allowed: true}, nil
	}

	component, rate, custom := rules.matchCustom(path)
	if !custom {
		if !rules.LimitAllPaths {
			return Decision{Allowed: true}, nil
		}
		component, rate = firstSegment(path), rules.Default
	}

	key := Key(component, id)
	allowed, err := l.IsAllowed(ctx, key, rate.Rate, rate.Per)
	if err != nil {
		return Decision{Allowed: true, Key: key, Rate: rate}, err
	}
	l.recorder.RateLimitDecision(allowed)
	if !allowed {
		logging.RateLimitWarn("refused %s (limit %d per %v)", key, rate.Rate, rate.Per)
	}
	return Decision{Allowed: allowed, Limited: true, Key: key, Rate: rate}, nil
}

// IsAllowed increments the counter at key and reports whether it was still
// under rate before this request. The counter grows on refusal too.
func (l *Limiter) IsAllowed(ctx context.Context, key string, rate int, per time.Duration) (bool, error) {
	count, _, err := l.cache.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if err := l.cache.Set(ctx, key, count+1, per); err != nil {
		return false, err
	}
	return count < rate, nil
}
