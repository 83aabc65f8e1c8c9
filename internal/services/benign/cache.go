// Package benign implements the two-tier known-good hash cache consulted
// before any hash reaches the indicator store.
//
// Tier 1 is the organization's own endpoint-telemetry allowlist, bulk-loaded
// into a set once per process (or on refresh). Tier 2 is a read-only public
// reference-software database, queried only on a Tier-1 miss. Tier 1 always
// wins when a hash is in both.
package benign

import (
	"context"
	"regexp"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"inquest/internal/domain"
	"inquest/internal/metrics"
	"inquest/internal/ports"
)

// referenceChunkSize bounds one Tier-2 query's parameter count.
const referenceChunkSize = 500

const memoSize = 1 << 16

var sha256Hex = regexp.MustCompile(`^[0-9A-F]{64}$`)

type Cache struct {
	source ports.AllowlistSource
	refdb  ports.ReferenceSet // nil when the backing file is absent
	log    zerolog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	tier1  map[string]struct{}
	loaded bool

	// Tier-2 answers are immutable for the process lifetime, so caching
	// negatives is safe.
	memo *lru.Cache[string, bool]
}

func NewCache(source ports.AllowlistSource, refdb ports.ReferenceSet, log zerolog.Logger) *Cache {
	memo, _ := lru.New[string, bool](memoSize)
	return &Cache{
		source: source,
		refdb:  refdb,
		log:    log.With().Str("component", "benign-cache").Logger(),
		memo:   memo,
	}
}

// Normalize uppercases a hash and reports whether it is exactly 64 hex
// characters. Anything else never touches a store.
func Normalize(hash string) (string, bool) {
	h := strings.ToUpper(strings.TrimSpace(hash))
	return h, sha256Hex.MatchString(h)
}

// Init loads Tier 1. Idempotent: concurrent callers share one in-flight load
// and block until it finishes; a failed load leaves the cache unloaded so
// the next caller retries.
func (c *Cache) Init(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err, _ := c.group.Do("tier1", func() (any, error) {
		c.mu.RLock()
		loaded := c.loaded
		c.mu.RUnlock()
		if loaded {
			return nil, nil
		}
		hashes, err := c.source.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(hashes))
		for _, h := range hashes {
			if n, ok := Normalize(h); ok {
				set[n] = struct{}{}
			}
		}
		c.mu.Lock()
		c.tier1 = set
		c.loaded = true
		c.mu.Unlock()
		c.log.Info().Int("hashes", len(set)).Msg("endpoint allowlist loaded")
		return nil, nil
	})
	return err
}

// Refresh discards Tier 1 and reloads it. Tier 2 is file-backed and
// immutable for the process lifetime.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
	return c.Init(ctx)
}

// Check answers for a single hash.
func (c *Cache) Check(ctx context.Context, hash string) domain.BenignCheckResult {
	n, ok := Normalize(hash)
	if !ok {
		metrics.BenignLookups.WithLabelValues("invalid").Inc()
		return domain.BenignCheckResult{}
	}
	res := c.CheckBatch(ctx, []string{n})[n]
	switch res.Source {
	case domain.SourceCortexXDR:
		metrics.BenignLookups.WithLabelValues("cortex_xdr").Inc()
	case domain.SourceNSRL:
		metrics.BenignLookups.WithLabelValues("nsrl").Inc()
	default:
		metrics.BenignLookups.WithLabelValues("miss").Inc()
	}
	return res
}

// CheckBatch answers for many hashes in one call. Results are keyed by
// normalized hash; invalid inputs are omitted and any value whose Tier-2
// chunk errors stays "not whitelisted".
func (c *Cache) CheckBatch(ctx context.Context, hashes []string) map[string]domain.BenignCheckResult {
	out := make(map[string]domain.BenignCheckResult, len(hashes))
	if len(hashes) == 0 {
		return out
	}
	if err := c.Init(ctx); err != nil {
		// Degrade to Tier 2 only; the next call retries the load.
		c.log.Warn().Err(err).Msg("tier1 load failed, falling through to reference set")
	}

	c.mu.RLock()
	var pending []string
	for _, h := range hashes {
		n, ok := Normalize(h)
		if !ok {
			continue
		}
		if _, seen := out[n]; seen {
			continue
		}
		if _, hit := c.tier1[n]; hit {
			out[n] = domain.BenignCheckResult{
				IsBenign:   true,
				Confidence: domain.ConfidenceHigh,
				Source:     domain.SourceCortexXDR,
			}
			continue
		}
		out[n] = domain.BenignCheckResult{}
		pending = append(pending, n)
	}
	c.mu.RUnlock()

	if c.refdb == nil || len(pending) == 0 {
		return out
	}

	// Serve what the memo already knows, query the rest in bounded chunks.
	var misses []string
	for _, n := range pending {
		if benign, ok := c.memo.Get(n); ok {
			if benign {
				out[n] = lowConfidence()
			}
			continue
		}
		misses = append(misses, n)
	}
	for start := 0; start < len(misses); start += referenceChunkSize {
		end := min(start+referenceChunkSize, len(misses))
		chunk := misses[start:end]
		found, err := c.refdb.Contains(ctx, chunk)
		if err != nil {
			c.log.Warn().Err(err).Int("chunk", len(chunk)).Msg("reference set lookup failed")
			continue
		}
		for _, n := range chunk {
			benign := found[n]
			c.memo.Add(n, benign)
			if benign {
				out[n] = lowConfidence()
			}
		}
	}
	return out
}

func lowConfidence() domain.BenignCheckResult {
	return domain.BenignCheckResult{
		IsBenign:   true,
		Confidence: domain.ConfidenceLow,
		Source:     domain.SourceNSRL,
	}
}
