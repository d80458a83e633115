// Package resolve determines ground truth for a citation by trying an
// ordered chain of resolution tiers: the persistent cache, a local paper
// store, then the arXiv, Semantic Scholar, and CrossRef APIs. Every tier
// failure is a soft miss; the chain only ever ends in a hit or a valid
// tier=none resolution.
package resolve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
	"github.com/joescharf/reviewgate/internal/store"
)

// Tier is one stage of the fallback chain. Lookup returns nil on a miss;
// an error is also treated as a miss by the pipeline (network failures,
// rate limits, and malformed responses must never be fatal).
type Tier interface {
	Name() models.Tier
	Lookup(ctx context.Context, ref models.Reference) (*models.ResolvedReference, error)
}

// Pipeline resolves references through the tier chain, consulting and
// populating the cache. Adding a tier means appending to the list.
type Pipeline struct {
	cache  store.Cache
	tiers  []Tier
	papers *PaperStore // nil when no local paper store is configured
	ui     *output.UI
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTiers replaces the default tier chain.
func WithTiers(tiers ...Tier) Option {
	return func(p *Pipeline) { p.tiers = tiers }
}

// WithPaperStore enables the local paper tier and open-access downloads.
func WithPaperStore(ps *PaperStore) Option {
	return func(p *Pipeline) { p.papers = ps }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a resolution pipeline. The default chain is
// local paper store (when configured), arXiv, Semantic Scholar, CrossRef;
// the cache is always consulted first.
func NewPipeline(cache store.Cache, ui *output.UI, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache: cache,
		ui:    ui,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.tiers == nil {
		limiter := newRateLimiter()
		if p.papers != nil {
			p.tiers = append(p.tiers, p.papers)
		}
		p.tiers = append(p.tiers,
			NewArxivTier(limiter),
			NewSemanticScholarTier(limiter),
			NewCrossrefTier(limiter),
		)
	}
	return p
}

// CacheKey hashes a reference's normalized identifying text. Byte-identical
// entry text always maps to the same key.
func CacheKey(entryText string) string {
	normalized := collapseWS.ReplaceAllString(strings.ToLower(strings.TrimSpace(entryText)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Resolve runs the tier chain for one reference. The first tier yielding
// metadata wins; the result (including an all-miss tier=none result, so
// repeated expensive misses stay cheap) is cached before returning.
func (p *Pipeline) Resolve(ctx context.Context, ref models.Reference) (models.ResolvedReference, error) {
	key := CacheKey(ref.EntryText)

	cached, err := p.cache.Get(ctx, key)
	if err != nil {
		return models.ResolvedReference{}, fmt.Errorf("cache lookup for [%s]: %w", ref.Key, err)
	}
	if cached != nil {
		p.ui.VerboseLog("[%s] cache hit (tier %s)", ref.Key, cached.Tier)
		cached.Key = ref.Key
		return *cached, nil
	}

	for _, tier := range p.tiers {
		if err := ctx.Err(); err != nil {
			return models.ResolvedReference{}, err
		}
		res, err := tier.Lookup(ctx, ref)
		if err != nil {
			// Soft miss: log and fall through to the next tier.
			p.ui.VerboseLog("[%s] %s: %v", ref.Key, tier.Name(), err)
			continue
		}
		if res == nil {
			continue
		}
		res.Key = ref.Key
		res.FetchedAt = p.now().UTC()
		if p.papers != nil {
			p.papers.UpgradeWithFullText(ctx, ref, res)
		}
		if err := p.cache.Put(ctx, key, *res); err != nil {
			p.ui.Warning("[%s] cache write failed: %v", ref.Key, err)
		}
		return *res, nil
	}

	// Every tier missed. This is a valid terminal outcome, not an error:
	// "no metadata found" is itself evidence on the existence check.
	miss := models.ResolvedReference{
		Key:       ref.Key,
		Tier:      models.TierNone,
		FetchedAt: p.now().UTC(),
	}
	if err := p.cache.Put(ctx, key, miss); err != nil {
		p.ui.Warning("[%s] cache write failed: %v", ref.Key, err)
	}
	return miss, nil
}

// ResolveAll resolves references one at a time, filling FetchedContent in
// place. Failures are logged, never fatal.
func (p *Pipeline) ResolveAll(ctx context.Context, refs []*models.Reference) {
	for i, ref := range refs {
		p.ui.Info("Fetching [%s] (%d/%d)...", ref.Key, i+1, len(refs))
		res, err := p.Resolve(ctx, *ref)
		if err != nil {
			p.ui.Warning("[%s] resolution failed: %v", ref.Key, err)
			continue
		}
		ref.FetchedContent = res.PromptText()
		if res.Tier != models.TierNone {
			p.ui.Success("[%s] found via %s: %s", ref.Key, res.Tier, shorten(res.Meta.Title, 60))
		} else {
			p.ui.Info("[%s] not found", ref.Key)
		}
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
