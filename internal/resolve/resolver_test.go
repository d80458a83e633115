package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/reviewgate/internal/models"
	"github.com/joescharf/reviewgate/internal/output"
)

// memCache is an in-memory store.Cache for pipeline tests.
type memCache struct {
	entries map[string]models.ResolvedReference
	gets    int
	puts    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]models.ResolvedReference)}
}

func (m *memCache) Get(ctx context.Context, key string) (*models.ResolvedReference, error) {
	m.gets++
	if res, ok := m.entries[key]; ok {
		copied := res
		return &copied, nil
	}
	return nil, nil
}

func (m *memCache) Put(ctx context.Context, key string, ref models.ResolvedReference) error {
	m.puts++
	m.entries[key] = ref
	return nil
}

func (m *memCache) Close() error { return nil }

// fakeTier counts lookups and returns a fixed result.
type fakeTier struct {
	name  models.Tier
	res   *models.ResolvedReference
	err   error
	calls int
}

func (f *fakeTier) Name() models.Tier { return f.name }

func (f *fakeTier) Lookup(ctx context.Context, ref models.Reference) (*models.ResolvedReference, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.res == nil {
		return nil, nil
	}
	copied := *f.res
	return &copied, nil
}

func quietUI() *output.UI {
	ui := output.New()
	ui.Quiet = true
	return ui
}

func testRef() models.Reference {
	return models.Reference{Key: "smith2020", EntryText: "J. Smith, A Study of Things, 2020."}
}

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, CacheKey("some entry"), CacheKey("some entry"))
	})

	t.Run("normalizes whitespace and case", func(t *testing.T) {
		assert.Equal(t, CacheKey("Some  Entry\n Text"), CacheKey("some entry text"))
		assert.Equal(t, CacheKey("  padded  "), CacheKey("padded"))
	})

	t.Run("distinct entries get distinct keys", func(t *testing.T) {
		assert.NotEqual(t, CacheKey("entry one"), CacheKey("entry two"))
	})

	t.Run("16 hex chars", func(t *testing.T) {
		assert.Len(t, CacheKey("anything"), 16)
	})
}

func TestResolve_FirstHitWins(t *testing.T) {
	hit := &models.ResolvedReference{
		Tier: models.TierArxiv,
		Meta: models.PaperMeta{Title: "A Study of Things"},
	}
	tier1 := &fakeTier{name: models.TierArxiv, res: hit}
	tier2 := &fakeTier{name: models.TierSemanticScholar}

	p := NewPipeline(newMemCache(), quietUI(), WithTiers(tier1, tier2))
	res, err := p.Resolve(context.Background(), testRef())
	require.NoError(t, err)

	assert.Equal(t, models.TierArxiv, res.Tier)
	assert.Equal(t, "smith2020", res.Key)
	assert.False(t, res.FetchedAt.IsZero())
	assert.Equal(t, 1, tier1.calls)
	assert.Equal(t, 0, tier2.calls, "later tiers must not be consulted after a hit")
}

func TestResolve_FallsThroughMissesAndErrors(t *testing.T) {
	hit := &models.ResolvedReference{
		Tier: models.TierCrossref,
		Meta: models.PaperMeta{Title: "A Study of Things"},
	}
	miss := &fakeTier{name: models.TierArxiv}
	failing := &fakeTier{name: models.TierSemanticScholar, err: assert.AnError}
	last := &fakeTier{name: models.TierCrossref, res: hit}

	p := NewPipeline(newMemCache(), quietUI(), WithTiers(miss, failing, last))
	res, err := p.Resolve(context.Background(), testRef())
	require.NoError(t, err, "tier errors are soft misses")

	assert.Equal(t, models.TierCrossref, res.Tier)
	assert.Equal(t, 1, miss.calls)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, last.calls)
}

func TestResolve_AllMissYieldsTierNone(t *testing.T) {
	cache := newMemCache()
	p := NewPipeline(cache, quietUI(), WithTiers(&fakeTier{name: models.TierArxiv}))

	res, err := p.Resolve(context.Background(), testRef())
	require.NoError(t, err)
	assert.Equal(t, models.TierNone, res.Tier)
	assert.True(t, res.Meta.Empty())
	assert.Equal(t, 1, cache.puts, "definitive misses are cached")
}

func TestResolve_CacheHitSkipsTiers(t *testing.T) {
	hit := &models.ResolvedReference{
		Tier: models.TierSemanticScholar,
		Meta: models.PaperMeta{Title: "A Study of Things"},
	}
	tier := &fakeTier{name: models.TierSemanticScholar, res: hit}
	cache := newMemCache()
	p := NewPipeline(cache, quietUI(), WithTiers(tier))

	first, err := p.Resolve(context.Background(), testRef())
	require.NoError(t, err)
	require.Equal(t, 1, tier.calls)

	second, err := p.Resolve(context.Background(), testRef())
	require.NoError(t, err)

	assert.Equal(t, 1, tier.calls, "second resolve must not touch any tier")
	assert.Equal(t, first.Meta, second.Meta)
	assert.Equal(t, models.TierSemanticScholar, second.Tier, "stored tier survives the cache round trip")
	assert.Equal(t, "smith2020", second.Key)
}

func TestResolve_CachedMissStaysAMiss(t *testing.T) {
	tier := &fakeTier{name: models.TierArxiv}
	p := NewPipeline(newMemCache(), quietUI(), WithTiers(tier))
	ctx := context.Background()

	_, err := p.Resolve(ctx, testRef())
	require.NoError(t, err)

	res, err := p.Resolve(ctx, testRef())
	require.NoError(t, err)
	assert.Equal(t, models.TierNone, res.Tier)
	assert.Equal(t, 1, tier.calls, "the expensive miss is not repeated")
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tier := &fakeTier{name: models.TierArxiv}
	p := NewPipeline(newMemCache(), quietUI(), WithTiers(tier))

	_, err := p.Resolve(ctx, testRef())
	require.Error(t, err)
	assert.Equal(t, 0, tier.calls)
}

func TestResolve_ClockOverride(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hit := &models.ResolvedReference{Tier: models.TierArxiv, Meta: models.PaperMeta{Title: "T"}}
	p := NewPipeline(newMemCache(), quietUI(),
		WithTiers(&fakeTier{name: models.TierArxiv, res: hit}),
		WithClock(func() time.Time { return fixed }),
	)

	res, err := p.Resolve(context.Background(), testRef())
	require.NoError(t, err)
	assert.Equal(t, fixed, res.FetchedAt)
}

func TestResolveAll_FillsFetchedContent(t *testing.T) {
	hit := &models.ResolvedReference{
		Tier: models.TierArxiv,
		Meta: models.PaperMeta{Title: "A Study of Things", Abstract: "We study things."},
	}
	p := NewPipeline(newMemCache(), quietUI(), WithTiers(&fakeTier{name: models.TierArxiv, res: hit}))

	refs := []*models.Reference{
		{Key: "smith2020", EntryText: "J. Smith, A Study of Things, 2020."},
	}
	p.ResolveAll(context.Background(), refs)

	require.NotEmpty(t, refs[0].FetchedContent)
	assert.Contains(t, refs[0].FetchedContent, "A Study of Things")
	assert.Contains(t, refs[0].FetchedContent, "We study things.")
}

func TestDefaultTierChain(t *testing.T) {
	p := NewPipeline(newMemCache(), quietUI())
	require.Len(t, p.tiers, 3)
	assert.Equal(t, models.TierArxiv, p.tiers[0].Name())
	assert.Equal(t, models.TierSemanticScholar, p.tiers[1].Name())
	assert.Equal(t, models.TierCrossref, p.tiers[2].Name())

	withLocal := NewPipeline(newMemCache(), quietUI(),
		WithPaperStore(NewPaperStore(t.TempDir(), quietUI())))
	require.Len(t, withLocal.tiers, 4)
	assert.Equal(t, models.TierLocal, withLocal.tiers[0].Name())
}
