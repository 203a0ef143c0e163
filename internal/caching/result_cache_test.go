package caching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediguard-triage-server/internal/domain"
)

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(domain.BiomarkerPanel{"hemoglobin": 8.5, "lactate": 6.5})
	b := Fingerprint(domain.BiomarkerPanel{"lactate": 6.5, "hemoglobin": 8.5})
	assert.Equal(t, a, b)
}

func TestFingerprint_DistinguishesValues(t *testing.T) {
	a := Fingerprint(domain.BiomarkerPanel{"hemoglobin": 8.5})
	b := Fingerprint(domain.BiomarkerPanel{"hemoglobin": 8.6})
	c := Fingerprint(domain.BiomarkerPanel{"lactate": 8.5})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestResultCache_GetAdd(t *testing.T) {
	cache, err := NewResultCache(4)
	require.NoError(t, err)

	key := Fingerprint(domain.BiomarkerPanel{"hemoglobin": 8.5})
	result := &domain.TriageResult{}

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Add(key, result)
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Same(t, result, got)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, cache.HitRatio())
}

func TestResultCache_Eviction(t *testing.T) {
	cache, err := NewResultCache(2)
	require.NoError(t, err)

	cache.Add("a", &domain.TriageResult{})
	cache.Add("b", &domain.TriageResult{})
	cache.Add("c", &domain.TriageResult{})

	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, int64(1), cache.Stats().Evictions)

	// Oldest entry was dropped
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestResultCache_Purge(t *testing.T) {
	cache, err := NewResultCache(4)
	require.NoError(t, err)

	cache.Add("a", &domain.TriageResult{})
	cache.Get("a")
	cache.Purge()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, CacheStats{}, cache.Stats())
	assert.Equal(t, 0.0, cache.HitRatio())
}

func TestResultCache_DefaultSize(t *testing.T) {
	cache, err := NewResultCache(0)
	require.NoError(t, err)
	assert.NotNil(t, cache)
}
