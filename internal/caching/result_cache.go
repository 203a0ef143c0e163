package caching

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mediguard-triage-server/internal/domain"
)

// ResultCache memoizes triage results keyed by the canonical panel
// fingerprint, so identical submissions skip the classification
// pipeline. Backed by an LRU with a fixed entry budget.
type ResultCache struct {
	cache *lru.Cache[string, *domain.TriageResult]

	statsMutex sync.RWMutex
	stats      CacheStats
}

// CacheStats tracks cache performance counters
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// NewResultCache creates a cache holding at most size results
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		size = 1024
	}

	rc := &ResultCache{}
	cache, err := lru.NewWithEvict[string, *domain.TriageResult](size,
		func(string, *domain.TriageResult) {
			rc.statsMutex.Lock()
			rc.stats.Evictions++
			rc.statsMutex.Unlock()
		})
	if err != nil {
		return nil, err
	}
	rc.cache = cache
	return rc, nil
}

// Fingerprint derives a stable cache key from a panel. Keys are sorted
// so field ordering in the input never changes the fingerprint.
func Fingerprint(panel domain.BiomarkerPanel) string {
	ids := make([]string, 0, len(panel))
	for id := range panel {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(panel[id], 'g', -1, 64))
		b.WriteByte(';')
	}

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached result by fingerprint
func (rc *ResultCache) Get(key string) (*domain.TriageResult, bool) {
	result, ok := rc.cache.Get(key)

	rc.statsMutex.Lock()
	if ok {
		rc.stats.Hits++
	} else {
		rc.stats.Misses++
	}
	rc.statsMutex.Unlock()

	return result, ok
}

// Add stores a result under its fingerprint
func (rc *ResultCache) Add(key string, result *domain.TriageResult) {
	rc.cache.Add(key, result)
}

// Purge removes all cached results and resets counters
func (rc *ResultCache) Purge() {
	rc.cache.Purge()

	rc.statsMutex.Lock()
	rc.stats = CacheStats{}
	rc.statsMutex.Unlock()
}

// Len returns the number of cached results
func (rc *ResultCache) Len() int {
	return rc.cache.Len()
}

// Stats returns a snapshot of the performance counters
func (rc *ResultCache) Stats() CacheStats {
	rc.statsMutex.RLock()
	defer rc.statsMutex.RUnlock()
	return rc.stats
}

// HitRatio calculates the cache hit ratio
func (rc *ResultCache) HitRatio() float64 {
	rc.statsMutex.RLock()
	defer rc.statsMutex.RUnlock()

	total := rc.stats.Hits + rc.stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(rc.stats.Hits) / float64(total)
}
