package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// embedCache wraps an Embedder and caches vectors by text hash.
// It is safe for concurrent use. Eviction is FIFO.
type embedCache struct {
	base     domain.Embedder
	capacity int
	mu       sync.RWMutex
	m        map[string][]float32
	ord      []string
}

// NewEmbedCache wraps base with an embedding cache of given capacity (number of entries).
// If capacity <= 0, base is returned unmodified.
func NewEmbedCache(base domain.Embedder, capacity int) domain.Embedder {
	if capacity <= 0 || base == nil {
		return base
	}
	return &embedCache{base: base, capacity: capacity, m: make(map[string][]float32), ord: make([]string, 0, capacity)}
}

func (c *embedCache) Embed(ctx domain.Context, text string) ([]float32, error) {
	k := Fingerprint(strings.TrimSpace(text))
	c.mu.RLock()
	v, ok := c.m[k]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	vec, err := c.base.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.put(k, vec)
	}
	return vec, nil
}

func (c *embedCache) put(k string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[k]; exists {
		return
	}
	if len(c.ord) >= c.capacity {
		old := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, old)
	}
	c.m[k] = vec
	c.ord = append(c.ord, k)
}

// Fingerprint is a hex sha256 of s.
func Fingerprint(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

type gatedEmbedder struct {
	base domain.Embedder
	gate Gate
}

// NewGatedEmbedder charges every call to base against gate.
func NewGatedEmbedder(base domain.Embedder, gate Gate) domain.Embedder {
	if gate == nil {
		return base
	}
	return &gatedEmbedder{base: base, gate: gate}
}

func (g *gatedEmbedder) Embed(ctx domain.Context, text string) ([]float32, error) {
	if err := g.gate.CheckAndWait(ctx); err != nil {
		return nil, err
	}
	return g.base.Embed(ctx, text)
}
