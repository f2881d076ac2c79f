package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/lailabot/laila/pkg/models"
)

// EmbeddedDriver is a lightweight in-memory store using brute-force
// cosine similarity. Suitable for development, tests, and small
// workloads; for production use pgvector, qdrant, or supabase.
type EmbeddedDriver struct {
	mu   sync.RWMutex
	docs map[string]models.Memory
}

// NewEmbeddedDriver creates an in-memory memory store.
func NewEmbeddedDriver() *EmbeddedDriver {
	return &EmbeddedDriver{docs: make(map[string]models.Memory)}
}

func (d *EmbeddedDriver) Kind() string { return "embedded" }

func (d *EmbeddedDriver) Insert(_ context.Context, mem models.Memory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	d.docs[mem.ID] = mem
	return nil
}

func (d *EmbeddedDriver) QuerySimilar(_ context.Context, embedding []float64, topK int) ([]models.MemoryHit, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var hits []models.MemoryHit
	for _, doc := range d.docs {
		if len(doc.Embedding) != len(embedding) {
			continue
		}
		hits = append(hits, models.MemoryHit{
			Memory: doc,
			Score:  cosineSimilarity(embedding, doc.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (d *EmbeddedDriver) HealthCheck(_ context.Context) error { return nil }

func (d *EmbeddedDriver) Close() error { return nil }

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
