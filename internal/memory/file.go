package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lailabot/laila/pkg/models"
)

// FileDriver persists memories to a single JSON file, the standalone
// deployment variant that needs no external database. Similarity search
// is brute-force cosine over the loaded records.
type FileDriver struct {
	mu   sync.Mutex
	path string
	docs map[string]models.Memory
}

// NewFileDriver loads (or initializes) the JSON file at path.
func NewFileDriver(path string) (*FileDriver, error) {
	if path == "" {
		return nil, fmt.Errorf("memory file path is required")
	}

	d := &FileDriver{path: path, docs: make(map[string]models.Memory)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fresh store
	case err != nil:
		return nil, fmt.Errorf("read memory file: %w", err)
	default:
		var records []models.Memory
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode memory file: %w", err)
		}
		for _, rec := range records {
			d.docs[rec.ID] = rec
		}
	}
	return d, nil
}

func (d *FileDriver) Kind() string { return "file" }

func (d *FileDriver) Insert(_ context.Context, mem models.Memory) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if mem.CreatedAt.IsZero() {
		mem.CreatedAt = time.Now()
	}
	d.docs[mem.ID] = mem
	return d.flushLocked()
}

func (d *FileDriver) QuerySimilar(_ context.Context, embedding []float64, topK int) ([]models.MemoryHit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

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

// flushLocked writes the whole store atomically (temp file + rename).
func (d *FileDriver) flushLocked() error {
	records := make([]models.Memory, 0, len(d.docs))
	for _, rec := range d.docs {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory file: %w", err)
	}

	tmp := d.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write memory file: %w", err)
	}
	return os.Rename(tmp, d.path)
}

func (d *FileDriver) HealthCheck(_ context.Context) error { return nil }

func (d *FileDriver) Close() error { return nil }
