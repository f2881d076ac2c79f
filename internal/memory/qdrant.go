package memory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lailabot/laila/pkg/models"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// URL is the server address (e.g. "https://example.qdrant.io:6334").
	URL        string
	APIKey     string
	Collection string
}

// QdrantDriver stores memories as Qdrant points. The collection must
// exist with the embedding dimensionality; creating it is a deployment
// concern, like provisioning the database for pgvector.
type QdrantDriver struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantDriver creates a Qdrant-backed memory driver.
func NewQdrantDriver(cfg QdrantConfig) (*QdrantDriver, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsed := cfg.URL
	if !strings.HasPrefix(parsed, "http://") && !strings.HasPrefix(parsed, "https://") {
		parsed = "https://" + parsed
	}
	u, err := url.Parse(parsed)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}

	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &QdrantDriver{client: client, collection: cfg.Collection}, nil
}

func (d *QdrantDriver) Kind() string { return "qdrant" }

func (d *QdrantDriver) Insert(ctx context.Context, mem models.Memory) error {
	now := mem.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}

	payload := map[string]any{
		"content":    mem.Content,
		"created_at": now.Format(time.RFC3339),
	}
	for k, v := range mem.Metadata {
		payload[k] = v
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(mem.ID),
		Vectors: qdrant.NewVectors(toFloat32(mem.Embedding)...),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (d *QdrantDriver) QuerySimilar(ctx context.Context, embedding []float64, topK int) ([]models.MemoryHit, error) {
	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(toFloat32(embedding)...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	hits := make([]models.MemoryHit, 0, len(points))
	for _, point := range points {
		mem := models.Memory{Metadata: map[string]string{}}
		if point.Id != nil {
			mem.ID = point.Id.GetUuid()
		}
		for k, v := range point.Payload {
			switch k {
			case "content":
				mem.Content = v.GetStringValue()
			case "created_at":
				if ts, err := time.Parse(time.RFC3339, v.GetStringValue()); err == nil {
					mem.CreatedAt = ts
				}
			default:
				if s := v.GetStringValue(); s != "" {
					mem.Metadata[k] = s
				}
			}
		}
		hits = append(hits, models.MemoryHit{Memory: mem, Score: float64(point.Score)})
	}
	return hits, nil
}

func (d *QdrantDriver) HealthCheck(ctx context.Context) error {
	_, err := d.client.HealthCheck(ctx)
	return err
}

func (d *QdrantDriver) Close() error {
	return d.client.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
