// Package qdrant implements storage.ChunkRepository on top of the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

const upsertBatchSize = 256

// Config describes how to reach a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// ChunkRepository stores chunks as Qdrant points whose payload carries the
// chunk fields. Searches are filtered on the keyword-indexed source field.
type ChunkRepository struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
	logger     *slog.Logger
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a client for cfg.Collection. No request is made
// until EnsureCollection.
func NewChunkRepository(cfg Config) (*ChunkRepository, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", storage.ErrInvalidQuery)
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: bad qdrant url %q", storage.ErrInvalidQuery, cfg.URL)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ChunkRepository{
		baseURL:    u.String(),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant-chunks", "collection", cfg.Collection),
	}, nil
}

// Close releases idle connections.
func (r *ChunkRepository) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// EnsureCollection creates the collection with cosine distance and a keyword
// index on source. An existing collection is reused.
func (r *ChunkRepository) EnsureCollection(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("%w: dimensions must be positive", storage.ErrInvalidQuery)
	}
	body := map[string]any{
		"vectors": map[string]any{"size": dimensions, "distance": "Cosine"},
	}
	err := r.do(ctx, http.MethodPut, r.path(""), body, nil)
	var apiErr *apiError
	switch {
	case err == nil:
		r.logger.Info("created collection", "dimensions", dimensions)
	case errors.As(err, &apiErr) && apiErr.alreadyExists():
		r.logger.Debug("collection exists")
	default:
		return err
	}

	index := map[string]any{"field_name": "source", "field_schema": "keyword"}
	if err := r.do(ctx, http.MethodPut, r.path("/index?wait=true"), index, nil); err != nil {
		return err
	}
	return nil
}

type point struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// UpsertRecords writes records as points keyed by their content ID.
func (r *ChunkRepository) UpsertRecords(ctx context.Context, records []*core.EmbeddingRecord) error {
	for _, rec := range records {
		if err := core.ValidateSource(rec.Source); err != nil {
			return err
		}
	}
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		points := make([]point, 0, end-start)
		for _, rec := range records[start:end] {
			points = append(points, point{
				ID:     uint64(rec.Id),
				Vector: rec.Vector,
				Payload: map[string]any{
					"source":  rec.Source,
					"text":    rec.Text,
					"index":   rec.Index,
					"offset":  rec.Offset,
					"overlap": rec.Overlap,
				},
			})
		}
		body := map[string]any{"points": points}
		if err := r.do(ctx, http.MethodPut, r.path("/points?wait=true"), body, nil); err != nil {
			return err
		}
	}
	r.logger.Debug("upserted records", "count", len(records))
	return nil
}

type payload struct {
	Source  string `json:"source"`
	Text    string `json:"text"`
	Index   int    `json:"index"`
	Offset  int    `json:"offset"`
	Overlap int    `json:"overlap"`
}

type scoredPoint struct {
	Score   float32 `json:"score"`
	Payload payload `json:"payload"`
}

// FindSimilar runs a filtered search restricted to source.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, source string, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if err := core.ValidateSource(source); err != nil {
		return nil, err
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter":       sourceFilter(source),
	}
	var hits []scoredPoint
	if err := r.do(ctx, http.MethodPost, r.path("/points/search"), body, &hits); err != nil {
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Payload.Source != source {
			r.logger.Warn("search returned point of another source", "want", source, "got", h.Payload.Source)
			continue
		}
		results = append(results, &core.SearchResult{
			Chunk: core.Chunk{
				Source:  h.Payload.Source,
				Text:    h.Payload.Text,
				Index:   h.Payload.Index,
				Offset:  h.Payload.Offset,
				Overlap: h.Payload.Overlap,
			},
			Score: h.Score,
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountBySource returns the exact number of points of source.
func (r *ChunkRepository) CountBySource(ctx context.Context, source string) (int, error) {
	if err := core.ValidateSource(source); err != nil {
		return 0, err
	}
	body := map[string]any{"filter": sourceFilter(source), "exact": true}
	var result struct {
		Count int `json:"count"`
	}
	if err := r.do(ctx, http.MethodPost, r.path("/points/count"), body, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// DeleteBySource removes every point of source.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, source string) error {
	if err := core.ValidateSource(source); err != nil {
		return err
	}
	body := map[string]any{"filter": sourceFilter(source)}
	return r.do(ctx, http.MethodPost, r.path("/points/delete?wait=true"), body, nil)
}

func sourceFilter(source string) map[string]any {
	return map[string]any{
		"must": []map[string]any{{
			"key":   "source",
			"match": map[string]any{"value": source},
		}},
	}
}

func (r *ChunkRepository) path(suffix string) string {
	return r.baseURL + "/collections/" + url.PathEscape(r.collection) + suffix
}

// qdrantStatus supports both `status: "ok"` and `status: {"error":"..."}`.
type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type envelope struct {
	Status qdrantStatus    `json:"status"`
	Result json.RawMessage `json:"result"`
}

// apiError is a non-2xx answer from Qdrant.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant: http %d: %s", e.StatusCode, e.Message)
}

func (e *apiError) alreadyExists() bool {
	return e.StatusCode == http.StatusConflict || strings.Contains(strings.ToLower(e.Message), "already exists")
}

func (r *ChunkRepository) do(ctx context.Context, method, target string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("api-key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var env envelope
	parseErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Status.Error
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return &apiError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if parseErr != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, parseErr)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return nil
}
