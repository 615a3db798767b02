package sparql

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"wbgo/pkg/cache"
	"wbgo/pkg/wikibase"
)

// wbgetentities accepts at most 50 ids per request.
const batchSize = 50

// Resolver turns entity ids into fetched wikibase.Entity values via
// chunked wbgetentities calls. Responses are cached per chunk.
type Resolver struct {
	api    wikibase.Caller
	cache  cache.Cacher
	logger *slog.Logger
}

// NewResolver creates a resolver on top of an API caller.
func NewResolver(api wikibase.Caller, c cache.Cacher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{api: api, cache: c, logger: logger}
}

// Resolve fetches the given entities, keyed by their canonical id.
// Missing entities are skipped with a debug log, malformed records with a
// warning; the rest of the batch still resolves.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (map[string]*wikibase.Entity, error) {
	out := make(map[string]*wikibase.Entity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	// Sort ids so chunk boundaries and cache keys are stable regardless
	// of input order. Work on a copy to avoid side effects.
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	for i := 0; i < len(sorted); i += batchSize {
		end := i + batchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		if err := r.resolveChunk(ctx, sorted[i:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Resolver) resolveChunk(ctx context.Context, chunk []string, out map[string]*wikibase.Entity) error {
	hash := md5.Sum([]byte(strings.Join(chunk, "|")))
	cacheKey := fmt.Sprintf("wb_batch_%s", hex.EncodeToString(hash[:]))

	raw, hit := r.cache.GetCache(ctx, cacheKey)
	if !hit {
		resp, err := r.api.Call(ctx, "wbgetentities", map[string]any{"ids": chunk})
		if err != nil {
			return err
		}
		raw = resp
		if err := r.cache.SetCache(ctx, cacheKey, resp); err != nil {
			r.logger.Error("Failed to cache entity batch", "key", cacheKey, "error", err)
		}
	}

	var envelope struct {
		Entities map[string]json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode entity batch: %w", err)
	}

	for id, record := range envelope.Entities {
		ent, err := wikibase.EntityFromJSON(r.api, record)
		if errors.Is(err, wikibase.ErrEntityMissing) {
			r.logger.Debug("Entity missing", "id", id)
			continue
		}
		if err != nil {
			r.logger.Warn("Skipping malformed entity", "id", id, "error", err)
			continue
		}
		out[ent.ID()] = ent
	}
	return nil
}
