package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixstats/internal/shared"
)

// resolveInBatches splits ids into contiguous chunks of at most batchSize and
// merges each chunk's results into a single id-keyed map. Chunks are
// requested sequentially; an empty id list issues no requests. Ids missing
// from a chunk's response are simply absent from the merged map, so callers
// must treat absence as "no data available" rather than as an error.
func resolveInBatches[T any](ctx context.Context, ids []string, batchSize int, fetch func(context.Context, []string) (map[string]T, error)) (map[string]T, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive", shared.ErrInvalidArgument)
	}

	merged := make(map[string]T, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}

		records, err := fetch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}

		for id, record := range records {
			merged[id] = record
		}
	}

	return merged, nil
}

// DedupeIDs returns ids with duplicates and empty strings removed, preserving
// first-seen order.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var unique []string

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return unique
}
