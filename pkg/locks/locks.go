// Package locks serialises writers over the entities a settlement touches.
//
// Callers acquire every key they need in one call, in the canonical order
// products (sorted by id), then sale, then customer. Implementations take
// keys strictly in the order given and release everything they hold when any
// key cannot be obtained.
package locks

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// Release frees every key taken by the matching Acquire call.
type Release func(ctx context.Context) error

// Locker acquires exclusive per-entity locks.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

func ProductKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func SaleKey(id uuid.UUID) string {
	return "sale:" + id.String()
}

func CustomerKey(id uuid.UUID) string {
	return "customer:" + id.String()
}

// ProductKeys returns de-duplicated product keys sorted by product id.
func ProductKeys(ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i].String() < unique[j].String()
	})
	keys := make([]string, 0, len(unique))
	for _, id := range unique {
		keys = append(keys, ProductKey(id))
	}
	return keys
}

// Dedupe keeps the first occurrence of each non-empty key.
func Dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func noopRelease(context.Context) error { return nil }

// Noop returns a Release that does nothing.
func Noop() Release {
	return noopRelease
}
