package sync

import (
	"context"
	"fmt"
	"sync"
)

// Keyed is a record carrying an upstream-issued natural key.
type Keyed interface {
	NaturalKey() string
}

// Store is the slice of the persistence contract the reconciler needs.
// Implementations live in internal/db; tests inject doubles.
type Store[T Keyed] interface {
	FindManyByKeys(ctx context.Context, keys []string) ([]T, error)
	CreateMany(ctx context.Context, records []T) (int64, error)
	Update(ctx context.Context, key string, record T) (T, error)
}

// Failure is one record that could not be synchronized, keyed by its raw
// upstream identifier.
type Failure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Result is the itemized outcome of one sync cycle. Partial success is
// reported per record rather than as a single pass/fail.
type Result struct {
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Failed  []Failure `json:"failed"`
}

// Reconcile diffs a normalized batch against the store and issues the
// minimal set of writes: one bulk key lookup, one batched create for the
// unknown subset, and one update per known key. Updates target disjoint rows
// and run concurrently under the worker cap. A failed write never aborts the
// batch; failures are collected into the result.
//
// Running Reconcile twice with an unchanged input leaves the store in the
// same observable state.
func Reconcile[T Keyed](ctx context.Context, store Store[T], records []T, workers int) (*Result, error) {
	result := &Result{Failed: []Failure{}}
	if len(records) == 0 {
		return result, nil
	}
	if workers <= 0 {
		workers = 1
	}

	// Dedupe within the batch so a repeated upstream key cannot race the
	// create path against itself; last occurrence wins.
	keys := make([]string, 0, len(records))
	byKey := make(map[string]T, len(records))
	for _, rec := range records {
		key := rec.NaturalKey()
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = rec
	}

	// Single bulk lookup instead of one existence check per record.
	existing, err := store.FindManyByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to look up existing records: %w", err)
	}
	existingKeys := make(map[string]bool, len(existing))
	for _, rec := range existing {
		existingKeys[rec.NaturalKey()] = true
	}

	var toCreate []T
	var toUpdate []T
	for _, key := range keys {
		if existingKeys[key] {
			toUpdate = append(toUpdate, byKey[key])
		} else {
			toCreate = append(toCreate, byKey[key])
		}
	}

	if len(toCreate) > 0 {
		created, err := store.CreateMany(ctx, toCreate)
		if err != nil {
			for _, rec := range toCreate {
				result.Failed = append(result.Failed, Failure{
					Key:    rec.NaturalKey(),
					Reason: err.Error(),
				})
			}
		} else {
			result.Created = int(created)
		}
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, workers)
	)
	for _, rec := range toUpdate {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(rec T) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := store.Update(ctx, rec.NaturalKey(), rec)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, Failure{
					Key:    rec.NaturalKey(),
					Reason: err.Error(),
				})
			} else {
				result.Updated++
			}
		}(rec)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
