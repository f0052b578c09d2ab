package survey

import (
	"context"
	"fmt"

	"crsurvey/internal/models"
	"crsurvey/internal/store"
)

// Resolver computes which review items an evaluator sees, and in what order.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// ResolveAssignedItems returns the evaluator's assigned review items with
// every unanswered item ahead of every answered one, original relative order
// preserved within each group. An item counts as answered as soon as any
// response exists for its hash. A resuming participant therefore lands on
// their first unanswered item at index 0 without a persisted pointer.
func (r *Resolver) ResolveAssignedItems(ctx context.Context, evaluatorUUID string) ([]*models.ReviewItem, error) {
	e, err := r.store.GetEvaluatorByUUID(ctx, evaluatorUUID)
	if err != nil {
		return nil, err
	}

	ids, err := r.store.ListAssignedReviewIDs(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	answered, err := r.store.ListAnsweredHashes(ctx, evaluatorUUID)
	if err != nil {
		return nil, err
	}

	items, err := r.store.ListReviewItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.ReviewItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var unanswered, done []*models.ReviewItem
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("assigned review item missing: %s", id)
		}
		if answered[item.Hash] {
			done = append(done, item)
		} else {
			unanswered = append(unanswered, item)
		}
	}
	return append(unanswered, done...), nil
}
