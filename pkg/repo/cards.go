package repo

import (
	"context"
	"sync"

	"solbank/pkg/model"
	"solbank/pkg/store"
)

// CardRepo provides read access to the cards collection. Cards are listed on
// the dashboard but never mutated through this pipeline.
type CardRepo struct {
	store store.Store
	mu    *sync.Mutex
}

// All returns every stored card.
func (r *CardRepo) All(ctx context.Context) ([]model.Card, error) {
	return loadList[model.Card](ctx, r.store, store.KeyCards)
}

// ByUser returns the cards owned by the given user.
func (r *CardRepo) ByUser(ctx context.Context, userID string) ([]model.Card, error) {
	cards, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Card
	for _, c := range cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Seed replaces the cards collection. Used by imports and tests.
func (r *CardRepo) Seed(ctx context.Context, cards []model.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return saveList(ctx, r.store, store.KeyCards, cards)
}
