package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"solbank/pkg/model"
	"solbank/pkg/store"
)

// GoalRepo provides typed access to the savings goals collection.
type GoalRepo struct {
	store store.Store
	now   func() time.Time
	mu    *sync.Mutex
}

// All returns every stored goal.
func (r *GoalRepo) All(ctx context.Context) ([]model.SavingsGoal, error) {
	return loadList[model.SavingsGoal](ctx, r.store, store.KeyGoals)
}

// ByUser returns the goals owned by the given user.
func (r *GoalRepo) ByUser(ctx context.Context, userID string) ([]model.SavingsGoal, error) {
	goals, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.SavingsGoal
	for _, g := range goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

// ReplaceAll overwrites the local collection with a backend snapshot,
// keeping higher local versions so queued edits survive the refresh.
func (r *GoalRepo) ReplaceAll(ctx context.Context, goals []model.SavingsGoal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := loadList[model.SavingsGoal](ctx, r.store, store.KeyGoals)
	if err != nil {
		return err
	}
	versions := make(map[string]int64, len(existing))
	for _, g := range existing {
		versions[g.ID] = g.Version
	}
	for i := range goals {
		if v, ok := versions[goals[i].ID]; ok && v > goals[i].Version {
			goals[i].Version = v
		}
	}
	return saveList(ctx, r.store, store.KeyGoals, goals)
}

// ByID returns the goal with the given id, or ErrNotFound.
func (r *GoalRepo) ByID(ctx context.Context, id string) (model.SavingsGoal, error) {
	goals, err := r.All(ctx)
	if err != nil {
		return model.SavingsGoal{}, err
	}
	for _, g := range goals {
		if g.ID == id {
			return g, nil
		}
	}
	return model.SavingsGoal{}, fmt.Errorf("%w: goal %s", ErrNotFound, id)
}

// Create assigns an id and version 1, then persists.
func (r *GoalRepo) Create(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	goals, err := r.All(ctx)
	if err != nil {
		return model.SavingsGoal{}, err
	}

	goal.ID = uuid.NewString()
	goal.Version = 1
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = r.now()
	}
	if goal.Status == "" {
		goal.Status = model.GoalActive
	}

	goals = append(goals, goal)
	if err := saveList(ctx, r.store, store.KeyGoals, goals); err != nil {
		return model.SavingsGoal{}, err
	}
	return goal, nil
}

// Update replaces the stored goal if the caller's Version matches.
func (r *GoalRepo) Update(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	goals, err := r.All(ctx)
	if err != nil {
		return model.SavingsGoal{}, err
	}

	for i, g := range goals {
		if g.ID != goal.ID {
			continue
		}
		if g.Version != goal.Version {
			return model.SavingsGoal{}, fmt.Errorf("%w: goal %s at version %d, expected %d",
				store.ErrVersionConflict, goal.ID, g.Version, goal.Version)
		}
		goal.Version++
		goals[i] = goal
		if err := saveList(ctx, r.store, store.KeyGoals, goals); err != nil {
			return model.SavingsGoal{}, err
		}
		return goal, nil
	}
	return model.SavingsGoal{}, fmt.Errorf("%w: goal %s", ErrNotFound, goal.ID)
}

// Delete removes the goal with the given id, or returns ErrNotFound.
func (r *GoalRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	goals, err := r.All(ctx)
	if err != nil {
		return err
	}

	for i, g := range goals {
		if g.ID == id {
			goals = append(goals[:i], goals[i+1:]...)
			return saveList(ctx, r.store, store.KeyGoals, goals)
		}
	}
	return fmt.Errorf("%w: goal %s", ErrNotFound, id)
}
