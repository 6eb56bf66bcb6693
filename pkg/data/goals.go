package data

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solbank/pkg/model"
)

// Goals lists savings goals, backend-first with a local snapshot refresh.
func (s *Service) Goals(ctx context.Context) ([]model.SavingsGoal, error) {
	if s.Online() {
		goals, err := s.remote.GetGoals(ctx)
		if err == nil {
			if cacheErr := s.repos.Goals.ReplaceAll(ctx, goals); cacheErr != nil {
				s.logger.Warn("cache goals snapshot", zap.Error(cacheErr))
			}
			return goals, nil
		}
		s.degrade(ctx, "goals", err)
	}
	return s.repos.Goals.All(ctx)
}

// CreateGoal creates the goal locally, then pushes or queues it.
func (s *Service) CreateGoal(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	created, err := s.repos.Goals.Create(ctx, goal)
	if err != nil {
		return model.SavingsGoal{}, err
	}
	s.pushOrEnqueue(ctx, "goals",
		func() error { _, err := s.remote.CreateGoal(ctx, created); return err },
		func() { s.queue.EnqueueCreateGoal(ctx, created) })
	return created, nil
}

// UpdateGoal applies a goal update locally, then pushes or queues it.
func (s *Service) UpdateGoal(ctx context.Context, goal model.SavingsGoal) (model.SavingsGoal, error) {
	updated, err := s.repos.Goals.Update(ctx, goal)
	if err != nil {
		return model.SavingsGoal{}, err
	}
	s.pushOrEnqueue(ctx, "goals",
		func() error { _, err := s.remote.UpdateGoal(ctx, updated.ID, updated); return err },
		func() { s.queue.EnqueueUpdateGoal(ctx, updated.ID, updated) })
	return updated, nil
}

// DeleteGoal removes the goal locally, then pushes or queues the deletion.
func (s *Service) DeleteGoal(ctx context.Context, id string) error {
	if err := s.repos.Goals.Delete(ctx, id); err != nil {
		return err
	}
	s.pushOrEnqueue(ctx, "goals",
		func() error { return s.remote.DeleteGoal(ctx, id) },
		func() { s.queue.EnqueueDeleteGoal(ctx, id) })
	return nil
}

// ContributeToGoal moves amount from the goal's linked account into the goal:
// the account is debited with a transaction record and the goal's progress
// advances, completing it when the target is reached. Both writes follow the
// usual push-or-queue path.
func (s *Service) ContributeToGoal(ctx context.Context, goalID string, amount float64) (model.SavingsGoal, error) {
	if amount <= 0 {
		return model.SavingsGoal{}, fmt.Errorf("data: contribution must be positive, got %v", amount)
	}
	goal, err := s.repos.Goals.ByID(ctx, goalID)
	if err != nil {
		return model.SavingsGoal{}, err
	}
	if goal.Status != model.GoalActive {
		return model.SavingsGoal{}, fmt.Errorf("data: goal %s is %s, not active", goalID, goal.Status)
	}
	account, err := s.repos.Accounts.ByID(ctx, goal.AccountID)
	if err != nil {
		return model.SavingsGoal{}, err
	}
	if account.Balance < amount {
		return model.SavingsGoal{}, fmt.Errorf("data: account %s balance %v cannot cover contribution %v", account.ID, account.Balance, amount)
	}

	if _, err := s.RecordTransaction(ctx, goal.AccountID, model.Transaction{
		Amount:      -amount,
		Kind:        model.TxPayment,
		Status:      model.StatusCompleted,
		Timestamp:   s.clock(),
		Description: "Contribution to " + goal.Name,
	}); err != nil {
		return model.SavingsGoal{}, err
	}

	goal.CurrentAmount += amount
	if goal.TargetAmount > 0 {
		goal.Progress = goal.CurrentAmount / goal.TargetAmount * 100
	}
	if goal.CurrentAmount >= goal.TargetAmount {
		goal.Status = model.GoalCompleted
		s.logger.Info("savings goal completed", zap.String("goal", goal.ID), zap.String("name", goal.Name))
	}
	return s.UpdateGoal(ctx, goal)
}

// RunAutoSave fires every due auto-save rule: each one contributes its amount
// to its goal and its next run advances past now. Returns the number of
// contributions made. Individual failures are logged and skipped so one
// underfunded account cannot stall the rest.
func (s *Service) RunAutoSave(ctx context.Context) (int, error) {
	goals, err := s.repos.Goals.All(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock()
	fired := 0
	for _, goal := range goals {
		if goal.Status != model.GoalActive || goal.AutoSave == nil || goal.AutoSave.NextRun.After(now) {
			continue
		}
		rule := *goal.AutoSave
		updated, err := s.ContributeToGoal(ctx, goal.ID, rule.Amount)
		if err != nil {
			s.logger.Warn("auto-save skipped", zap.String("goal", goal.ID), zap.Error(err))
			continue
		}
		fired++
		if updated.AutoSave == nil {
			continue
		}
		next := rule.NextRun
		for !next.After(now) {
			switch rule.Frequency {
			case model.AutoSaveMonthly:
				next = next.AddDate(0, 1, 0)
			default:
				next = next.AddDate(0, 0, 7)
			}
		}
		updated.AutoSave.NextRun = next
		if _, err := s.UpdateGoal(ctx, updated); err != nil {
			s.logger.Warn("auto-save reschedule", zap.String("goal", goal.ID), zap.Error(err))
		}
	}
	return fired, nil
}
