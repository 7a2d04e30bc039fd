package service

import (
	"context"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"

	"go.uber.org/zap"
)

// ActivityService serves one-shot activity requests. It applies the same
// validation, ordering and reorder planning as a live activitylist.Store.
type ActivityService struct {
	repo        repository.ActivityRepository
	itineraries *ItineraryService
	logger      *zap.Logger
}

func NewActivityService(repo repository.ActivityRepository, itineraries *ItineraryService, logger *zap.Logger) *ActivityService {
	return &ActivityService{repo: repo, itineraries: itineraries, logger: logger}
}

func (s *ActivityService) key(ctx context.Context, userID, itineraryID string, day int) (activitylist.Key, error) {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, day); err != nil {
		return activitylist.Key{}, err
	}
	return activitylist.Key{UserID: userID, ItineraryID: itineraryID, Day: day}, nil
}

func (s *ActivityService) List(ctx context.Context, userID, itineraryID string, day int) ([]domain.Activity, error) {
	key, err := s.key(ctx, userID, itineraryID, day)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDay(ctx, key)
}

// Create appends a validated draft to the day, its order being the current
// number of activities.
func (s *ActivityService) Create(ctx context.Context, userID, itineraryID string, day int, draft domain.ActivityDraft) (*domain.Activity, error) {
	if err := activitylist.ValidateDraft(draft); err != nil {
		return nil, err
	}
	key, err := s.key(ctx, userID, itineraryID, day)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.ListDay(ctx, key)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Create(ctx, key, draft, len(current))
	if err != nil {
		return nil, &activitylist.RemoteWriteError{Op: activitylist.OpAdd, Err: err}
	}
	return a, nil
}

func (s *ActivityService) Update(ctx context.Context, userID, itineraryID, id string, patch domain.ActivityPatch) (*domain.Activity, error) {
	if err := activitylist.ValidatePatch(patch); err != nil {
		return nil, err
	}
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	if patch.Empty() {
		a, err := s.repo.Get(ctx, userID, itineraryID, id)
		return a, translate(err)
	}

	a, err := s.repo.Update(ctx, userID, itineraryID, id, patch.Fields())
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// Delete removes one activity. The remaining orders keep their gap until the
// next reorder of that day.
func (s *ActivityService) Delete(ctx context.Context, userID, itineraryID, id string) error {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, userID, itineraryID, id))
}

// Reorder moves the activity at source to destination and writes the changed
// orders in one batch. It returns the day in its new order.
func (s *ActivityService) Reorder(ctx context.Context, userID, itineraryID string, day int, req domain.ReorderRequest) ([]domain.Activity, error) {
	key, err := s.key(ctx, userID, itineraryID, day)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.ListDay(ctx, key)
	if err != nil {
		return nil, err
	}
	plan, err := activitylist.PlanReorder(list, req.Source, req.Destination)
	if err != nil {
		return nil, err
	}
	if plan.Noop() {
		return plan.List, nil
	}

	if err := s.repo.WriteOrders(ctx, key, plan.Writes); err != nil {
		s.logger.Error("reorder failed", zap.Stringer("key", key), zap.Int("writes", len(plan.Writes)), zap.Error(err))
		return nil, &activitylist.RemoteWriteError{Op: activitylist.OpReorder, Err: err}
	}
	s.logger.Debug("reorder committed", zap.Stringer("key", key), zap.Int("writes", len(plan.Writes)))
	return plan.List, nil
}

// Move reassigns an activity to toDay and appends it there.
func (s *ActivityService) Move(ctx context.Context, userID, itineraryID, id string, toDay int) (*domain.Activity, error) {
	target, err := s.key(ctx, userID, itineraryID, toDay)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, userID, itineraryID, id)
	if err != nil {
		return nil, translate(err)
	}
	if a.Day == toDay {
		return a, nil
	}

	dest, err := s.repo.ListDay(ctx, target)
	if err != nil {
		return nil, err
	}
	moved, err := s.repo.Update(ctx, userID, itineraryID, id, map[string]interface{}{
		domain.FieldDay:   toDay,
		domain.FieldOrder: len(dest),
	})
	if err != nil {
		return nil, &activitylist.RemoteWriteError{Op: activitylist.OpMove, Err: err}
	}
	return moved, nil
}
