package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"

	"go.uber.org/zap"
)

var ErrActivityNotFound = errors.New("activity not found")

// ActivityRepository is the one-shot counterpart of activitylist.Store, used
// by request/response handlers that do not hold a live subscription.
type ActivityRepository interface {
	// ListDay returns the day's activities in display order under the policy.
	ListDay(ctx context.Context, key activitylist.Key) ([]domain.Activity, error)
	Get(ctx context.Context, userID, itineraryID, id string) (*domain.Activity, error)
	Create(ctx context.Context, key activitylist.Key, draft domain.ActivityDraft, order int) (*domain.Activity, error)
	Update(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.Activity, error)
	Delete(ctx context.Context, userID, itineraryID, id string) error
	// WriteOrders persists reorder writes as one atomic batch.
	WriteOrders(ctx context.Context, key activitylist.Key, writes []activitylist.OrderWrite) error
}

type activityRepository struct {
	client     docstore.Client
	activities collection[domain.Activity]
	policy     activitylist.SortPolicy
	logger     *zap.Logger
}

func NewActivityRepository(client docstore.Client, policy activitylist.SortPolicy, logger *zap.Logger) ActivityRepository {
	return &activityRepository{
		client:     client,
		activities: collection[domain.Activity]{client: client, kind: "activity"},
		policy:     policy,
		logger:     logger,
	}
}

func (r *activityRepository) ListDay(ctx context.Context, key activitylist.Key) ([]domain.Activity, error) {
	docs, err := r.client.Query(ctx, r.policy.DayQuery(key))
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	list, errs := activitylist.Decode(docs)
	for _, err := range errs {
		r.logger.Warn("skipping undecodable activity", zap.Stringer("key", key), zap.Error(err))
	}
	r.policy.Arrange(list)
	return list, nil
}

func (r *activityRepository) Get(ctx context.Context, userID, itineraryID, id string) (*domain.Activity, error) {
	a, err := r.activities.get(ctx, domain.ActivitiesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

func (r *activityRepository) Create(ctx context.Context, key activitylist.Key, draft domain.ActivityDraft, order int) (*domain.Activity, error) {
	return r.activities.create(ctx, domain.ActivitiesPath(key.UserID, key.ItineraryID),
		activitylist.NewActivityFields(draft, key.Day, order))
}

func (r *activityRepository) Update(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.Activity, error) {
	a, err := r.activities.update(ctx, domain.ActivitiesPath(userID, itineraryID), id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

func (r *activityRepository) Delete(ctx context.Context, userID, itineraryID, id string) error {
	err := r.activities.delete(ctx, domain.ActivitiesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrActivityNotFound
	}
	return err
}

func (r *activityRepository) WriteOrders(ctx context.Context, key activitylist.Key, writes []activitylist.OrderWrite) error {
	if len(writes) == 0 {
		return nil
	}
	if err := r.client.BatchWrite(ctx, activitylist.OrderBatch(key, writes)); err != nil {
		return fmt.Errorf("failed to write activity orders: %w", err)
	}
	return nil
}
