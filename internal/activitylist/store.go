// Package activitylist keeps the ordered activities of one itinerary day in
// sync with the document store and turns drag-and-drop moves into order
// writes.
package activitylist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"

	"go.uber.org/zap"
)

// Key selects the list a Store is attached to.
type Key struct {
	UserID      string
	ItineraryID string
	Day         int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/day-%d", k.UserID, k.ItineraryID, k.Day)
}

func (k Key) path() string {
	return domain.ActivitiesPath(k.UserID, k.ItineraryID)
}

func (k Key) validate() error {
	if k.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "is required"}
	}
	if k.ItineraryID == "" {
		return &ValidationError{Field: "itinerary_id", Message: "is required"}
	}
	if k.Day < 1 {
		return &ValidationError{Field: "day", Message: "must be a positive integer"}
	}
	return nil
}

type Options struct {
	Policy SortPolicy
	Logger *zap.Logger
	// OnChange receives a copy of the list after every replacement. It must
	// not call mutating Store methods.
	OnChange func(Key, []domain.Activity)
	// OnError receives subscription failures.
	OnError func(error)
}

// Store holds the ordered activities of the attached (itinerary, day). Remote
// snapshots replace the list wholesale; Remove, Reorder and Move change it
// optimistically and roll back when the backend rejects the write.
type Store struct {
	client docstore.Client
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	key      Key
	attached bool
	synced   bool
	gen      uint64
	version  uint64
	list     []domain.Activity
	sub      docstore.Subscription
	lastErr  error

	notifyMu sync.Mutex
}

func NewStore(client docstore.Client, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		opts:   opts,
		logger: logger.With(zap.String("component", "activitylist"), zap.Stringer("policy", opts.Policy)),
	}
}

// Attach tears down the current subscription, if any, and subscribes to key.
// A failed subscribe leaves the store attached but unsynced and returns a
// *SubscriptionError; list-dependent operations fail until a snapshot arrives.
func (s *Store) Attach(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.sub
	s.sub = nil
	s.gen++
	gen := s.gen
	s.key = key
	s.attached = true
	s.synced = false
	s.list = nil
	s.version++
	s.lastErr = nil
	s.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}

	sub, err := s.client.Subscribe(ctx, s.opts.Policy.DayQuery(key), func(snap docstore.Snapshot) {
		s.applySnapshot(gen, snap)
	})
	if err != nil {
		serr := &SubscriptionError{Key: key, Err: err}
		s.mu.Lock()
		current := s.gen == gen
		if current {
			s.lastErr = serr
		}
		s.mu.Unlock()
		if current {
			s.reportError(serr)
		}
		return serr
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	s.sub = sub
	s.mu.Unlock()

	s.logger.Debug("attached", zap.Stringer("key", key))
	return nil
}

// Detach stops the subscription. Callbacks still in flight become no-ops.
func (s *Store) Detach() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.gen++
	wasAttached := s.attached
	s.attached = false
	s.synced = false
	s.list = nil
	s.version++
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if wasAttached {
		s.logger.Debug("detached")
	}
}

func (s *Store) Key() (Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.attached
}

// List returns a copy of the current list.
func (s *Store) List() []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.list)
}

// Err returns the last subscription error, cleared by the next good snapshot.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) applySnapshot(gen uint64, snap docstore.Snapshot) {
	if snap.Err != nil {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		serr := &SubscriptionError{Key: s.key, Err: snap.Err}
		s.lastErr = serr
		s.mu.Unlock()

		s.reportError(serr)
		return
	}

	list, errs := Decode(snap.Docs)
	for _, err := range errs {
		s.logger.Warn("dropping undecodable activity", zap.Error(err))
	}
	s.opts.Policy.Arrange(list)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.list = list
	s.synced = true
	s.version++
	s.lastErr = nil
	s.mu.Unlock()

	s.publish()
}

// readyLocked reports why the current list cannot be trusted for an
// operation that derives orders or positions from it. s.mu must be held.
func (s *Store) readyLocked() error {
	switch {
	case !s.attached:
		return ErrNotAttached
	case s.synced:
		return nil
	case s.lastErr != nil:
		return s.lastErr
	}
	return ErrNotLoaded
}

func (s *Store) reportError(err error) {
	s.logger.Warn("live query failed, keeping last list", zap.Error(err))
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
}

// publish hands the current list to OnChange. It always reads the latest
// state, so concurrent publishes cannot deliver an older list last.
func (s *Store) publish() {
	if s.opts.OnChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	key, attached := s.key, s.attached
	list := clone(s.list)
	s.mu.Unlock()

	if attached {
		s.opts.OnChange(key, list)
	}
}

// ValidateDraft checks the fields required to create an activity.
func ValidateDraft(draft domain.ActivityDraft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return &ValidationError{Field: domain.FieldTitle, Message: "is required"}
	}
	if strings.TrimSpace(draft.Location) == "" {
		return &ValidationError{Field: domain.FieldLocation, Message: "is required"}
	}
	if err := validateClock(domain.FieldStartTime, draft.StartTime); err != nil {
		return err
	}
	return validateClock(domain.FieldEndTime, draft.EndTime)
}

// ValidatePatch rejects patches that blank out required fields.
func ValidatePatch(patch domain.ActivityPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return &ValidationError{Field: domain.FieldTitle, Message: "cannot be empty"}
	}
	if patch.Location != nil && strings.TrimSpace(*patch.Location) == "" {
		return &ValidationError{Field: domain.FieldLocation, Message: "cannot be empty"}
	}
	if patch.StartTime != nil {
		if err := validateClock(domain.FieldStartTime, *patch.StartTime); err != nil {
			return err
		}
	}
	if patch.EndTime != nil {
		return validateClock(domain.FieldEndTime, *patch.EndTime)
	}
	return nil
}

func validateClock(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return &ValidationError{Field: field, Message: "must be HH:MM"}
	}
	return nil
}

// NewActivityFields is the create document for a draft placed at order on day.
func NewActivityFields(draft domain.ActivityDraft, day, order int) map[string]interface{} {
	return map[string]interface{}{
		domain.FieldTitle:       strings.TrimSpace(draft.Title),
		domain.FieldLocation:    strings.TrimSpace(draft.Location),
		domain.FieldStartTime:   draft.StartTime,
		domain.FieldEndTime:     draft.EndTime,
		domain.FieldDescription: draft.Description,
		domain.FieldDay:         day,
		domain.FieldOrder:       order,
		domain.FieldIsCompleted: false,
		domain.FieldCreatedAt:   docstore.ServerTimestamp,
	}
}

// Add creates an activity at the end of the current list. The list itself is
// left to the next snapshot.
func (s *Store) Add(ctx context.Context, draft domain.ActivityDraft) (string, error) {
	if err := ValidateDraft(draft); err != nil {
		return "", err
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	key := s.key
	order := len(s.list)
	s.mu.Unlock()

	id, err := s.client.Create(ctx, key.path(), NewActivityFields(draft, key.Day, order))
	if err != nil {
		s.logger.Error("create activity failed", zap.Stringer("key", key), zap.Error(err))
		return "", &RemoteWriteError{Op: OpAdd, Err: err}
	}

	return id, nil
}

// Update merges patch into the activity document.
func (s *Store) Update(ctx context.Context, id string, patch domain.ActivityPatch) error {
	if err := ValidatePatch(patch); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		return ErrNotAttached
	}
	key := s.key
	s.mu.Unlock()

	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}

	if err := s.client.UpdateFields(ctx, key.path(), id, fields); err != nil {
		s.logger.Error("update activity failed", zap.String("activity_id", id), zap.Error(err))
		return &RemoteWriteError{Op: OpUpdate, Err: err}
	}
	return nil
}

// Remove drops the activity from the list at once and deletes it remotely,
// restoring the list if the delete fails. Remaining orders are not renumbered.
func (s *Store) Remove(ctx context.Context, id string) error {
	cmd, err := s.execute(OpRemove, func(list []domain.Activity) ([]domain.Activity, bool, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownActivity, id)
		}
		return append(list[:idx:idx], list[idx+1:]...), true, nil
	})
	if err != nil {
		return err
	}

	if err := s.client.DeleteDoc(ctx, cmd.key.path(), id); err != nil {
		rolledBack := s.undo(cmd)
		s.logger.Error("delete activity failed",
			zap.String("activity_id", id),
			zap.Bool("rolled_back", rolledBack),
			zap.Error(err),
		)
		return &RemoteWriteError{Op: OpRemove, Err: err, RolledBack: rolledBack}
	}
	return nil
}

// Reorder moves the item at source to destination, shows the result at once
// and persists the changed orders in one batch. A failed batch restores the
// previous list unless a newer snapshot already replaced it.
func (s *Store) Reorder(ctx context.Context, source int, destination *int) error {
	var plan Plan
	cmd, err := s.execute(OpReorder, func(list []domain.Activity) ([]domain.Activity, bool, error) {
		p, err := PlanReorder(list, source, destination)
		if err != nil {
			return nil, false, err
		}
		plan = p
		if destination == nil || source == *destination {
			return nil, false, nil
		}
		return p.List, true, nil
	})
	if err != nil || cmd == nil || plan.Noop() {
		return err
	}

	if err := s.client.BatchWrite(ctx, OrderBatch(cmd.key, plan.Writes)); err != nil {
		rolledBack := s.undo(cmd)
		s.logger.Error("reorder batch failed",
			zap.Stringer("key", cmd.key),
			zap.Int("writes", len(plan.Writes)),
			zap.Bool("rolled_back", rolledBack),
			zap.Error(err),
		)
		return &RemoteWriteError{Op: OpReorder, Err: err, RolledBack: rolledBack}
	}

	s.logger.Debug("reorder committed", zap.Stringer("key", cmd.key), zap.Int("writes", len(plan.Writes)))
	return nil
}

// OrderBatch turns order writes into document writes for the key's collection.
func OrderBatch(key Key, writes []OrderWrite) []docstore.Write {
	batch := make([]docstore.Write, 0, len(writes))
	for _, w := range writes {
		batch = append(batch, docstore.Write{
			Path:   key.path(),
			ID:     w.ID,
			Fields: map[string]interface{}{domain.FieldOrder: w.Order},
		})
	}
	return batch
}

// Move reassigns an activity to another day, appending it to that day's
// list. It leaves the current list at once and comes back if the write fails.
func (s *Store) Move(ctx context.Context, id string, toDay int) error {
	if toDay < 1 {
		return &ValidationError{Field: domain.FieldDay, Message: "must be a positive integer"}
	}

	cmd, err := s.execute(OpMove, func(list []domain.Activity) ([]domain.Activity, bool, error) {
		idx := indexOf(list, id)
		if idx < 0 {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownActivity, id)
		}
		if list[idx].Day == toDay {
			return nil, false, nil
		}
		return append(list[:idx:idx], list[idx+1:]...), true, nil
	})
	if err != nil || cmd == nil {
		return err
	}

	target := cmd.key
	target.Day = toDay
	docs, err := s.client.Query(ctx, SortClientFallback.DayQuery(target))
	if err == nil {
		err = s.client.UpdateFields(ctx, cmd.key.path(), id, map[string]interface{}{
			domain.FieldDay:   toDay,
			domain.FieldOrder: len(docs),
		})
	}
	if err != nil {
		rolledBack := s.undo(cmd)
		s.logger.Error("move activity failed",
			zap.String("activity_id", id),
			zap.Int("to_day", toDay),
			zap.Bool("rolled_back", rolledBack),
			zap.Error(err),
		)
		return &RemoteWriteError{Op: OpMove, Err: err, RolledBack: rolledBack}
	}
	return nil
}

func indexOf(list []domain.Activity, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
