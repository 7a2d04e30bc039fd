package activitylist

import (
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

// command is one optimistic change to the list, holding what is needed to
// undo it.
type command struct {
	op      Op
	key     Key
	gen     uint64
	version uint64
	before  []domain.Activity
}

type mutation func(list []domain.Activity) (next []domain.Activity, changed bool, err error)

// execute applies mutate to a copy of the current list. It returns a nil
// command when mutate reports no change.
func (s *Store) execute(op Op, mutate mutation) (*command, error) {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	before := clone(s.list)
	next, changed, err := mutate(clone(s.list))
	if err != nil || !changed {
		s.mu.Unlock()
		return nil, err
	}

	s.list = next
	s.version++
	cmd := &command{
		op:      op,
		key:     s.key,
		gen:     s.gen,
		version: s.version,
		before:  before,
	}
	s.mu.Unlock()

	s.publish()
	return cmd, nil
}

// undo restores the list captured by cmd. It does nothing, and returns false,
// when the list has since been replaced by a snapshot, another command or a
// different attachment.
func (s *Store) undo(cmd *command) bool {
	s.mu.Lock()
	if s.gen != cmd.gen || s.version != cmd.version {
		s.mu.Unlock()
		return false
	}
	s.list = cmd.before
	s.version++
	s.mu.Unlock()

	s.publish()
	return true
}
