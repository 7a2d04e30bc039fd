package activitylist

import (
	"fmt"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

// OrderWrite sets the persisted order of one activity.
type OrderWrite struct {
	ID    string
	Order int
}

// Plan is the outcome of one drag-and-drop move: the list to show right away
// and the order writes that make the backend agree with it.
type Plan struct {
	List   []domain.Activity
	Writes []OrderWrite
}

// Noop reports whether the move changes nothing that needs persisting.
func (p Plan) Noop() bool {
	return len(p.Writes) == 0
}

// PlanReorder moves the element at source to destination. A nil destination
// (dropped outside any target) or source == destination leaves the list as is.
// Only items whose new position differs from their stored order are written;
// the new list carries the written orders.
func PlanReorder(list []domain.Activity, source int, destination *int) (Plan, error) {
	current := clone(list)
	if destination == nil {
		return Plan{List: current}, nil
	}
	dest := *destination
	if source < 0 || source >= len(list) {
		return Plan{}, fmt.Errorf("%w: source %d, length %d", ErrIndexOutOfRange, source, len(list))
	}
	if dest < 0 || dest >= len(list) {
		return Plan{}, fmt.Errorf("%w: destination %d, length %d", ErrIndexOutOfRange, dest, len(list))
	}
	if source == dest {
		return Plan{List: current}, nil
	}

	moved := current[source]
	next := make([]domain.Activity, 0, len(current))
	next = append(next, current[:source]...)
	next = append(next, current[source+1:]...)
	next = append(next[:dest], append([]domain.Activity{moved}, next[dest:]...)...)

	var writes []OrderWrite
	for i := range next {
		if next[i].HasOrder(i) {
			continue
		}
		pos := i
		next[i].Order = &pos
		writes = append(writes, OrderWrite{ID: next[i].ID, Order: i})
	}

	return Plan{List: next, Writes: writes}, nil
}

// ApplyWrites returns a copy of list with the writes' orders set.
func ApplyWrites(list []domain.Activity, writes []OrderWrite) []domain.Activity {
	byID := make(map[string]int, len(writes))
	for _, w := range writes {
		byID[w.ID] = w.Order
	}
	out := clone(list)
	for i := range out {
		if order, ok := byID[out[i].ID]; ok {
			o := order
			out[i].Order = &o
		}
	}
	return out
}

func clone(list []domain.Activity) []domain.Activity {
	out := make([]domain.Activity, len(list))
	copy(out, list)
	return out
}
