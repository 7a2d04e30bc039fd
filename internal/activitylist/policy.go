package activitylist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

// SortPolicy selects who orders a day's activities.
type SortPolicy int

const (
	// SortClientFallback fetches unsorted and orders by the order field,
	// missing orders last. Needs no backend index.
	SortClientFallback SortPolicy = iota
	// SortServerAssisted asks the backend for (start_time, order) ordering and
	// keeps the delivered sequence as is. Needs a backend index.
	SortServerAssisted
)

func (p SortPolicy) String() string {
	switch p {
	case SortClientFallback:
		return "client"
	case SortServerAssisted:
		return "server"
	}
	return fmt.Sprintf("SortPolicy(%d)", int(p))
}

func ParseSortPolicy(s string) (SortPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "client":
		return SortClientFallback, nil
	case "server":
		return SortServerAssisted, nil
	}
	return 0, fmt.Errorf("unknown sort policy %q", s)
}

// DayQuery is the live query for one day of an itinerary under the policy.
func (p SortPolicy) DayQuery(key Key) docstore.Query {
	q := docstore.Query{
		Path:  domain.ActivitiesPath(key.UserID, key.ItineraryID),
		Where: []docstore.Filter{{Field: domain.FieldDay, Value: key.Day}},
	}
	if p == SortServerAssisted {
		q.OrderBy = []docstore.SortField{
			{Field: domain.FieldStartTime},
			{Field: domain.FieldOrder},
		}
	}
	return q
}

// Arrange puts a snapshot's activities in display order under the policy.
func (p SortPolicy) Arrange(list []domain.Activity) {
	if p == SortClientFallback {
		SortByOrder(list)
	}
}

// SortByOrder sorts by ascending order with missing orders last. Ties keep
// their delivered relative position.
func SortByOrder(list []domain.Activity) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Order, list[j].Order
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a < *b
	})
}

// Decode turns snapshot documents into activities. Undecodable documents are
// returned as errors alongside the ones that decoded.
func Decode(docs []docstore.Document) ([]domain.Activity, []error) {
	list := make([]domain.Activity, 0, len(docs))
	var errs []error
	for _, doc := range docs {
		var a domain.Activity
		if err := doc.Decode(&a); err != nil {
			errs = append(errs, err)
			continue
		}
		list = append(list, a)
	}
	return list, errs
}

// DayIndex is the index a CouchDB backend needs for server-assisted day
// queries.
var DayIndex = docstore.Index{
	Name:   "activities-day-start-order",
	Fields: []string{domain.FieldDay, domain.FieldStartTime, domain.FieldOrder},
}
