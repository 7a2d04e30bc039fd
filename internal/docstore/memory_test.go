package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tripsPath = "users/u1/itineraries/t1/activities"

type snapshots struct {
	mu   sync.Mutex
	list []Snapshot
}

func (s *snapshots) listen(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, snap)
}

func (s *snapshots) last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list[len(s.list)-1]
}

func (s *snapshots) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

func docIDs(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	id, err := s.Create(ctx, tripsPath, map[string]interface{}{
		"title":        "Museum",
		"day":          1,
		"order":        0,
		FieldCreatedAt: ServerTimestamp,
	})
	require.NoError(t, err)

	doc, err := s.Get(ctx, tripsPath, id)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "Museum", doc.Fields["title"])
	assert.Equal(t, float64(1), doc.Fields["day"])
	assert.Equal(t, fixed.Format(time.RFC3339Nano), doc.Fields[FieldCreatedAt])

	var decoded struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Day       int       `json:"day"`
		CreatedAt time.Time `json:"created_at"`
	}
	require.NoError(t, doc.Decode(&decoded))
	assert.Equal(t, id, decoded.ID)
	assert.Equal(t, 1, decoded.Day)
	assert.True(t, fixed.Equal(decoded.CreatedAt))

	_, err = s.Get(ctx, tripsPath, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SubscribeDeliversFilteredSnapshots(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, err := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1, "order": 0})
	require.NoError(t, err)
	_, err = s.Create(ctx, tripsPath, map[string]interface{}{"day": 2, "order": 0})
	require.NoError(t, err)

	got := &snapshots{}
	sub, err := s.Subscribe(ctx, Query{Path: tripsPath, Where: []Filter{{Field: "day", Value: 1}}}, got.listen)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Equal(t, 1, got.count())
	assert.Equal(t, []string{a}, docIDs(got.last().Docs))

	b, err := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1, "order": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, docIDs(got.last().Docs))

	require.NoError(t, s.UpdateFields(ctx, tripsPath, a, map[string]interface{}{"day": 2}))
	assert.Equal(t, []string{b}, docIDs(got.last().Docs))

	require.NoError(t, s.DeleteDoc(ctx, tripsPath, b))
	assert.Empty(t, got.last().Docs)
	assert.NoError(t, got.last().Err)
}

func TestMemoryStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got := &snapshots{}
	sub, err := s.Subscribe(ctx, Query{Path: tripsPath}, got.listen)
	require.NoError(t, err)
	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err = s.Create(ctx, tripsPath, map[string]interface{}{"day": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, got.count())
}

func TestMemoryStore_OtherPathsDoNotNotify(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	got := &snapshots{}
	sub, err := s.Subscribe(ctx, Query{Path: tripsPath}, got.listen)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = s.Create(ctx, "users/u1/itineraries/t2/activities", map[string]interface{}{"day": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, got.count())
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, tripsPath, map[string]interface{}{"title": "Museum", "location": "Downtown"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateFields(ctx, tripsPath, id, map[string]interface{}{"title": "Gallery"}))

	doc, err := s.Get(ctx, tripsPath, id)
	require.NoError(t, err)
	assert.Equal(t, "Gallery", doc.Fields["title"])
	assert.Equal(t, "Downtown", doc.Fields["location"])

	err = s.UpdateFields(ctx, tripsPath, "missing", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_BatchWriteIsAllOrNothing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, err := s.Create(ctx, tripsPath, map[string]interface{}{"order": 0})
	require.NoError(t, err)
	b, err := s.Create(ctx, tripsPath, map[string]interface{}{"order": 1})
	require.NoError(t, err)

	got := &snapshots{}
	sub, err := s.Subscribe(ctx, Query{Path: tripsPath}, got.listen)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	err = s.BatchWrite(ctx, []Write{
		{Path: tripsPath, ID: a, Fields: map[string]interface{}{"order": 1}},
		{Path: tripsPath, ID: "gone", Fields: map[string]interface{}{"order": 0}},
	})
	assert.ErrorIs(t, err, ErrBatchFailed)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, got.count())

	doc, err := s.Get(ctx, tripsPath, a)
	require.NoError(t, err)
	assert.Equal(t, float64(0), doc.Fields["order"])

	require.NoError(t, s.BatchWrite(ctx, []Write{
		{Path: tripsPath, ID: a, Fields: map[string]interface{}{"order": 1}},
		{Path: tripsPath, ID: b, Fields: map[string]interface{}{"order": 0}},
	}))
	assert.Equal(t, 2, got.count(), "one snapshot per batch")

	require.NoError(t, s.BatchWrite(ctx, nil))
	assert.Equal(t, 2, got.count())
}

func TestMemoryStore_SortedQuery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	late, _ := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1, "start_time": "18:00", "order": 0})
	early, _ := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1, "start_time": "08:00", "order": 2})
	noTime, _ := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1, "order": 1})
	sameTime, _ := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1, "start_time": "08:00", "order": 1})

	docs, err := s.Query(ctx, Query{
		Path:    tripsPath,
		Where:   []Filter{{Field: "day", Value: 1}},
		OrderBy: []SortField{{Field: "start_time"}, {Field: "order"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{sameTime, early, late, noTime}, docIDs(docs))

	docs, err = s.Query(ctx, Query{Path: tripsPath, OrderBy: []SortField{{Field: "order", Desc: true}}})
	require.NoError(t, err)
	assert.Equal(t, early, docs[0].ID)
}

func TestMemoryStore_RequiredIndexes(t *testing.T) {
	s := NewMemoryStore(WithRequiredIndexes())
	ctx := context.Background()

	q := Query{
		Path:    tripsPath,
		Where:   []Filter{{Field: "day", Value: 1}},
		OrderBy: []SortField{{Field: "start_time"}, {Field: "order"}},
	}

	_, err := s.Query(ctx, q)
	assert.ErrorIs(t, err, ErrMissingIndex)

	_, err = s.Subscribe(ctx, q, func(Snapshot) {})
	assert.ErrorIs(t, err, ErrMissingIndex)

	_, err = s.Query(ctx, Query{Path: tripsPath, Where: q.Where})
	assert.NoError(t, err, "unsorted queries need no index")

	s.EnsureIndex(tripsPath, "day", "order", "start_time")
	_, err = s.Query(ctx, q)
	assert.ErrorIs(t, err, ErrMissingIndex, "sort fields must follow index order")

	s.EnsureIndex(tripsPath, "day", "start_time", "order")
	_, err = s.Query(ctx, q)
	assert.NoError(t, err)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, tripsPath, map[string]interface{}{"day": 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, compareValues(1, 2.5))
	assert.Equal(t, 1, compareValues("b", "a"))
	assert.Equal(t, 0, compareValues(float64(3), 3))
	assert.Equal(t, 1, compareValues(nil, 0))
	assert.Equal(t, -1, compareValues("", nil))
}
