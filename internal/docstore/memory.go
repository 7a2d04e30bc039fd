package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Client. Snapshots are delivered synchronously
// from the goroutine that performed the write.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
	subs        map[string]map[uint64]*memorySub
	nextSub     uint64
	seq         uint64

	requireIndexes bool
	indexes        map[string][]string
	now            func() time.Time
}

type memoryCollection struct {
	docs map[string]map[string]interface{}
	ids  []string
}

type MemoryOption func(*MemoryStore)

// WithRequiredIndexes makes sorted queries fail with ErrMissingIndex unless a
// matching index was registered through EnsureIndex.
func WithRequiredIndexes() MemoryOption {
	return func(s *MemoryStore) {
		s.requireIndexes = true
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*memoryCollection),
		subs:        make(map[string]map[uint64]*memorySub),
		indexes:     make(map[string][]string),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndex registers a sort index for the collection at path.
func (s *MemoryStore) EnsureIndex(path string, fields ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[path] = append([]string(nil), fields...)
}

type memorySub struct {
	store *MemoryStore
	id    uint64
	query Query
	fn    Listener

	mu        sync.Mutex
	closed    bool
	delivered uint64
}

type pendingDelivery struct {
	sub  *memorySub
	seq  uint64
	snap Snapshot
}

func (sub *memorySub) deliver(seq uint64, snap Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed || seq <= sub.delivered {
		return
	}
	sub.delivered = seq
	sub.fn(snap)
}

func (sub *memorySub) Unsubscribe() {
	sub.store.mu.Lock()
	if byID, ok := sub.store.subs[sub.query.Path]; ok {
		delete(byID, sub.id)
		if len(byID) == 0 {
			delete(sub.store.subs, sub.query.Path)
		}
	}
	sub.store.mu.Unlock()

	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query, fn Listener) (Subscription, error) {
	s.mu.Lock()
	docs, err := s.queryLocked(q)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.nextSub++
	sub := &memorySub{store: s, id: s.nextSub, query: q, fn: fn}
	if s.subs[q.Path] == nil {
		s.subs[q.Path] = make(map[uint64]*memorySub)
	}
	s.subs[q.Path][sub.id] = sub
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	sub.deliver(seq, Snapshot{Docs: docs})
	return sub, nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryLocked(q)
}

func (s *MemoryStore) Get(ctx context.Context, path, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[path]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", path, id, ErrNotFound)
	}
	fields, ok := coll.docs[id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", path, id, ErrNotFound)
	}
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

func (s *MemoryStore) Create(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	now := s.now().UTC()
	doc := resolveTimestamps(fields, now)
	doc[FieldUpdatedAt] = now
	if _, ok := doc[FieldCreatedAt]; !ok {
		doc[FieldCreatedAt] = now
	}
	stored, err := normalize(doc)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	id := uuid.New().String()
	coll := s.collection(path)
	coll.docs[id] = stored
	coll.ids = append(coll.ids, id)
	pending := s.pendingLocked(path)
	s.mu.Unlock()

	flush(pending)
	return id, nil
}

func (s *MemoryStore) UpdateFields(ctx context.Context, path, id string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.mergeLocked(path, id, fields); err != nil {
		s.mu.Unlock()
		return err
	}
	pending := s.pendingLocked(path)
	s.mu.Unlock()

	flush(pending)
	return nil
}

func (s *MemoryStore) DeleteDoc(ctx context.Context, path, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	coll, ok := s.collections[path]
	if !ok || coll.docs[id] == nil {
		s.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", path, id, ErrNotFound)
	}
	delete(coll.docs, id)
	for i, existing := range coll.ids {
		if existing == id {
			coll.ids = append(coll.ids[:i], coll.ids[i+1:]...)
			break
		}
	}
	pending := s.pendingLocked(path)
	s.mu.Unlock()

	flush(pending)
	return nil
}

// BatchWrite applies every write or none of them.
func (s *MemoryStore) BatchWrite(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, w := range writes {
		coll, ok := s.collections[w.Path]
		if !ok || coll.docs[w.ID] == nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s/%s: %w", ErrBatchFailed, w.Path, w.ID, ErrNotFound)
		}
	}

	paths := make(map[string]bool)
	for _, w := range writes {
		if err := s.mergeLocked(w.Path, w.ID, w.Fields); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("%w: %w", ErrBatchFailed, err)
		}
		paths[w.Path] = true
	}

	var pending []pendingDelivery
	for path := range paths {
		pending = append(pending, s.pendingLocked(path)...)
	}
	s.mu.Unlock()

	flush(pending)
	return nil
}

func (s *MemoryStore) collection(path string) *memoryCollection {
	coll, ok := s.collections[path]
	if !ok {
		coll = &memoryCollection{docs: make(map[string]map[string]interface{})}
		s.collections[path] = coll
	}
	return coll
}

func (s *MemoryStore) mergeLocked(path, id string, fields map[string]interface{}) error {
	coll, ok := s.collections[path]
	if !ok || coll.docs[id] == nil {
		return fmt.Errorf("%s/%s: %w", path, id, ErrNotFound)
	}

	now := s.now().UTC()
	patch := resolveTimestamps(fields, now)
	patch[FieldUpdatedAt] = now
	normalized, err := normalize(patch)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	merged := copyFields(coll.docs[id])
	for k, v := range normalized {
		merged[k] = v
	}
	coll.docs[id] = merged
	return nil
}

func (s *MemoryStore) queryLocked(q Query) ([]Document, error) {
	if q.Sorted() && s.requireIndexes && !s.hasIndexLocked(q) {
		return nil, fmt.Errorf("%s: %w", q.Path, ErrMissingIndex)
	}

	coll, ok := s.collections[q.Path]
	if !ok {
		return []Document{}, nil
	}

	docs := make([]Document, 0, len(coll.ids))
	for _, id := range coll.ids {
		fields := coll.docs[id]
		if !matches(fields, q.Where) {
			continue
		}
		docs = append(docs, Document{ID: id, Fields: copyFields(fields)})
	}

	if q.Sorted() {
		sort.SliceStable(docs, func(i, j int) bool {
			for _, sf := range q.OrderBy {
				c := compareValues(docs[i].Fields[sf.Field], docs[j].Fields[sf.Field])
				if c == 0 {
					continue
				}
				if sf.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	return docs, nil
}

// hasIndexLocked accepts an index whose fields start with the query's
// equality fields followed by the sort fields, in any equality order.
func (s *MemoryStore) hasIndexLocked(q Query) bool {
	index, ok := s.indexes[q.Path]
	if !ok {
		return false
	}
	want := make([]string, 0, len(q.Where)+len(q.OrderBy))
	for _, f := range q.Where {
		want = append(want, f.Field)
	}
	sort.Strings(want)
	for _, sf := range q.OrderBy {
		want = append(want, sf.Field)
	}

	if len(index) < len(want) {
		return false
	}
	head := append([]string(nil), index[:len(q.Where)]...)
	sort.Strings(head)
	got := append(head, index[len(q.Where):len(want)]...)
	return strings.Join(got, ",") == strings.Join(want, ",")
}

func (s *MemoryStore) pendingLocked(path string) []pendingDelivery {
	byID := s.subs[path]
	if len(byID) == 0 {
		return nil
	}
	s.seq++
	seq := s.seq

	ids := make([]uint64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pending := make([]pendingDelivery, 0, len(ids))
	for _, id := range ids {
		sub := byID[id]
		docs, err := s.queryLocked(sub.query)
		pending = append(pending, pendingDelivery{sub: sub, seq: seq, snap: Snapshot{Docs: docs, Err: err}})
	}
	return pending
}

func flush(pending []pendingDelivery) {
	for _, p := range pending {
		p.sub.deliver(p.seq, p.snap)
	}
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
