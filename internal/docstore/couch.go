package docstore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-kivik/kivik/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	fieldCollection = "collection"
	defaultPageSize = 1000
	heartbeatMillis = 30000
)

// CouchStore keeps every collection in one CouchDB database. Document ids are
// the collection path with "/" replaced by ":" followed by the document id, and
// the path itself is stored in the "collection" field for Mango queries.
type CouchStore struct {
	db         *kivik.DB
	logger     *zap.Logger
	retryDelay time.Duration
	pageSize   int
	now        func() time.Time
}

func NewCouchStore(client *kivik.Client, dbName string, logger *zap.Logger) *CouchStore {
	return &CouchStore{
		db:         client.DB(dbName),
		logger:     logger,
		retryDelay: 2 * time.Second,
		pageSize:   defaultPageSize,
		now:        time.Now,
	}
}

func pathPrefix(path string) string {
	return strings.ReplaceAll(path, "/", ":") + ":"
}

func couchDocID(path, id string) string {
	return pathPrefix(path) + id
}

// Index is a Mango index definition over a set of fields.
type Index struct {
	Name   string
	Fields []string
}

// EnsureIndexes creates the given indexes. The collection field is always the
// leading index field.
func (s *CouchStore) EnsureIndexes(ctx context.Context, indexes ...Index) error {
	for _, idx := range indexes {
		fields := append([]string{fieldCollection}, idx.Fields...)
		def := map[string]interface{}{"fields": fields}
		if err := s.db.CreateIndex(ctx, "", idx.Name, def); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
		}
		s.logger.Debug("index ensured", zap.String("index", idx.Name), zap.Strings("fields", fields))
	}
	return nil
}

func (s *CouchStore) mangoQuery(q Query, skip int) map[string]interface{} {
	selector := map[string]interface{}{fieldCollection: q.Path}
	for _, f := range q.Where {
		selector[f.Field] = f.Value
	}

	query := map[string]interface{}{
		"selector": selector,
		"limit":    s.pageSize,
	}
	if skip > 0 {
		query["skip"] = skip
	}

	if q.Sorted() {
		dir := "asc"
		if q.OrderBy[0].Desc {
			dir = "desc"
		}
		// Mango only uses an index when the sort covers its leading
		// equality fields too.
		sortSpec := []map[string]string{{fieldCollection: dir}}
		for _, f := range q.Where {
			sortSpec = append(sortSpec, map[string]string{f.Field: dir})
		}
		for _, sf := range q.OrderBy {
			sortSpec = append(sortSpec, map[string]string{sf.Field: dir})
			if _, ok := selector[sf.Field]; !ok {
				selector[sf.Field] = map[string]interface{}{"$gt": nil}
			}
		}
		query["sort"] = sortSpec
	}
	return query
}

// Query reads every matching document, one page of pageSize at a time. A
// document that shifts between pages while writes land is returned once.
func (s *CouchStore) Query(ctx context.Context, q Query) ([]Document, error) {
	prefix := pathPrefix(q.Path)
	docs := make([]Document, 0)
	seen := make(map[string]struct{})

	for skip := 0; ; skip += s.pageSize {
		rows := s.db.Find(ctx, s.mangoQuery(q, skip))
		if err := rows.Err(); err != nil {
			return nil, s.queryError(q, err)
		}

		n := 0
		for rows.Next() {
			n++
			var raw map[string]interface{}
			if err := rows.ScanDoc(&raw); err != nil {
				s.logger.Warn("skipping undecodable document", zap.String("collection", q.Path), zap.Error(err))
				continue
			}
			doc := fromCouch(prefix, raw)
			if _, dup := seen[doc.ID]; dup {
				continue
			}
			seen[doc.ID] = struct{}{}
			docs = append(docs, doc)
		}
		err := rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, s.queryError(q, err)
		}

		if n < s.pageSize {
			return docs, nil
		}
		s.logger.Debug("fetching next page", zap.String("collection", q.Path), zap.Int("skip", skip+s.pageSize))
	}
}

func (s *CouchStore) queryError(q Query, err error) error {
	if kivik.HTTPStatus(err) == http.StatusBadRequest && strings.Contains(err.Error(), "no_usable_index") {
		return fmt.Errorf("%s: %w", q.Path, ErrMissingIndex)
	}
	return fmt.Errorf("failed to query %s: %w", q.Path, err)
}

func fromCouch(prefix string, raw map[string]interface{}) Document {
	id, _ := raw["_id"].(string)
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if k == "_id" || k == "_rev" || k == fieldCollection {
			continue
		}
		fields[k] = v
	}
	return Document{ID: strings.TrimPrefix(id, prefix), Fields: fields}
}

func (s *CouchStore) fetch(ctx context.Context, path, id string) (map[string]interface{}, error) {
	var existing map[string]interface{}
	row := s.db.Get(ctx, couchDocID(path, id))
	if err := row.ScanDoc(&existing); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%s/%s: %w", path, id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", path, id, err)
	}
	return existing, nil
}

func (s *CouchStore) Get(ctx context.Context, path, id string) (Document, error) {
	raw, err := s.fetch(ctx, path, id)
	if err != nil {
		return Document{}, err
	}
	return fromCouch(pathPrefix(path), raw), nil
}

func (s *CouchStore) Create(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	now := s.now().UTC()
	doc := resolveTimestamps(fields, now)
	doc[FieldUpdatedAt] = now
	if _, ok := doc[FieldCreatedAt]; !ok {
		doc[FieldCreatedAt] = now
	}
	doc[fieldCollection] = path

	id := uuid.New().String()
	if _, err := s.db.Put(ctx, couchDocID(path, id), doc); err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", path, err)
	}

	return id, nil
}

func (s *CouchStore) UpdateFields(ctx context.Context, path, id string, fields map[string]interface{}) error {
	existing, err := s.fetch(ctx, path, id)
	if err != nil {
		return err
	}

	merge(existing, fields, s.now().UTC())

	if _, err := s.db.Put(ctx, couchDocID(path, id), existing); err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", path, id, err)
	}

	return nil
}

func (s *CouchStore) DeleteDoc(ctx context.Context, path, id string) error {
	existing, err := s.fetch(ctx, path, id)
	if err != nil {
		return err
	}

	rev, _ := existing["_rev"].(string)
	if _, err := s.db.Delete(ctx, couchDocID(path, id), rev); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", path, id, err)
	}

	return nil
}

// BatchWrite submits all writes through _bulk_docs. CouchDB applies bulk
// updates per document, so when any member fails the members that did apply
// are reverted to their previous content before ErrBatchFailed is returned.
func (s *CouchStore) BatchWrite(ctx context.Context, writes []Write) error {
	if len(writes) == 0 {
		return nil
	}

	now := s.now().UTC()
	originals := make([]map[string]interface{}, len(writes))
	docs := make([]interface{}, len(writes))
	for i, w := range writes {
		existing, err := s.fetch(ctx, w.Path, w.ID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBatchFailed, err)
		}
		originals[i] = copyFields(existing)
		merge(existing, w.Fields, now)
		docs[i] = existing
	}

	results, err := s.db.BulkDocs(ctx, docs)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	var failed error
	applied := make([]int, 0, len(results))
	for i, res := range results {
		if res.Error != nil {
			if failed == nil {
				failed = fmt.Errorf("%s: %w", res.ID, res.Error)
			}
			continue
		}
		applied = append(applied, i)
		originals[i]["_rev"] = res.Rev
	}
	if failed == nil {
		return nil
	}

	for _, i := range applied {
		w := writes[i]
		if _, err := s.db.Put(ctx, couchDocID(w.Path, w.ID), originals[i]); err != nil {
			s.logger.Error("failed to revert batch member",
				zap.String("collection", w.Path),
				zap.String("id", w.ID),
				zap.Error(err),
			)
		}
	}

	return fmt.Errorf("%w: %w", ErrBatchFailed, failed)
}

func merge(doc, fields map[string]interface{}, now time.Time) {
	for k, v := range resolveTimestamps(fields, now) {
		doc[k] = v
	}
	doc[FieldUpdatedAt] = now
}

type couchSub struct {
	cancel context.CancelFunc
	done   chan struct{}
	fn     Listener

	mu     sync.Mutex
	closed bool
}

func (sub *couchSub) deliver(snap Snapshot) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.fn(snap)
}

func (sub *couchSub) Unsubscribe() {
	sub.cancel()
	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
	<-sub.done
}

// Subscribe runs the query once and then follows the database _changes feed,
// re-running the query whenever a document of the collection changes. The
// feed starts at the update sequence read before the first query, so writes
// landing in between are still seen.
func (s *CouchStore) Subscribe(ctx context.Context, q Query, fn Listener) (Subscription, error) {
	stats, err := s.db.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read update sequence: %w", err)
	}
	since := stats.UpdateSeq
	if since == "" {
		since = "now"
	}

	docs, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &couchSub{cancel: cancel, done: make(chan struct{}), fn: fn}
	sub.deliver(Snapshot{Docs: docs})

	go s.watch(watchCtx, q, since, sub)
	return sub, nil
}

func (s *CouchStore) watch(ctx context.Context, q Query, since string, sub *couchSub) {
	defer close(sub.done)

	prefix := pathPrefix(q.Path)
	for {
		changes := s.db.Changes(ctx, kivik.Params(map[string]interface{}{
			"feed":      "continuous",
			"since":     since,
			"heartbeat": heartbeatMillis,
		}))

		for changes.Next() {
			if seq := changes.Seq(); seq != "" {
				since = seq
			}
			if !strings.HasPrefix(changes.ID(), prefix) {
				continue
			}
			docs, err := s.Query(ctx, q)
			if ctx.Err() != nil {
				break
			}
			sub.deliver(Snapshot{Docs: docs, Err: err})
		}
		err := changes.Err()
		changes.Close()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("changes feed interrupted", zap.String("collection", q.Path), zap.Error(err))
			sub.deliver(Snapshot{Err: fmt.Errorf("changes feed for %s: %w", q.Path, err)})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}

		// Catch up on whatever changed while the feed was down.
		docs, err := s.Query(ctx, q)
		if ctx.Err() != nil {
			return
		}
		sub.deliver(Snapshot{Docs: docs, Err: err})
	}
}
