// Package repository stores the planner's documents through a docstore.Client,
// so the same code runs against CouchDB and the in-memory store.
package repository

import (
	"context"
	"fmt"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
)

// collection reads and writes documents that decode into T.
type collection[T any] struct {
	client docstore.Client
	kind   string
}

func (c collection[T]) create(ctx context.Context, path string, fields map[string]interface{}) (*T, error) {
	id, err := c.client.Create(ctx, path, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", c.kind, err)
	}
	return c.get(ctx, path, id)
}

func (c collection[T]) get(ctx context.Context, path, id string) (*T, error) {
	doc, err := c.client.Get(ctx, path, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", c.kind, err)
	}
	var v T
	if err := doc.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.kind, err)
	}
	return &v, nil
}

func (c collection[T]) list(ctx context.Context, q docstore.Query) ([]T, error) {
	docs, err := c.client.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.kind, err)
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", c.kind, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c collection[T]) update(ctx context.Context, path, id string, fields map[string]interface{}) (*T, error) {
	if err := c.client.UpdateFields(ctx, path, id, fields); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", c.kind, err)
	}
	return c.get(ctx, path, id)
}

func (c collection[T]) delete(ctx context.Context, path, id string) error {
	if err := c.client.DeleteDoc(ctx, path, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", c.kind, err)
	}
	return nil
}

// deleteAll removes every document of the collection at path.
func deleteAll(ctx context.Context, client docstore.Client, path string) error {
	docs, err := client.Query(ctx, docstore.Query{Path: path})
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", path, err)
	}
	for _, doc := range docs {
		if err := client.DeleteDoc(ctx, path, doc.ID); err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", path, doc.ID, err)
		}
	}
	return nil
}
