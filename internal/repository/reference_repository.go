package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

var ErrReferenceNotFound = errors.New("reference not found")

type ReferenceRepository interface {
	Create(ctx context.Context, userID, itineraryID string, ref *domain.Reference) (*domain.Reference, error)
	Get(ctx context.Context, userID, itineraryID, id string) (*domain.Reference, error)
	List(ctx context.Context, userID, itineraryID string) ([]domain.Reference, error)
	Update(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.Reference, error)
	Delete(ctx context.Context, userID, itineraryID, id string) error
}

type referenceRepository struct {
	references collection[domain.Reference]
}

func NewReferenceRepository(client docstore.Client) ReferenceRepository {
	return &referenceRepository{references: collection[domain.Reference]{client: client, kind: "reference"}}
}

func (r *referenceRepository) Create(ctx context.Context, userID, itineraryID string, ref *domain.Reference) (*domain.Reference, error) {
	return r.references.create(ctx, domain.ReferencesPath(userID, itineraryID), map[string]interface{}{
		"kind":                  ref.Kind,
		"title":                 ref.Title,
		"url":                   ref.URL,
		"content":               ref.Content,
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
	})
}

func (r *referenceRepository) Get(ctx context.Context, userID, itineraryID, id string) (*domain.Reference, error) {
	ref, err := r.references.get(ctx, domain.ReferencesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrReferenceNotFound
	}
	return ref, err
}

// List returns references oldest first.
func (r *referenceRepository) List(ctx context.Context, userID, itineraryID string) ([]domain.Reference, error) {
	list, err := r.references.list(ctx, docstore.Query{Path: domain.ReferencesPath(userID, itineraryID)})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *referenceRepository) Update(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.Reference, error) {
	ref, err := r.references.update(ctx, domain.ReferencesPath(userID, itineraryID), id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrReferenceNotFound
	}
	return ref, err
}

func (r *referenceRepository) Delete(ctx context.Context, userID, itineraryID, id string) error {
	err := r.references.delete(ctx, domain.ReferencesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrReferenceNotFound
	}
	return err
}
