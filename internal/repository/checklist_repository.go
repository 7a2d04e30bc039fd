package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrItemNotFound     = errors.New("checklist item not found")
)

type ChecklistRepository interface {
	CreateCategory(ctx context.Context, userID, itineraryID, title string) (*domain.Category, error)
	ListCategories(ctx context.Context, userID, itineraryID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, userID, itineraryID, id string) (*domain.Category, error)
	// DeleteCategory removes the category together with its items.
	DeleteCategory(ctx context.Context, userID, itineraryID, id string) error

	CreateItem(ctx context.Context, userID, itineraryID, categoryID string, req *domain.CreateChecklistItemRequest) (*domain.ChecklistItem, error)
	ListItems(ctx context.Context, userID, itineraryID, categoryID string) ([]domain.ChecklistItem, error)
	UpdateItem(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.ChecklistItem, error)
	DeleteItem(ctx context.Context, userID, itineraryID, id string) error
}

type checklistRepository struct {
	client     docstore.Client
	categories collection[domain.Category]
	items      collection[domain.ChecklistItem]
}

func NewChecklistRepository(client docstore.Client) ChecklistRepository {
	return &checklistRepository{
		client:     client,
		categories: collection[domain.Category]{client: client, kind: "category"},
		items:      collection[domain.ChecklistItem]{client: client, kind: "checklist item"},
	}
}

func (r *checklistRepository) CreateCategory(ctx context.Context, userID, itineraryID, title string) (*domain.Category, error) {
	existing, err := r.client.Query(ctx, docstore.Query{Path: domain.CategoriesPath(userID, itineraryID)})
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return r.categories.create(ctx, domain.CategoriesPath(userID, itineraryID), map[string]interface{}{
		"title":                 title,
		"order":                 len(existing),
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
	})
}

func (r *checklistRepository) ListCategories(ctx context.Context, userID, itineraryID string) ([]domain.Category, error) {
	list, err := r.categories.list(ctx, docstore.Query{Path: domain.CategoriesPath(userID, itineraryID)})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })
	return list, nil
}

func (r *checklistRepository) GetCategory(ctx context.Context, userID, itineraryID, id string) (*domain.Category, error) {
	c, err := r.categories.get(ctx, domain.CategoriesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrCategoryNotFound
	}
	return c, err
}

func (r *checklistRepository) DeleteCategory(ctx context.Context, userID, itineraryID, id string) error {
	items, err := r.ListItems(ctx, userID, itineraryID, id)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := r.items.delete(ctx, domain.ChecklistItemsPath(userID, itineraryID), item.ID); err != nil {
			return err
		}
	}

	err = r.categories.delete(ctx, domain.CategoriesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrCategoryNotFound
	}
	return err
}

func (r *checklistRepository) CreateItem(ctx context.Context, userID, itineraryID, categoryID string, req *domain.CreateChecklistItemRequest) (*domain.ChecklistItem, error) {
	existing, err := r.ListItems(ctx, userID, itineraryID, categoryID)
	if err != nil {
		return nil, err
	}
	return r.items.create(ctx, domain.ChecklistItemsPath(userID, itineraryID), map[string]interface{}{
		"category_id":           categoryID,
		"name":                  req.Name,
		"quantity":              req.Quantity,
		"is_checked":            false,
		"order":                 len(existing),
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
	})
}

// ListItems returns the items of one category, or of every category when
// categoryID is empty, in manual order.
func (r *checklistRepository) ListItems(ctx context.Context, userID, itineraryID, categoryID string) ([]domain.ChecklistItem, error) {
	q := docstore.Query{Path: domain.ChecklistItemsPath(userID, itineraryID)}
	if categoryID != "" {
		q.Where = []docstore.Filter{{Field: "category_id", Value: categoryID}}
	}
	list, err := r.items.list(ctx, q)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })
	return list, nil
}

func (r *checklistRepository) UpdateItem(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.ChecklistItem, error) {
	item, err := r.items.update(ctx, domain.ChecklistItemsPath(userID, itineraryID), id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrItemNotFound
	}
	return item, err
}

func (r *checklistRepository) DeleteItem(ctx context.Context, userID, itineraryID, id string) error {
	err := r.items.delete(ctx, domain.ChecklistItemsPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrItemNotFound
	}
	return err
}
