package service

import (
	"context"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
)

// CategoryWithItems is a checklist category and its items in manual order.
type CategoryWithItems struct {
	domain.Category
	Items []domain.ChecklistItem `json:"items"`
}

type ChecklistService struct {
	repo        repository.ChecklistRepository
	itineraries *ItineraryService
}

func NewChecklistService(repo repository.ChecklistRepository, itineraries *ItineraryService) *ChecklistService {
	return &ChecklistService{repo: repo, itineraries: itineraries}
}

func (s *ChecklistService) CreateCategory(ctx context.Context, userID, itineraryID string, req *domain.CreateCategoryRequest) (*domain.Category, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title", "is required")
	}
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	return s.repo.CreateCategory(ctx, userID, itineraryID, title)
}

// List returns every category with its items.
func (s *ChecklistService) List(ctx context.Context, userID, itineraryID string) ([]CategoryWithItems, error) {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}

	categories, err := s.repo.ListCategories(ctx, userID, itineraryID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, userID, itineraryID, "")
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]domain.ChecklistItem)
	for _, item := range items {
		byCategory[item.CategoryID] = append(byCategory[item.CategoryID], item)
	}
	out := make([]CategoryWithItems, 0, len(categories))
	for _, c := range categories {
		list := byCategory[c.ID]
		if list == nil {
			list = []domain.ChecklistItem{}
		}
		out = append(out, CategoryWithItems{Category: c, Items: list})
	}
	return out, nil
}

func (s *ChecklistService) DeleteCategory(ctx context.Context, userID, itineraryID, categoryID string) error {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return err
	}
	return translate(s.repo.DeleteCategory(ctx, userID, itineraryID, categoryID))
}

func (s *ChecklistService) CreateItem(ctx context.Context, userID, itineraryID, categoryID string, req *domain.CreateChecklistItemRequest) (*domain.ChecklistItem, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, invalid("name", "is required")
	}
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCategory(ctx, userID, itineraryID, categoryID); err != nil {
		return nil, translate(err)
	}
	return s.repo.CreateItem(ctx, userID, itineraryID, categoryID, req)
}

func (s *ChecklistService) ListItems(ctx context.Context, userID, itineraryID, categoryID string) ([]domain.ChecklistItem, error) {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCategory(ctx, userID, itineraryID, categoryID); err != nil {
		return nil, translate(err)
	}
	return s.repo.ListItems(ctx, userID, itineraryID, categoryID)
}

func (s *ChecklistService) UpdateItem(ctx context.Context, userID, itineraryID, itemID string, req *domain.UpdateChecklistItemRequest) (*domain.ChecklistItem, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, invalid("name", "cannot be empty")
	}
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return nil, err
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, invalid("body", "nothing to update")
	}
	item, err := s.repo.UpdateItem(ctx, userID, itineraryID, itemID, fields)
	return item, translate(err)
}

func (s *ChecklistService) DeleteItem(ctx context.Context, userID, itineraryID, itemID string) error {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return err
	}
	return translate(s.repo.DeleteItem(ctx, userID, itineraryID, itemID))
}
