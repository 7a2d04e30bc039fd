package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"

	"go.uber.org/zap"
)

type ItineraryService struct {
	repo   repository.ItineraryRepository
	logger *zap.Logger
}

func NewItineraryService(repo repository.ItineraryRepository, logger *zap.Logger) *ItineraryService {
	return &ItineraryService{repo: repo, logger: logger}
}

func (s *ItineraryService) Create(ctx context.Context, userID string, req *domain.CreateItineraryRequest) (*domain.Itinerary, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, invalid("title", "is required")
	}
	req.BaseCurrency = strings.ToUpper(req.BaseCurrency)

	it, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("itinerary created", zap.String("user_id", userID), zap.String("itinerary_id", it.ID))
	return it, nil
}

func (s *ItineraryService) List(ctx context.Context, userID string) ([]domain.Itinerary, error) {
	return s.repo.List(ctx, userID)
}

func (s *ItineraryService) Get(ctx context.Context, userID, id string) (*domain.Itinerary, error) {
	it, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, translate(err)
	}
	if it.UserID != userID {
		return nil, ErrForbidden
	}
	return it, nil
}

// Authorize loads the user's itinerary and, when day is positive, checks that
// the day lies within it.
func (s *ItineraryService) Authorize(ctx context.Context, userID, id string, day int) (*domain.Itinerary, error) {
	it, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if day != 0 && (day < 1 || day > it.Days) {
		return nil, invalid(domain.FieldDay, fmt.Sprintf("must be between 1 and %d", it.Days))
	}
	return it, nil
}

// Update applies the given fields. Days cannot drop below a day that still
// holds activities or expenses.
func (s *ItineraryService) Update(ctx context.Context, userID, id string, req *domain.UpdateItineraryRequest) (*domain.Itinerary, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, invalid("title", "cannot be empty")
		}
		fields["title"] = title
	}
	if req.Destination != nil {
		fields["destination"] = *req.Destination
	}
	if req.StartDate != nil {
		fields["start_date"] = *req.StartDate
	}
	if req.Days != nil {
		if *req.Days < current.Days {
			last, err := s.repo.LastUsedDay(ctx, userID, id)
			if err != nil {
				return nil, err
			}
			if last > *req.Days {
				return nil, invalid("days", fmt.Sprintf("day %d still has activities or expenses", last))
			}
		}
		fields["days"] = *req.Days
	}
	if req.BaseCurrency != nil {
		fields["base_currency"] = strings.ToUpper(*req.BaseCurrency)
	}
	if len(fields) == 0 {
		return s.Get(ctx, userID, id)
	}

	it, err := s.repo.Update(ctx, userID, id, fields)
	return it, translate(err)
}

func (s *ItineraryService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return translate(err)
	}
	s.logger.Info("itinerary deleted", zap.String("user_id", userID), zap.String("itinerary_id", id))
	return nil
}
