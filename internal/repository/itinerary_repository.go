package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

var ErrItineraryNotFound = errors.New("itinerary not found")

type ItineraryRepository interface {
	Create(ctx context.Context, userID string, req *domain.CreateItineraryRequest) (*domain.Itinerary, error)
	Get(ctx context.Context, userID, id string) (*domain.Itinerary, error)
	List(ctx context.Context, userID string) ([]domain.Itinerary, error)
	Update(ctx context.Context, userID, id string, fields map[string]interface{}) (*domain.Itinerary, error)
	// Delete removes the itinerary and every collection nested under it.
	Delete(ctx context.Context, userID, id string) error
	// LastUsedDay is the highest day any activity or expense sits on, or 0.
	LastUsedDay(ctx context.Context, userID, id string) (int, error)
}

type itineraryRepository struct {
	client      docstore.Client
	itineraries collection[domain.Itinerary]
}

func NewItineraryRepository(client docstore.Client) ItineraryRepository {
	return &itineraryRepository{
		client:      client,
		itineraries: collection[domain.Itinerary]{client: client, kind: "itinerary"},
	}
}

func (r *itineraryRepository) Create(ctx context.Context, userID string, req *domain.CreateItineraryRequest) (*domain.Itinerary, error) {
	return r.itineraries.create(ctx, domain.ItinerariesPath(userID), map[string]interface{}{
		"user_id":               userID,
		"title":                 req.Title,
		"destination":           req.Destination,
		"start_date":            req.StartDate,
		"days":                  req.Days,
		"base_currency":         req.BaseCurrency,
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
	})
}

func (r *itineraryRepository) Get(ctx context.Context, userID, id string) (*domain.Itinerary, error) {
	it, err := r.itineraries.get(ctx, domain.ItinerariesPath(userID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrItineraryNotFound
	}
	return it, err
}

// List returns the user's itineraries, latest start date first.
func (r *itineraryRepository) List(ctx context.Context, userID string) ([]domain.Itinerary, error) {
	list, err := r.itineraries.list(ctx, docstore.Query{Path: domain.ItinerariesPath(userID)})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartDate > list[j].StartDate
	})
	return list, nil
}

func (r *itineraryRepository) Update(ctx context.Context, userID, id string, fields map[string]interface{}) (*domain.Itinerary, error) {
	it, err := r.itineraries.update(ctx, domain.ItinerariesPath(userID), id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrItineraryNotFound
	}
	return it, err
}

func (r *itineraryRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return err
	}

	nested := []string{
		domain.ActivitiesPath(userID, id),
		domain.CategoriesPath(userID, id),
		domain.ChecklistItemsPath(userID, id),
		domain.ExpensesPath(userID, id),
		domain.ReferencesPath(userID, id),
	}
	for _, path := range nested {
		if err := deleteAll(ctx, r.client, path); err != nil {
			return fmt.Errorf("failed to delete itinerary contents: %w", err)
		}
	}
	return r.itineraries.delete(ctx, domain.ItinerariesPath(userID), id)
}

func (r *itineraryRepository) LastUsedDay(ctx context.Context, userID, id string) (int, error) {
	last := 0
	for _, path := range []string{domain.ActivitiesPath(userID, id), domain.ExpensesPath(userID, id)} {
		docs, err := r.client.Query(ctx, docstore.Query{Path: path})
		if err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", path, err)
		}
		for _, doc := range docs {
			var d struct {
				Day int `json:"day"`
			}
			if err := doc.Decode(&d); err != nil {
				return 0, fmt.Errorf("failed to decode %s/%s: %w", path, doc.ID, err)
			}
			if d.Day > last {
				last = d.Day
			}
		}
	}
	return last, nil
}
