package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
)

var ErrExpenseNotFound = errors.New("expense not found")

type ExpenseRepository interface {
	Create(ctx context.Context, userID, itineraryID string, req *domain.CreateExpenseRequest) (*domain.Expense, error)
	// List returns the itinerary's expenses, only those of day when day > 0.
	List(ctx context.Context, userID, itineraryID string, day int) ([]domain.Expense, error)
	Update(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.Expense, error)
	Delete(ctx context.Context, userID, itineraryID, id string) error
}

type expenseRepository struct {
	expenses collection[domain.Expense]
}

func NewExpenseRepository(client docstore.Client) ExpenseRepository {
	return &expenseRepository{expenses: collection[domain.Expense]{client: client, kind: "expense"}}
}

func (r *expenseRepository) Create(ctx context.Context, userID, itineraryID string, req *domain.CreateExpenseRequest) (*domain.Expense, error) {
	return r.expenses.create(ctx, domain.ExpensesPath(userID, itineraryID), map[string]interface{}{
		"day":                   req.Day,
		"title":                 req.Title,
		"amount":                req.Amount,
		"currency":              strings.ToUpper(req.Currency),
		"category":              req.Category,
		"note":                  req.Note,
		docstore.FieldCreatedAt: docstore.ServerTimestamp,
	})
}

func (r *expenseRepository) List(ctx context.Context, userID, itineraryID string, day int) ([]domain.Expense, error) {
	q := docstore.Query{Path: domain.ExpensesPath(userID, itineraryID)}
	if day > 0 {
		q.Where = []docstore.Filter{{Field: "day", Value: day}}
	}
	list, err := r.expenses.list(ctx, q)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Day != list[j].Day {
			return list[i].Day < list[j].Day
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (r *expenseRepository) Update(ctx context.Context, userID, itineraryID, id string, fields map[string]interface{}) (*domain.Expense, error) {
	if c, ok := fields["currency"].(string); ok {
		fields["currency"] = strings.ToUpper(c)
	}
	e, err := r.expenses.update(ctx, domain.ExpensesPath(userID, itineraryID), id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrExpenseNotFound
	}
	return e, err
}

func (r *expenseRepository) Delete(ctx context.Context, userID, itineraryID, id string) error {
	err := r.expenses.delete(ctx, domain.ExpensesPath(userID, itineraryID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrExpenseNotFound
	}
	return err
}
