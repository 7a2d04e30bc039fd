package service

import (
	"context"
	"sort"
	"strings"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
)

type ExpenseService struct {
	repo        repository.ExpenseRepository
	itineraries *ItineraryService
}

func NewExpenseService(repo repository.ExpenseRepository, itineraries *ItineraryService) *ExpenseService {
	return &ExpenseService{repo: repo, itineraries: itineraries}
}

func (s *ExpenseService) Create(ctx context.Context, userID, itineraryID string, req *domain.CreateExpenseRequest) (*domain.Expense, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, invalid("title", "is required")
	}
	if err := checkAmount(req.Amount); err != nil {
		return nil, err
	}
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, req.Day); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, userID, itineraryID, req)
}

// List returns the itinerary's expenses, only those of day when day > 0.
func (s *ExpenseService) List(ctx context.Context, userID, itineraryID string, day int) ([]domain.Expense, error) {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, day); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID, itineraryID, day)
}

func (s *ExpenseService) Update(ctx context.Context, userID, itineraryID, id string, req *domain.UpdateExpenseRequest) (*domain.Expense, error) {
	day := 0
	if req.Day != nil {
		day = *req.Day
	}
	if req.Amount != nil {
		if err := checkAmount(*req.Amount); err != nil {
			return nil, err
		}
	}
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, day); err != nil {
		return nil, err
	}
	fields := req.Fields()
	if len(fields) == 0 {
		return nil, invalid("body", "nothing to update")
	}
	e, err := s.repo.Update(ctx, userID, itineraryID, id, fields)
	return e, translate(err)
}

// checkAmount accepts positive amounts of at most two decimal places.
func checkAmount(amount float64) error {
	cents, exact := domain.AmountCents(amount)
	if !exact || cents <= 0 {
		return invalid("amount", "must be positive with at most two decimal places")
	}
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, itineraryID, id string) error {
	if _, err := s.itineraries.Authorize(ctx, userID, itineraryID, 0); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, userID, itineraryID, id))
}

func (s *ExpenseService) Totals(ctx context.Context, userID, itineraryID string) (*domain.ExpenseTotals, error) {
	expenses, err := s.List(ctx, userID, itineraryID, 0)
	if err != nil {
		return nil, err
	}
	totals := ComputeTotals(expenses)
	return &totals, nil
}

type centsTotal struct {
	cents int64
	count int
}

// ComputeTotals sums expenses per currency, overall and per day. Sums are
// kept in cents so that decimal amounts add up exactly. Currencies and days
// come out in ascending order.
func ComputeTotals(expenses []domain.Expense) domain.ExpenseTotals {
	overall := make(map[string]*centsTotal)
	byDay := make(map[int]map[string]*centsTotal)

	add := func(m map[string]*centsTotal, e domain.Expense) {
		t, ok := m[e.Currency]
		if !ok {
			t = &centsTotal{}
			m[e.Currency] = t
		}
		t.cents += e.Cents()
		t.count++
	}

	for _, e := range expenses {
		add(overall, e)
		if byDay[e.Day] == nil {
			byDay[e.Day] = make(map[string]*centsTotal)
		}
		add(byDay[e.Day], e)
	}

	days := make([]int, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Ints(days)

	result := domain.ExpenseTotals{
		Overall: currencyTotals(overall),
		ByDay:   make([]domain.DayTotals, 0, len(days)),
	}
	for _, d := range days {
		result.ByDay = append(result.ByDay, domain.DayTotals{Day: d, Totals: currencyTotals(byDay[d])})
	}
	return result
}

func currencyTotals(m map[string]*centsTotal) []domain.CurrencyTotal {
	out := make([]domain.CurrencyTotal, 0, len(m))
	for currency, t := range m {
		out = append(out, domain.CurrencyTotal{
			Currency: currency,
			Amount:   float64(t.cents) / 100,
			Count:    t.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
