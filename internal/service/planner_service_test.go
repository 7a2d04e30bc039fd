package service

import (
	"context"
	"errors"
	"testing"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type planner struct {
	store       *docstore.MemoryStore
	itineraries *ItineraryService
	activities  *ActivityService
	checklist   *ChecklistService
	expenses    *ExpenseService
	references  *ReferenceService
	trip        *domain.Itinerary
}

func newPlanner(t *testing.T) *planner {
	t.Helper()
	store := docstore.NewMemoryStore()
	logger := zap.NewNop()
	itineraries := NewItineraryService(repository.NewItineraryRepository(store), logger)
	p := &planner{
		store:       store,
		itineraries: itineraries,
		activities:  NewActivityService(repository.NewActivityRepository(store, activitylist.SortClientFallback, logger), itineraries, logger),
		checklist:   NewChecklistService(repository.NewChecklistRepository(store), itineraries),
		expenses:    NewExpenseService(repository.NewExpenseRepository(store), itineraries),
		references:  NewReferenceService(repository.NewReferenceRepository(store), itineraries),
	}

	trip, err := itineraries.Create(context.Background(), "u1", &domain.CreateItineraryRequest{
		Title:        " Tokyo ",
		StartDate:    "2025-05-10",
		Days:         3,
		BaseCurrency: "jpy",
	})
	require.NoError(t, err)
	p.trip = trip
	return p
}

func titlesOf(list []domain.Activity) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Title
	}
	return out
}

func TestItineraryService(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	assert.Equal(t, "Tokyo", p.trip.Title)
	assert.Equal(t, "JPY", p.trip.BaseCurrency)

	_, err := p.itineraries.Get(ctx, "someone-else", p.trip.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.itineraries.Authorize(ctx, "u1", p.trip.ID, 4)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.FieldDay, verr.Field)

	days := 5
	updated, err := p.itineraries.Update(ctx, "u1", p.trip.ID, &domain.UpdateItineraryRequest{Days: &days})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Days)

	date, err := updated.DateOfDay(3)
	require.NoError(t, err)
	assert.Equal(t, "2025-05-12", date.Format("2006-01-02"))

	require.NoError(t, p.itineraries.Delete(ctx, "u1", p.trip.ID))
	assert.ErrorIs(t, p.itineraries.Delete(ctx, "u1", p.trip.ID), ErrNotFound)
}

func TestActivityService_CreateAndReorder(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	for _, title := range []string{"Breakfast", "Museum", "Dinner"} {
		a, err := p.activities.Create(ctx, "u1", p.trip.ID, 1, domain.ActivityDraft{Title: title, Location: "Shibuya"})
		require.NoError(t, err)
		require.NotNil(t, a.Order)
	}

	_, err := p.activities.Create(ctx, "u1", p.trip.ID, 1, domain.ActivityDraft{Title: "", Location: "Shibuya"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	list, err := p.activities.List(ctx, "u1", p.trip.ID, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"Breakfast", "Museum", "Dinner"}, titlesOf(list))

	dest := 0
	reordered, err := p.activities.Reorder(ctx, "u1", p.trip.ID, 1, domain.ReorderRequest{Source: 2, Destination: &dest})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dinner", "Breakfast", "Museum"}, titlesOf(reordered))

	list, err = p.activities.List(ctx, "u1", p.trip.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Dinner", "Breakfast", "Museum"}, titlesOf(list))
	for i, a := range list {
		assert.True(t, a.HasOrder(i))
	}

	out := 7
	_, err = p.activities.Reorder(ctx, "u1", p.trip.ID, 1, domain.ReorderRequest{Source: 0, Destination: &out})
	assert.ErrorIs(t, err, activitylist.ErrIndexOutOfRange)

	same, err := p.activities.Reorder(ctx, "u1", p.trip.ID, 1, domain.ReorderRequest{Source: 1})
	require.NoError(t, err)
	assert.Equal(t, titlesOf(list), titlesOf(same))
}

func TestActivityService_DeleteAndMove(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		a, err := p.activities.Create(ctx, "u1", p.trip.ID, 1, domain.ActivityDraft{Title: title, Location: "x"})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	_, err := p.activities.Create(ctx, "u1", p.trip.ID, 2, domain.ActivityDraft{Title: "X", Location: "y"})
	require.NoError(t, err)

	require.NoError(t, p.activities.Delete(ctx, "u1", p.trip.ID, ids[0]))
	assert.ErrorIs(t, p.activities.Delete(ctx, "u1", p.trip.ID, ids[0]), ErrNotFound)

	moved, err := p.activities.Move(ctx, "u1", p.trip.ID, ids[1], 2)
	require.NoError(t, err)
	assert.Equal(t, 2, moved.Day)
	assert.True(t, moved.HasOrder(1))

	day1, err := p.activities.List(ctx, "u1", p.trip.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, titlesOf(day1))
	day2, err := p.activities.List(ctx, "u1", p.trip.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "B"}, titlesOf(day2))

	_, err = p.activities.Move(ctx, "u1", p.trip.ID, ids[2], 9)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	done := true
	updated, err := p.activities.Update(ctx, "u1", p.trip.ID, ids[2], domain.ActivityPatch{IsCompleted: &done})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)
}

type failingBatch struct {
	*docstore.MemoryStore
}

func (failingBatch) BatchWrite(context.Context, []docstore.Write) error {
	return errors.New("backend unavailable")
}

func TestActivityService_ReorderFailure(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()
	for _, title := range []string{"A", "B"} {
		_, err := p.activities.Create(ctx, "u1", p.trip.ID, 1, domain.ActivityDraft{Title: title, Location: "x"})
		require.NoError(t, err)
	}

	logger := zap.NewNop()
	broken := NewActivityService(
		repository.NewActivityRepository(failingBatch{p.store}, activitylist.SortClientFallback, logger),
		p.itineraries, logger,
	)

	dest := 1
	_, err := broken.Reorder(ctx, "u1", p.trip.ID, 1, domain.ReorderRequest{Source: 0, Destination: &dest})
	assert.ErrorIs(t, err, activitylist.ErrReorderFailed)

	list, err := p.activities.List(ctx, "u1", p.trip.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, titlesOf(list))
}

func TestComputeTotals(t *testing.T) {
	expenses := []domain.Expense{
		{Day: 2, Currency: "JPY", Amount: 1200},
		{Day: 1, Currency: "USD", Amount: 0.1},
		{Day: 1, Currency: "USD", Amount: 0.2},
		{Day: 1, Currency: "JPY", Amount: 300},
		{Day: 2, Currency: "USD", Amount: 19.99},
	}

	totals := ComputeTotals(expenses)

	assert.Equal(t, []domain.CurrencyTotal{
		{Currency: "JPY", Amount: 1500, Count: 2},
		{Currency: "USD", Amount: 20.29, Count: 3},
	}, totals.Overall)

	require.Len(t, totals.ByDay, 2)
	assert.Equal(t, 1, totals.ByDay[0].Day)
	assert.Equal(t, []domain.CurrencyTotal{
		{Currency: "JPY", Amount: 300, Count: 1},
		{Currency: "USD", Amount: 0.3, Count: 2},
	}, totals.ByDay[0].Totals)
	assert.Equal(t, 2, totals.ByDay[1].Day)

	empty := ComputeTotals(nil)
	assert.Empty(t, empty.Overall)
	assert.Empty(t, empty.ByDay)
}

func TestExpenseService(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	_, err := p.expenses.Create(ctx, "u1", p.trip.ID, &domain.CreateExpenseRequest{Day: 1, Title: "Sushi", Amount: 4500, Currency: "jpy"})
	require.NoError(t, err)
	_, err = p.expenses.Create(ctx, "u1", p.trip.ID, &domain.CreateExpenseRequest{Day: 2, Title: "Train", Amount: 12.5, Currency: "USD"})
	require.NoError(t, err)

	_, err = p.expenses.Create(ctx, "u1", p.trip.ID, &domain.CreateExpenseRequest{Day: 4, Title: "Late", Amount: 1, Currency: "USD"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	day1, err := p.expenses.List(ctx, "u1", p.trip.ID, 1)
	require.NoError(t, err)
	require.Len(t, day1, 1)
	assert.Equal(t, "JPY", day1[0].Currency)

	totals, err := p.expenses.Totals(ctx, "u1", p.trip.ID)
	require.NoError(t, err)
	assert.Len(t, totals.Overall, 2)
	assert.Len(t, totals.ByDay, 2)
}

func TestChecklistService(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	cat, err := p.checklist.CreateCategory(ctx, "u1", p.trip.ID, &domain.CreateCategoryRequest{Title: "Documents"})
	require.NoError(t, err)
	_, err = p.checklist.CreateItem(ctx, "u1", p.trip.ID, cat.ID, &domain.CreateChecklistItemRequest{Name: "Passport"})
	require.NoError(t, err)
	_, err = p.checklist.CreateCategory(ctx, "u1", p.trip.ID, &domain.CreateCategoryRequest{Title: "Empty"})
	require.NoError(t, err)

	_, err = p.checklist.CreateItem(ctx, "u1", p.trip.ID, "missing", &domain.CreateChecklistItemRequest{Name: "Socks"})
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := p.checklist.List(ctx, "u1", p.trip.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Documents", all[0].Title)
	require.Len(t, all[0].Items, 1)
	assert.Equal(t, "Passport", all[0].Items[0].Name)
	assert.NotNil(t, all[1].Items)
	assert.Empty(t, all[1].Items)
}

func TestReferenceService_Spot(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	created, err := p.references.Create(ctx, "u1", p.trip.ID, &domain.CreateReferenceRequest{
		Kind:     domain.ReferenceKindSpot,
		Title:    "Tsukiji",
		Preamble: "Outer market, go early.",
		Sections: []domain.SpotSection{
			{Name: "Food", Body: "Tamagoyaki, see https://example.com/tsukiji"},
			{Name: "Hours", Body: "05:00-14:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Outer market, go early.\n\n[Food]\nTamagoyaki, see https://example.com/tsukiji\n\n[Hours]\n05:00-14:00", created.Content)
	assert.Len(t, created.Sections, 2)
	assert.Equal(t, []string{"https://example.com/tsukiji"}, created.Links)

	sections := []domain.SpotSection{{Name: "Hours", Body: "closed Sundays"}}
	updated, err := p.references.Update(ctx, "u1", p.trip.ID, created.ID, &domain.UpdateReferenceRequest{Sections: &sections})
	require.NoError(t, err)
	assert.Equal(t, "Outer market, go early.", updated.Preamble)
	assert.Equal(t, sections, updated.Sections)
	assert.Empty(t, updated.Links)

	bad := []domain.SpotSection{{Name: "Food", Body: "ok\n[Drinks]"}}
	_, err = p.references.Update(ctx, "u1", p.trip.ID, created.ID, &domain.UpdateReferenceRequest{Sections: &bad})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestReferenceService_Link(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	_, err := p.references.Create(ctx, "u1", p.trip.ID, &domain.CreateReferenceRequest{Kind: domain.ReferenceKindLink, Title: "JR Pass"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "url", verr.Field)

	link, err := p.references.Create(ctx, "u1", p.trip.ID, &domain.CreateReferenceRequest{
		Kind: domain.ReferenceKindLink, Title: "JR Pass", URL: "https://japanrailpass.example",
	})
	require.NoError(t, err)
	assert.Empty(t, link.Sections)

	list, err := p.references.List(ctx, "u1", p.trip.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "https://japanrailpass.example", list[0].URL)

	require.NoError(t, p.references.Delete(ctx, "u1", p.trip.ID, link.ID))
	_, err = p.references.Get(ctx, "u1", p.trip.ID, link.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseService_RejectsSubCentAmounts(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	for _, amount := range []float64{1.005, 0.004} {
		_, err := p.expenses.Create(ctx, "u1", p.trip.ID, &domain.CreateExpenseRequest{Day: 1, Title: "Coin", Amount: amount, Currency: "USD"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "amount %v", amount)
		assert.Equal(t, "amount", verr.Field)
	}

	e, err := p.expenses.Create(ctx, "u1", p.trip.ID, &domain.CreateExpenseRequest{Day: 1, Title: "Coin", Amount: 1.01, Currency: "USD"})
	require.NoError(t, err)

	tiny := 0.001
	_, err = p.expenses.Update(ctx, "u1", p.trip.ID, e.ID, &domain.UpdateExpenseRequest{Amount: &tiny})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)

	totals, err := p.expenses.Totals(ctx, "u1", p.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CurrencyTotal{{Currency: "USD", Amount: 1.01, Count: 1}}, totals.Overall)
}

func TestItineraryService_ShrinkKeepsUsedDays(t *testing.T) {
	p := newPlanner(t)
	ctx := context.Background()

	_, err := p.activities.Create(ctx, "u1", p.trip.ID, 2, domain.ActivityDraft{Title: "Museum", Location: "Ueno"})
	require.NoError(t, err)
	_, err = p.expenses.Create(ctx, "u1", p.trip.ID, &domain.CreateExpenseRequest{Day: 3, Title: "Taxi", Amount: 2000, Currency: "JPY"})
	require.NoError(t, err)

	one := 1
	_, err = p.itineraries.Update(ctx, "u1", p.trip.ID, &domain.UpdateItineraryRequest{Days: &one})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "days", verr.Field)
	assert.Contains(t, verr.Message, "day 3")

	two := 2
	_, err = p.itineraries.Update(ctx, "u1", p.trip.ID, &domain.UpdateItineraryRequest{Days: &two})
	require.ErrorAs(t, err, &verr)

	trip, err := p.itineraries.Get(ctx, "u1", p.trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, trip.Days)

	expenses, err := p.expenses.List(ctx, "u1", p.trip.ID, 3)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	require.NoError(t, p.expenses.Delete(ctx, "u1", p.trip.ID, expenses[0].ID))

	updated, err := p.itineraries.Update(ctx, "u1", p.trip.ID, &domain.UpdateItineraryRequest{Days: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Days)
}
