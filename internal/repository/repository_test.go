package repository

import (
	"context"
	"testing"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/activitylist"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/docstore"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(docstore.NewMemoryStore())

	user := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$12$hash"}
	require.NoError(t, repo.Create(ctx, user))
	require.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "$2a$12$hash", found.PasswordHash)

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = repo.Create(ctx, &domain.User{Username: "alice2", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)
	err = repo.Create(ctx, &domain.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrUserExists)

	found.HomeCurrency = "JPY"
	require.NoError(t, repo.Update(ctx, found))
	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "JPY", byID.HomeCurrency)
}

func TestItineraryRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	itineraries := NewItineraryRepository(store)
	activities := NewActivityRepository(store, activitylist.SortClientFallback, zap.NewNop())
	expenses := NewExpenseRepository(store)

	it, err := itineraries.Create(ctx, "u1", &domain.CreateItineraryRequest{Title: "Kyoto", StartDate: "2025-04-01", Days: 3})
	require.NoError(t, err)
	assert.Equal(t, "u1", it.UserID)
	assert.Equal(t, 3, it.Days)

	key := activitylist.Key{UserID: "u1", ItineraryID: it.ID, Day: 1}
	_, err = activities.Create(ctx, key, domain.ActivityDraft{Title: "Temple", Location: "Higashiyama"}, 0)
	require.NoError(t, err)
	_, err = expenses.Create(ctx, "u1", it.ID, &domain.CreateExpenseRequest{Day: 1, Title: "Tea", Amount: 800, Currency: "jpy"})
	require.NoError(t, err)

	require.NoError(t, itineraries.Delete(ctx, "u1", it.ID))

	_, err = itineraries.Get(ctx, "u1", it.ID)
	assert.ErrorIs(t, err, ErrItineraryNotFound)
	list, err := activities.ListDay(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, list)
	spent, err := expenses.List(ctx, "u1", it.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, spent)

	assert.ErrorIs(t, itineraries.Delete(ctx, "u1", it.ID), ErrItineraryNotFound)
}

func TestItineraryRepository_LastUsedDay(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	itineraries := NewItineraryRepository(store)
	activities := NewActivityRepository(store, activitylist.SortClientFallback, zap.NewNop())
	expenses := NewExpenseRepository(store)

	it, err := itineraries.Create(ctx, "u1", &domain.CreateItineraryRequest{Title: "Osaka", StartDate: "2025-04-01", Days: 5})
	require.NoError(t, err)

	last, err := itineraries.LastUsedDay(ctx, "u1", it.ID)
	require.NoError(t, err)
	assert.Zero(t, last)

	_, err = activities.Create(ctx, activitylist.Key{UserID: "u1", ItineraryID: it.ID, Day: 4}, domain.ActivityDraft{Title: "Castle", Location: "Chuo"}, 0)
	require.NoError(t, err)
	_, err = expenses.Create(ctx, "u1", it.ID, &domain.CreateExpenseRequest{Day: 2, Title: "Okonomiyaki", Amount: 1200, Currency: "JPY"})
	require.NoError(t, err)

	last, err = itineraries.LastUsedDay(ctx, "u1", it.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, last)
}

func TestActivityRepository_WriteOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(docstore.NewMemoryStore(), activitylist.SortClientFallback, zap.NewNop())
	key := activitylist.Key{UserID: "u1", ItineraryID: "t1", Day: 2}

	var ids []string
	for i, title := range []string{"A", "B", "C"} {
		a, err := repo.Create(ctx, key, domain.ActivityDraft{Title: title, Location: "x"}, i)
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	require.NoError(t, repo.WriteOrders(ctx, key, []activitylist.OrderWrite{{ID: ids[2], Order: 0}, {ID: ids[0], Order: 2}}))

	list, err := repo.ListDay(ctx, key)
	require.NoError(t, err)
	var titles []string
	for _, a := range list {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"C", "B", "A"}, titles)

	_, err = repo.Get(ctx, "u1", "t1", "missing")
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestChecklistRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewChecklistRepository(docstore.NewMemoryStore())

	clothes, err := repo.CreateCategory(ctx, "u1", "t1", "Clothes")
	require.NoError(t, err)
	docs, err := repo.CreateCategory(ctx, "u1", "t1", "Documents")
	require.NoError(t, err)
	assert.Equal(t, 0, clothes.Order)
	assert.Equal(t, 1, docs.Order)

	_, err = repo.CreateItem(ctx, "u1", "t1", clothes.ID, &domain.CreateChecklistItemRequest{Name: "Socks", Quantity: 4})
	require.NoError(t, err)
	passport, err := repo.CreateItem(ctx, "u1", "t1", docs.ID, &domain.CreateChecklistItemRequest{Name: "Passport"})
	require.NoError(t, err)

	checked, err := repo.UpdateItem(ctx, "u1", "t1", passport.ID, map[string]interface{}{"is_checked": true})
	require.NoError(t, err)
	assert.True(t, checked.IsChecked)

	all, err := repo.ListItems(ctx, "u1", "t1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.DeleteCategory(ctx, "u1", "t1", clothes.ID))
	all, err = repo.ListItems(ctx, "u1", "t1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Passport", all[0].Name)

	assert.ErrorIs(t, repo.DeleteItem(ctx, "u1", "t1", "missing"), ErrItemNotFound)
}
