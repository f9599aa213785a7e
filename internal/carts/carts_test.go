package carts

import (
	"context"
	"database/sql"
	"testing"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/database/dbtest"
	"bookameal/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *Service
	db       *sql.DB
	customer access.Identity
	meal1    int64
	meal2    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	cook := dbtest.SeedUser(t, db, "cook@example.com", "caterer")
	return &fixture{
		svc:      NewService(db, logging.Discard()),
		db:       db,
		customer: access.Identity{UserID: dbtest.SeedUser(t, db, "a@example.com", "customer"), Role: access.RoleCustomer},
		meal1:    dbtest.SeedMeal(t, db, cook, "Jollof", 5.0),
		meal2:    dbtest.SeedMeal(t, db, cook, "Suya", 7.25),
	}
}

func ptr(n int) *int { return &n }

func TestGetCartWithoutItemsIsEmpty(t *testing.T) {
	f := newFixture(t)

	cart, err := f.svc.GetCart(context.Background(), f.customer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.Total)
	assert.Zero(t, cart.ID)
	assert.Equal(t, 0, dbtest.Count(t, f.db, "carts", ""))
}

func TestAddItemCreatesCartAndMergesQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.NotZero(t, cart.ID)

	_, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal2, Quantity: ptr(2)})
	require.NoError(t, err)
	cart, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1, Quantity: ptr(3)})
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, f.meal1, cart.Items[0].MealID)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 20.0, cart.Items[0].LineTotal)
	assert.Equal(t, "Suya", cart.Items[1].MealName)
	assert.Equal(t, 14.5, cart.Items[1].LineTotal)
	assert.Equal(t, 34.5, cart.Total)

	assert.Equal(t, 1, dbtest.Count(t, f.db, "carts", "user_id = ?", f.customer.UserID))
	assert.Equal(t, 2, dbtest.Count(t, f.db, "cart_items", ""))
}

func TestAddItemChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: 999})
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1, Quantity: ptr(0)})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1, Quantity: ptr(MaxQuantity)})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1})
	assert.True(t, apperr.IsValidation(err))

	cart, err := f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, cart.Items[0].Quantity)

	caterer := access.Identity{UserID: 1, Role: access.RoleCaterer}
	_, err = f.svc.AddItem(ctx, caterer, AddItemRequest{MealID: f.meal1})
	assert.True(t, apperr.IsForbidden(err))
}

func TestCartPricesFollowTheMeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1, Quantity: ptr(2)})
	require.NoError(t, err)
	_, err = f.db.Exec("UPDATE meals SET price = 6.0 WHERE id = ?", f.meal1)
	require.NoError(t, err)

	cart, err := f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	assert.Equal(t, 12.0, cart.Total)
}

func TestRemoveItemAndClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RemoveItem(ctx, f.customer, f.meal1)
	assert.True(t, apperr.IsNotFound(err), "no cart yet")

	_, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal2})
	require.NoError(t, err)

	cart, err := f.svc.RemoveItem(ctx, f.customer, f.meal1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, f.meal2, cart.Items[0].MealID)

	_, err = f.svc.RemoveItem(ctx, f.customer, f.meal1)
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, f.svc.Clear(ctx, f.customer))
	require.NoError(t, f.svc.Clear(ctx, f.customer))
	cart, err = f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 1, dbtest.Count(t, f.db, "carts", ""), "the cart row outlives its items")
}

func TestCartsAreIsolatedPerCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := access.Identity{UserID: dbtest.SeedUser(t, f.db, "b@example.com", "customer"), Role: access.RoleCustomer}

	_, err := f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1})
	require.NoError(t, err)

	cart, err := f.svc.GetCart(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = f.svc.RemoveItem(ctx, b, f.meal1)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeletedMealLeavesTheCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, f.customer, AddItemRequest{MealID: f.meal1})
	require.NoError(t, err)
	_, err = f.db.Exec("DELETE FROM meals WHERE id = ?", f.meal1)
	require.NoError(t, err)

	cart, err := f.svc.GetCart(ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
