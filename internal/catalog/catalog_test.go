package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/database/dbtest"
	"bookameal/internal/events"
	"bookameal/internal/logging"
	"bookameal/internal/metrics"
	"bookameal/internal/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	calls   int
	message string
	err     error
}

func (f *fakeNotifier) NotifyAllCustomersTx(ctx context.Context, tx *sql.Tx, message string) (int, error) {
	f.calls++
	f.message = message
	if f.err != nil {
		return 0, f.err
	}
	// write through the caller's transaction so rollbacks are observable
	res, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, message, created_at)
		SELECT id, ?, ? FROM users WHERE role = 'customer'
	`, message, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type fixture struct {
	svc      *Service
	db       *sql.DB
	notifier *fakeNotifier
	caterer  access.Identity
	admin    access.Identity
	customer access.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	n := &fakeNotifier{}
	log := logging.Discard()
	f := &fixture{
		svc:      NewService(db, n, events.NewLogPublisher(log), log, "menu published"),
		db:       db,
		notifier: n,
		caterer:  access.Identity{UserID: dbtest.SeedUser(t, db, "cook@example.com", "caterer"), Role: access.RoleCaterer},
		admin:    access.Identity{UserID: dbtest.SeedUser(t, db, "root@example.com", "admin"), Role: access.RoleAdmin},
		customer: access.Identity{UserID: dbtest.SeedUser(t, db, "cust@example.com", "customer"), Role: access.RoleCustomer},
	}
	return f
}

func (f *fixture) meal(t *testing.T, name string, price float64) *Meal {
	t.Helper()
	m, err := f.svc.CreateMeal(context.Background(), f.caterer, CreateMealRequest{Name: name, Price: &price})
	require.NoError(t, err)
	return m
}

func ptr[T any](v T) *T { return &v }

func TestCreateMealValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateMeal(ctx, f.caterer, CreateMealRequest{Name: "  ", Price: ptr(1.0)})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.CreateMeal(ctx, f.caterer, CreateMealRequest{Name: "Soup"})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.CreateMeal(ctx, f.caterer, CreateMealRequest{Name: "Soup", Price: ptr(-0.5)})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.CreateMeal(ctx, f.customer, CreateMealRequest{Name: "Soup", Price: ptr(1.0)})
	assert.True(t, apperr.IsForbidden(err))

	m, err := f.svc.CreateMeal(ctx, f.caterer, CreateMealRequest{Name: " Soup ", Price: ptr(0.0), ImageURL: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "Soup", m.Name)
	assert.Nil(t, m.ImageURL)
	assert.Equal(t, f.caterer.UserID, m.CatererID)
}

func TestDuplicateMealNameRejectedPerCaterer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.meal(t, "Jollof", 5)

	_, err := f.svc.CreateMeal(ctx, f.caterer, CreateMealRequest{Name: "Jollof", Price: ptr(6.0)})
	assert.True(t, apperr.IsConflict(err))

	// another caterer may use the same name
	_, err = f.svc.CreateMeal(ctx, f.admin, CreateMealRequest{Name: "Jollof", Price: ptr(6.0)})
	assert.NoError(t, err)
}

func TestUpdateMealPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.meal(t, "Jollof", 5)
	f.meal(t, "Fufu", 4)

	updated, err := f.svc.UpdateMeal(ctx, f.caterer, m.ID, MealPatch{Price: ptr(6.5)})
	require.NoError(t, err)
	assert.Equal(t, "Jollof", updated.Name)
	assert.Equal(t, 6.5, updated.Price)

	updated, err = f.svc.UpdateMeal(ctx, f.caterer, m.ID, MealPatch{ImageURL: ptr("https://img/j.png")})
	require.NoError(t, err)
	require.NotNil(t, updated.ImageURL)
	assert.Equal(t, 6.5, updated.Price)

	_, err = f.svc.UpdateMeal(ctx, f.caterer, m.ID, MealPatch{Name: ptr("Fufu")})
	assert.True(t, apperr.IsConflict(err))

	_, err = f.svc.UpdateMeal(ctx, f.caterer, 999, MealPatch{Name: ptr("X")})
	assert.True(t, apperr.IsNotFound(err))
}

func TestOnlyOwnerOrAdminManagesMeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.meal(t, "Jollof", 5)
	other := access.Identity{UserID: dbtest.SeedUser(t, f.db, "other@example.com", "caterer"), Role: access.RoleCaterer}

	_, err := f.svc.UpdateMeal(ctx, other, m.ID, MealPatch{Price: ptr(1.0)})
	assert.True(t, apperr.IsForbidden(err))
	assert.True(t, apperr.IsForbidden(f.svc.DeleteMeal(ctx, other, m.ID)))

	_, err = f.svc.UpdateMeal(ctx, f.admin, m.ID, MealPatch{Price: ptr(1.0)})
	assert.NoError(t, err)
}

func TestPublishMenuRoundTripAndReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.meal(t, "A", 5)
	b := f.meal(t, "B", 7.5)
	c := f.meal(t, "C", 3)

	menu, err := f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{b.ID, a.ID, a.ID}})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", menu.Date)
	require.Len(t, menu.Meals, 2)
	assert.Equal(t, a.ID, menu.Meals[0].ID)
	assert.Equal(t, b.ID, menu.Meals[1].ID)

	got, err := f.svc.GetMenu(ctx, f.customer, "2024-06-01T18:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, menu.Meals, got.Meals)

	// replacement is a full overwrite, not a union
	_, err = f.svc.PublishMenu(ctx, f.admin, "2024-06-01", PublishMenuRequest{Name: ptr("Saturday"), MealIDs: []int64{c.ID}})
	require.NoError(t, err)
	got, err = f.svc.GetMenu(ctx, f.customer, "2024-06-01")
	require.NoError(t, err)
	require.Len(t, got.Meals, 1)
	assert.Equal(t, c.ID, got.Meals[0].ID)
	assert.Equal(t, menu.ID, got.ID)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Saturday", *got.Name)

	assert.Equal(t, 2, f.notifier.calls)
	assert.Equal(t, "menu published", f.notifier.message)
	assert.Equal(t, 1, dbtest.Count(t, f.db, "menus", ""))
	assert.Equal(t, 2, dbtest.Count(t, f.db, "notifications", ""))
}

func TestPublishMenuErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.meal(t, "A", 5)

	_, err := f.svc.PublishMenu(ctx, f.caterer, "01/06/2024", PublishMenuRequest{MealIDs: []int64{a.ID}})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.PublishMenu(ctx, f.customer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{a.ID}})
	assert.True(t, apperr.IsForbidden(err))

	_, err = f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{a.ID, 77, 78}})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Contains(t, err.Error(), "77, 78")

	assert.Equal(t, 0, dbtest.Count(t, f.db, "menus", ""))
	assert.Equal(t, 0, f.notifier.calls)
}

func TestPublishMenuRollsBackWhenFanOutFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.meal(t, "A", 5)
	b := f.meal(t, "B", 6)
	before := notificationsCreated(t)

	_, err := f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{a.ID}})
	require.NoError(t, err)
	assert.Equal(t, before+1, notificationsCreated(t))

	f.notifier.err = errors.New("disk I/O error")
	_, err = f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{b.ID}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, before+1, notificationsCreated(t))

	// the previous meal set is intact
	got, err := f.svc.GetMenu(ctx, f.customer, "2024-06-01")
	require.NoError(t, err)
	require.Len(t, got.Meals, 1)
	assert.Equal(t, a.ID, got.Meals[0].ID)
	assert.Equal(t, 1, dbtest.Count(t, f.db, "notifications", ""))
}

func TestGetMenuNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetMenu(context.Background(), f.customer, "2030-01-01")
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteMealPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.meal(t, "A", 5)
	b := f.meal(t, "B", 6)

	menu, err := f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = f.db.Exec(`INSERT INTO orders (user_id, menu_id, meal_id, order_day, quantity, total_price, status, created_at, updated_at)
		VALUES (?, ?, ?, '2024-06-01', 1, 5, 'cancelled', ?, ?)`, f.customer.UserID, menu.ID, a.ID, now, now)
	require.NoError(t, err)

	// even a cancelled order keeps the meal alive
	err = f.svc.DeleteMeal(ctx, f.caterer, a.ID)
	assert.True(t, apperr.IsConflict(err))

	// an unreferenced meal goes, along with its menu association
	require.NoError(t, f.svc.DeleteMeal(ctx, f.caterer, b.ID))
	got, err := f.svc.GetMenu(ctx, f.customer, "2024-06-01")
	require.NoError(t, err)
	require.Len(t, got.Meals, 1)
	assert.Equal(t, a.ID, got.Meals[0].ID)

	assert.True(t, apperr.IsNotFound(f.svc.DeleteMeal(ctx, f.caterer, b.ID)))
}

func TestDeleteMealKeepsMenusNonEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.meal(t, "A", 5)
	b := f.meal(t, "B", 6)

	_, err := f.svc.PublishMenu(ctx, f.caterer, "2024-06-01", PublishMenuRequest{MealIDs: []int64{a.ID}})
	require.NoError(t, err)
	_, err = f.svc.PublishMenu(ctx, f.caterer, "2024-06-02", PublishMenuRequest{MealIDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)

	err = f.svc.DeleteMeal(ctx, f.caterer, a.ID)
	require.True(t, apperr.IsConflict(err))
	assert.Contains(t, apperr.Message(err), "2024-06-01")
	assert.NotContains(t, apperr.Message(err), "2024-06-02")
	assert.Equal(t, 1, dbtest.Count(t, f.db, "meals", "id = ?", a.ID))

	// b shares its only menu with a, so it can go
	require.NoError(t, f.svc.DeleteMeal(ctx, f.caterer, b.ID))
	got, err := f.svc.GetMenu(ctx, f.customer, "2024-06-02")
	require.NoError(t, err)
	require.Len(t, got.Meals, 1)

	// now a is alone on both menus
	err = f.svc.DeleteMeal(ctx, f.admin, a.ID)
	require.True(t, apperr.IsConflict(err))
	assert.Contains(t, apperr.Message(err), "2024-06-01, 2024-06-02")
}

func TestListMealsAndMenus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.meal(t, "A", 5)
	f.meal(t, "B", 6)
	_, err := f.svc.CreateMeal(ctx, f.admin, CreateMealRequest{Name: "C", Price: ptr(1.0)})
	require.NoError(t, err)

	res, err := f.svc.ListMeals(ctx, f.customer, 0, pagination.Params{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalCount)
	assert.Equal(t, 2, res.TotalPages)
	assert.Len(t, res.Items, 2)

	res, err = f.svc.ListMeals(ctx, f.customer, f.caterer.UserID, pagination.Params{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)

	for _, d := range []string{"2024-06-01", "2024-06-03", "2024-06-20"} {
		_, err := f.svc.PublishMenu(ctx, f.caterer, d, PublishMenuRequest{MealIDs: []int64{a.ID}})
		require.NoError(t, err)
	}

	menus, err := f.svc.ListMenus(ctx, f.customer, "2024-06-01", "2024-06-07")
	require.NoError(t, err)
	require.Len(t, menus, 2)
	assert.Equal(t, "2024-06-01", menus[0].Date)
	assert.Len(t, menus[1].Meals, 1)

	_, err = f.svc.ListMenus(ctx, f.customer, "2024-06-07", "2024-06-01")
	assert.True(t, apperr.IsValidation(err))

	f.svc.now = func() time.Time { return time.Date(2024, 6, 19, 15, 0, 0, 0, time.UTC) }
	menus, err = f.svc.ListMenus(ctx, f.customer, "", "")
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, "2024-06-20", menus[0].Date)
}

func TestParseDate(t *testing.T) {
	d, err := NormalizeDate("2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d)

	d, err = NormalizeDate("2024-06-01T23:59:59+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", d)

	_, err = ParseDate("2024-13-01")
	assert.True(t, apperr.IsValidation(err))
}

func notificationsCreated(t *testing.T) float64 {
	t.Helper()
	mfs, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == "bookameal_notifications_created_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}
