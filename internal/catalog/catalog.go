// Package catalog owns meals and the day-keyed menus that offer them.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/database"
	"bookameal/internal/events"
	"bookameal/internal/metrics"
	"bookameal/internal/pagination"

	"github.com/sirupsen/logrus"
)

// MaxMenuRangeDays bounds ListMenus
const MaxMenuRangeDays = 366

// MenuNotifier fans a message out to every customer inside the caller's
// transaction and returns how many notifications it created.
type MenuNotifier interface {
	NotifyAllCustomersTx(ctx context.Context, tx *sql.Tx, message string) (int, error)
}

// Service implements the catalog operations
type Service struct {
	db        *sql.DB
	repo      *Repository
	notifier  MenuNotifier
	publisher events.Publisher
	log       logrus.FieldLogger
	message   string

	now func() time.Time
}

// NewService creates the catalog service. message is the text every customer
// receives when a menu is published.
func NewService(db *sql.DB, notifier MenuNotifier, publisher events.Publisher, log logrus.FieldLogger, message string) *Service {
	return &Service{
		db:        db,
		repo:      NewRepository(db),
		notifier:  notifier,
		publisher: publisher,
		log:       log,
		message:   message,
		now:       time.Now,
	}
}

func translate(err error, action string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("a meal with that name already exists for this caterer")
	}
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("meal is referenced by existing orders")
	}
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("meal name is required")
	}
	return name, nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return apperr.Validation("meal price must be a number")
	}
	if price < 0 {
		return apperr.Validation("meal price must not be negative")
	}
	return nil
}

func cleanImageURL(u *string) *string {
	if u == nil {
		return nil
	}
	s := strings.TrimSpace(*u)
	if s == "" {
		return nil
	}
	return &s
}

// canManage reports whether caller may edit meal: admins always, caterers
// only their own meals.
func canManage(caller access.Identity, meal *Meal) error {
	if access.Authorize(caller, access.AdminOnly...) {
		return nil
	}
	if access.Authorize(caller, access.RoleCaterer) && meal.CatererID == caller.UserID {
		return nil
	}
	return apperr.Forbidden("meal %d belongs to another caterer", meal.ID)
}

// CreateMeal adds a meal owned by the calling caterer or admin. Names are
// unique per caterer.
func (s *Service) CreateMeal(ctx context.Context, caller access.Identity, req CreateMealRequest) (*Meal, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}
	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Price == nil {
		return nil, apperr.Validation("meal price is required")
	}
	if err := validatePrice(*req.Price); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m := &Meal{
		CatererID: caller.UserID,
		Name:      name,
		Price:     *req.Price,
		ImageURL:  cleanImageURL(req.ImageURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertMeal(ctx, m); err != nil {
		return nil, translate(err, "insert meal")
	}
	s.log.WithFields(logrus.Fields{"meal_id": m.ID, "caterer_id": m.CatererID}).Info("meal created")
	return m, nil
}

// GetMeal returns one meal
func (s *Service) GetMeal(ctx context.Context, caller access.Identity, id int64) (*Meal, error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return nil, err
	}
	m, err := s.repo.GetMeal(ctx, id)
	if err != nil {
		return nil, translate(err, "get meal")
	}
	if m == nil {
		return nil, apperr.NotFound("meal %d not found", id)
	}
	return m, nil
}

// ListMeals returns one page of meals. catererID > 0 restricts to that caterer.
func (s *Service) ListMeals(ctx context.Context, caller access.Identity, catererID int64, p pagination.Params) (pagination.Result[Meal], error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return pagination.Result[Meal]{}, err
	}
	total, err := s.repo.CountMeals(ctx, catererID)
	if err != nil {
		return pagination.Result[Meal]{}, translate(err, "count meals")
	}
	w := pagination.Resolve(p, total)
	meals, err := s.repo.ListMeals(ctx, catererID, w.Limit(), w.Offset())
	if err != nil {
		return pagination.Result[Meal]{}, translate(err, "list meals")
	}
	return pagination.NewResult(meals, w), nil
}

// UpdateMeal applies a partial update. Orders already placed keep the price
// they were placed at.
func (s *Service) UpdateMeal(ctx context.Context, caller access.Identity, id int64, patch MealPatch) (*Meal, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}

	var updated *Meal
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		m, err := repo.GetMeal(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("meal %d not found", id)
		}
		if err := canManage(caller, m); err != nil {
			return err
		}

		if patch.Name != nil {
			if m.Name, err = validateName(*patch.Name); err != nil {
				return err
			}
		}
		if patch.Price != nil {
			if err := validatePrice(*patch.Price); err != nil {
				return err
			}
			m.Price = *patch.Price
		}
		if patch.ImageURL != nil {
			m.ImageURL = cleanImageURL(patch.ImageURL)
		}
		m.UpdatedAt = s.now().UTC()

		if err := repo.UpdateMeal(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, translate(err, "update meal")
	}
	return updated, nil
}

// DeleteMeal removes a meal and its menu associations. A meal that any
// order references, in any status, cannot be deleted, and neither can the
// last meal left on a menu.
func (s *Service) DeleteMeal(ctx context.Context, caller access.Identity, id int64) error {
	if err := access.Require(caller, access.Staff...); err != nil {
		return err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		m, err := repo.GetMeal(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return apperr.NotFound("meal %d not found", id)
		}
		if err := canManage(caller, m); err != nil {
			return err
		}

		n, err := repo.CountOrdersForMeal(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("meal %d is referenced by %d orders", id, n)
		}
		// a published menu keeps at least one meal
		dates, err := repo.SoleMealMenuDates(ctx, id)
		if err != nil {
			return err
		}
		if len(dates) > 0 {
			return apperr.Conflict("meal %d is the only meal on the menu for %s", id, strings.Join(dates, ", "))
		}
		return repo.DeleteMeal(ctx, id)
	})
	if err != nil {
		return translate(err, "delete meal")
	}
	s.log.WithField("meal_id", id).Info("meal deleted")
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

// PublishMenu sets the meals offered on date, replacing any previous set,
// and notifies every customer. The menu write and the notification rows
// commit together or not at all.
func (s *Service) PublishMenu(ctx context.Context, caller access.Identity, date string, req PublishMenuRequest) (*Menu, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}
	day, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	mealIDs := dedupe(req.MealIDs)
	if len(mealIDs) == 0 {
		return nil, apperr.Validation("a menu needs at least one meal")
	}
	name := req.Name
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		name = &trimmed
	}

	var menu *Menu
	var notified int
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.ExistingMealIDs(ctx, mealIDs)
		if err != nil {
			return err
		}
		var missing []int64
		for _, id := range mealIDs {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return apperr.NotFound("meals not found: %s", joinIDs(missing))
		}

		menuID, err := repo.UpsertMenu(ctx, day, name, caller.UserID, s.now().UTC())
		if err != nil {
			return err
		}
		if err := repo.ReplaceMenuMeals(ctx, menuID, mealIDs); err != nil {
			return err
		}

		notified, err = s.notifier.NotifyAllCustomersTx(ctx, tx, s.message)
		if err != nil {
			return err
		}

		menu, err = loadMenu(ctx, repo, day)
		return err
	})
	if err != nil {
		return nil, translate(err, "publish menu")
	}

	metrics.RecordMenuPublished()
	metrics.RecordNotifications(notified)
	s.log.WithFields(logrus.Fields{
		"menu_id":  menu.ID,
		"date":     day,
		"meals":    len(mealIDs),
		"notified": notified,
	}).Info("menu published")

	events.Fire(s.publisher, s.log, events.TypeMenuPublished, events.MenuPublished{
		MenuID:   menu.ID,
		Date:     day,
		MealIDs:  mealIDs,
		Notified: notified,
	})
	return menu, nil
}

func loadMenu(ctx context.Context, repo *Repository, day string) (*Menu, error) {
	menu, err := repo.GetMenuByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if menu == nil {
		return nil, apperr.NotFound("no menu for %s", day)
	}
	meals, err := repo.MenuMeals(ctx, menu.ID)
	if err != nil {
		return nil, err
	}
	if meals == nil {
		meals = []Meal{}
	}
	menu.Meals = meals
	return menu, nil
}

// GetMenu returns the menu for date with its meals ordered by id
func (s *Service) GetMenu(ctx context.Context, caller access.Identity, date string) (*Menu, error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return nil, err
	}
	day, err := NormalizeDate(date)
	if err != nil {
		return nil, err
	}
	menu, err := loadMenu(ctx, s.repo, day)
	if err != nil {
		return nil, translate(err, "get menu")
	}
	return menu, nil
}

// ListMenus returns the menus dated within [from, to]. An empty from means
// today; an empty to means a week after from.
func (s *Service) ListMenus(ctx context.Context, caller access.Identity, from, to string) ([]Menu, error) {
	if err := access.Require(caller, access.Everyone...); err != nil {
		return nil, err
	}

	start := s.now().UTC().Truncate(24 * time.Hour)
	if strings.TrimSpace(from) != "" {
		t, err := ParseDate(from)
		if err != nil {
			return nil, err
		}
		start = t
	}
	end := start.AddDate(0, 0, 6)
	if strings.TrimSpace(to) != "" {
		t, err := ParseDate(to)
		if err != nil {
			return nil, err
		}
		end = t
	}
	if end.Before(start) {
		return nil, apperr.Validation("range end %s is before start %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	if end.Sub(start) > MaxMenuRangeDays*24*time.Hour {
		return nil, apperr.Validation("range must not exceed %d days", MaxMenuRangeDays)
	}

	menus, err := s.repo.ListMenus(ctx, start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		return nil, translate(err, "list menus")
	}
	for i := range menus {
		meals, err := s.repo.MenuMeals(ctx, menus[i].ID)
		if err != nil {
			return nil, translate(err, "list menu meals")
		}
		if meals == nil {
			meals = []Meal{}
		}
		menus[i].Meals = meals
	}
	if menus == nil {
		menus = []Menu{}
	}
	return menus, nil
}
