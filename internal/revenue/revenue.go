// Package revenue reports order counts and takings per menu day.
package revenue

import (
	"context"
	"fmt"
	"math"
	"time"

	"bookameal/internal/access"
	"bookameal/internal/apperr"
	"bookameal/internal/catalog"
	"bookameal/internal/database"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultRangeDays is the window RevenueRange covers when from is omitted
	DefaultRangeDays = 30
	MaxRangeDays     = 366
)

// DaySummary is the takings of one menu date
type DaySummary struct {
	Date       string  `json:"date"`
	OrderCount int     `json:"orderCount"`
	Revenue    float64 `json:"revenue"`
}

// Totals is the takings over every date
type Totals struct {
	OrderCount int     `json:"orderCount"`
	Revenue    float64 `json:"revenue"`
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Service implements the reporting operations. All of them are staff only.
type Service struct {
	repo *Repository
	log  logrus.FieldLogger

	now func() time.Time
}

func NewService(db database.Querier, log logrus.FieldLogger) *Service {
	return &Service{repo: NewRepository(db), log: log, now: time.Now}
}

func internal(err error, action string) error {
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// Daily returns the order count and revenue for date. A day without orders
// is a zero summary, not an error.
func (s *Service) Daily(ctx context.Context, caller access.Identity, date string) (DaySummary, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return DaySummary{}, err
	}
	day, err := catalog.NormalizeDate(date)
	if err != nil {
		return DaySummary{}, err
	}
	n, sum, err := s.repo.Day(ctx, day)
	if err != nil {
		return DaySummary{}, internal(err, "daily revenue")
	}
	return DaySummary{Date: day, OrderCount: n, Revenue: cents(sum)}, nil
}

// DailyRevenue returns the sum of order totals for date
func (s *Service) DailyRevenue(ctx context.Context, caller access.Identity, date string) (float64, error) {
	d, err := s.Daily(ctx, caller, date)
	return d.Revenue, err
}

// OrderCount returns the number of orders for date
func (s *Service) OrderCount(ctx context.Context, caller access.Identity, date string) (int, error) {
	d, err := s.Daily(ctx, caller, date)
	return d.OrderCount, err
}

// TotalRevenue returns the takings over every date
func (s *Service) TotalRevenue(ctx context.Context, caller access.Identity) (Totals, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return Totals{}, err
	}
	n, sum, err := s.repo.Total(ctx)
	if err != nil {
		return Totals{}, internal(err, "total revenue")
	}
	return Totals{OrderCount: n, Revenue: cents(sum)}, nil
}

// RevenueRange returns one summary per day with orders in [from, to]. to
// defaults to today and from to DefaultRangeDays before it.
func (s *Service) RevenueRange(ctx context.Context, caller access.Identity, from, to string) ([]DaySummary, error) {
	if err := access.Require(caller, access.Staff...); err != nil {
		return nil, err
	}

	n := s.now().UTC()
	end := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	if to != "" {
		t, err := catalog.ParseDate(to)
		if err != nil {
			return nil, err
		}
		end = t
	}
	start := end.AddDate(0, 0, -(DefaultRangeDays - 1))
	if from != "" {
		t, err := catalog.ParseDate(from)
		if err != nil {
			return nil, err
		}
		start = t
	}

	fromDay, toDay := start.Format(catalog.DateLayout), end.Format(catalog.DateLayout)
	if fromDay > toDay {
		return nil, apperr.Validation("from %s is after to %s", fromDay, toDay)
	}
	if end.Sub(start) > MaxRangeDays*24*time.Hour {
		return nil, apperr.Validation("range must not exceed %d days", MaxRangeDays)
	}

	days, err := s.repo.Range(ctx, fromDay, toDay)
	if err != nil {
		return nil, internal(err, "revenue range")
	}
	if days == nil {
		days = []DaySummary{}
	}
	s.log.WithFields(logrus.Fields{"from": fromDay, "to": toDay, "days": len(days)}).Debug("revenue range")
	return days, nil
}
