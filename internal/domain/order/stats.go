package order

import (
	"context"
	"fmt"
	"time"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodAll   Period = "all"
)

func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return PeriodAll, nil
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodAll:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
}

// Since returns the earliest confirmation time included in the period.
// The zero time means no lower bound.
func (p Period) Since(now time.Time) time.Time {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, 0, -30)
	default:
		return time.Time{}
	}
}

type StatsFilter struct {
	BusinessID string
	Period     Period
}

// Stats aggregates finalized orders. Revenue and average leave out cancelled
// orders; TotalOrders counts every order in the filter.
type Stats struct {
	TotalOrders      int                   `json:"total_orders"`
	TotalRevenue     int                   `json:"total_revenue"`
	AverageOrder     int                   `json:"average_order"`
	StatusBreakdown  map[Status]int        `json:"status_breakdown"`
	PaymentBreakdown map[PaymentMethod]int `json:"payment_breakdown"`
}

func (r *Register) Stats(ctx context.Context, f StatsFilter) (*Stats, error) {
	period := f.Period
	if period == "" {
		period = PeriodAll
	}
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	all, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Summarize(all, f.BusinessID, period.Since(r.now())), nil
}

// Summarize aggregates orders confirmed at or after since
func Summarize(orders []*Order, businessID string, since time.Time) *Stats {
	s := &Stats{
		StatusBreakdown:  make(map[Status]int),
		PaymentBreakdown: make(map[PaymentMethod]int),
	}

	var counted int
	for _, o := range orders {
		if businessID != "" && o.BusinessID != businessID {
			continue
		}
		if !since.IsZero() && o.ConfirmedAt.Before(since) {
			continue
		}

		s.TotalOrders++
		s.StatusBreakdown[o.Status]++
		s.PaymentBreakdown[o.PaymentMethod]++

		if o.Status != StatusCancelled {
			s.TotalRevenue += o.Total
			counted++
		}
	}

	if counted > 0 {
		s.AverageOrder = s.TotalRevenue / counted
	}
	return s
}
