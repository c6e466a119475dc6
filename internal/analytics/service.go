package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

const (
	dateLayout       = "2006-01-02"
	defaultRangeDays = 30
	maxRangeDays     = 366
)

// Service computes admin dashboards live from the order tables.
type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Report(ctx context.Context, input ReportInput) (*Report, error)
}

type service struct {
	repo     Repository
	lowStock int
	now      func() time.Time
}

func NewService(repo Repository, lowStockThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo, lowStock: lowStockThreshold, now: time.Now}, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		out Dashboard
		err error
	)
	out.LowStockThreshold = s.lowStock
	if out.TotalOrders, err = s.repo.CountOrders(ctx, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	pending := enums.OrderStatusPending
	if out.PendingOrders, err = s.repo.CountOrders(ctx, &pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending orders")
	}
	if out.TotalRevenue, err = s.repo.Revenue(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum revenue")
	}
	if out.TotalCustomers, err = s.repo.CountCustomers(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count customers")
	}
	if out.ActiveProducts, err = s.repo.CountActiveProducts(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count products")
	}
	if out.LowStockProducts, err = s.repo.CountLowStock(ctx, s.lowStock); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count low stock")
	}
	recent, err := s.repo.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recent orders")
	}
	out.RecentOrders = make([]RecentOrder, 0, len(recent))
	for _, o := range recent {
		out.RecentOrders = append(out.RecentOrders, RecentOrder{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Total:       o.Total,
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
		})
	}
	return &out, nil
}

// Report aggregates sales for [from, to], both days inclusive.
func (s *service) Report(ctx context.Context, input ReportInput) (*Report, error) {
	from, to, err := s.resolveRange(input)
	if err != nil {
		return nil, err
	}
	end := to.AddDate(0, 0, 1)

	sales, err := s.repo.SalesByDay(ctx, from, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sales by day")
	}
	top, err := s.repo.TopProducts(ctx, from, end, topProductsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "top products")
	}
	categories, err := s.repo.CategoryRevenue(ctx, from, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "category revenue")
	}
	return &Report{
		From:            from.Format(dateLayout),
		To:              to.Format(dateLayout),
		SalesByDay:      nonNil(sales),
		TopProducts:     nonNil(top),
		CategoryRevenue: nonNil(categories),
	}, nil
}

func (s *service) resolveRange(input ReportInput) (time.Time, time.Time, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	to := today
	if raw := strings.TrimSpace(input.To); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Fields("invalid range", pkgerrors.FieldError{Field: "to", Message: "expected YYYY-MM-DD"})
		}
		to = parsed
	}
	from := to.AddDate(0, 0, -(defaultRangeDays - 1))
	if raw := strings.TrimSpace(input.From); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.Fields("invalid range", pkgerrors.FieldError{Field: "from", Message: "expected YYYY-MM-DD"})
		}
		from = parsed
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, pkgerrors.Fields("invalid range", pkgerrors.FieldError{Field: "from", Message: "must not be after to"})
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, pkgerrors.Fields("invalid range", pkgerrors.FieldError{Field: "from", Message: "range is limited to one year"})
	}
	return from, to, nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
