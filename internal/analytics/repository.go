package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

const (
	recentOrdersLimit = 10
	topProductsLimit  = 10
)

// Day buckets per dialect. Both render YYYY-MM-DD in UTC.
const (
	postgresDayExpr = "to_char(o.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD')"
	sqliteDayExpr   = "strftime('%Y-%m-%d', o.created_at)"
)

const (
	salesByDaySQL = `
SELECT %s AS day, COUNT(*) AS orders, COALESCE(SUM(o.total), 0) AS revenue
FROM orders o
WHERE o.status <> ? AND o.created_at >= ? AND o.created_at < ?
GROUP BY day
ORDER BY day ASC
`

	topProductsSQL = `
SELECT oi.product_id AS product_id, MAX(oi.product_name) AS name,
  SUM(oi.quantity) AS units, COALESCE(SUM(oi.total), 0) AS revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
WHERE o.status <> ? AND o.created_at >= ? AND o.created_at < ?
GROUP BY oi.product_id
ORDER BY units DESC, revenue DESC
LIMIT ?
`

	categoryRevenueSQL = `
SELECT c.id AS category_id, c.name AS name,
  SUM(oi.quantity) AS units, COALESCE(SUM(oi.total), 0) AS revenue
FROM order_items oi
JOIN orders o ON o.id = oi.order_id
JOIN products p ON p.id = oi.product_id
JOIN categories c ON c.id = p.category_id
WHERE o.status <> ? AND o.created_at >= ? AND o.created_at < ?
GROUP BY c.id, c.name
ORDER BY revenue DESC
`
)

// Repository runs the admin aggregation queries.
type Repository interface {
	CountOrders(ctx context.Context, status *enums.OrderStatus) (int64, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	CountCustomers(ctx context.Context) (int64, error)
	CountActiveProducts(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	SalesByDay(ctx context.Context, from, to time.Time) ([]DaySales, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error)
	CategoryRevenue(ctx context.Context, from, to time.Time) ([]CategoryRevenue, error)
}

type repository struct {
	db      *gorm.DB
	dayExpr string
}

// NewRepository picks the day-bucket expression from the connection's dialect.
func NewRepository(conn *gorm.DB) Repository {
	expr := postgresDayExpr
	if conn.Dialector != nil && conn.Dialector.Name() == "sqlite" {
		expr = sqliteDayExpr
	}
	return &repository{db: conn, dayExpr: expr}
}

func (r *repository) CountOrders(ctx context.Context, status *enums.OrderStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// Revenue sums order totals, leaving cancelled orders out.
func (r *repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Revenue decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0) AS revenue").
		Where("status <> ?", enums.OrderStatusCancelled).
		Scan(&row).Error
	return row.Revenue, err
}

func (r *repository) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", enums.UserRoleCustomer).Count(&n).Error
	return n, err
}

func (r *repository) CountActiveProducts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("status = ?", enums.ProductStatusActive).Count(&n).Error
	return n, err
}

func (r *repository) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("status = ? AND total_stock <= ?", enums.ProductStatusActive, threshold).
		Count(&n).Error
	return n, err
}

func (r *repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) SalesByDay(ctx context.Context, from, to time.Time) ([]DaySales, error) {
	var rows []DaySales
	err := r.db.WithContext(ctx).
		Raw(fmt.Sprintf(salesByDaySQL, r.dayExpr), enums.OrderStatusCancelled, from, to).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	var rows []ProductSales
	err := r.db.WithContext(ctx).
		Raw(topProductsSQL, enums.OrderStatusCancelled, from, to, limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) CategoryRevenue(ctx context.Context, from, to time.Time) ([]CategoryRevenue, error) {
	var rows []CategoryRevenue
	err := r.db.WithContext(ctx).
		Raw(categoryRevenueSQL, enums.OrderStatusCancelled, from, to).
		Scan(&rows).Error
	return rows, err
}
