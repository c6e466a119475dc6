package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lavish-fashion/lavish-backend/pkg/enums"
)

// RecentOrder is a compact row for the dashboard feed.
type RecentOrder struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	UserID      uuid.UUID         `json:"userId"`
	Total       decimal.Decimal   `json:"total"`
	Status      enums.OrderStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Dashboard carries the admin landing-page counters.
type Dashboard struct {
	TotalOrders       int64           `json:"totalOrders"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
	TotalCustomers    int64           `json:"totalCustomers"`
	ActiveProducts    int64           `json:"activeProducts"`
	PendingOrders     int64           `json:"pendingOrders"`
	LowStockProducts  int64           `json:"lowStockProducts"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	RecentOrders      []RecentOrder   `json:"recentOrders"`
}

// DaySales is one bucket of the revenue series.
type DaySales struct {
	Date    string          `json:"date" gorm:"column:day"`
	Orders  int64           `json:"orders" gorm:"column:orders"`
	Revenue decimal.Decimal `json:"revenue" gorm:"column:revenue"`
}

// ProductSales ranks products by units sold.
type ProductSales struct {
	ProductID uuid.UUID       `json:"productId" gorm:"column:product_id"`
	Name      string          `json:"name" gorm:"column:name"`
	Units     int64           `json:"units" gorm:"column:units"`
	Revenue   decimal.Decimal `json:"revenue" gorm:"column:revenue"`
}

// CategoryRevenue sums line revenue per category.
type CategoryRevenue struct {
	CategoryID uuid.UUID       `json:"categoryId" gorm:"column:category_id"`
	Name       string          `json:"name" gorm:"column:name"`
	Units      int64           `json:"units" gorm:"column:units"`
	Revenue    decimal.Decimal `json:"revenue" gorm:"column:revenue"`
}

// Report is the GET /api/admin/analytics response.
type Report struct {
	From            string            `json:"from"`
	To              string            `json:"to"`
	SalesByDay      []DaySales        `json:"salesByDay"`
	TopProducts     []ProductSales    `json:"topProducts"`
	CategoryRevenue []CategoryRevenue `json:"categoryRevenue"`
}

// ReportInput is the raw query string range, YYYY-MM-DD on both ends.
type ReportInput struct {
	From string
	To   string
}
