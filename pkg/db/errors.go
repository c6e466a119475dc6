package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres (pgx or pq) or SQLite. When constraintName is provided the
// constraint (or, for SQLite, the column list) must mention it.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgUniqueViolation {
		return constraintName == "" || strings.Contains(pgxErr.ConstraintName, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return constraintName == "" || strings.Contains(pqErr.Constraint, constraintName)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName == "" || strings.Contains(msg, constraintName) {
		return true
	}
	if cols, ok := sqliteUniqueColumns[constraintName]; ok {
		return strings.Contains(msg, cols)
	}
	return false
}

// sqliteUniqueColumns maps named Postgres constraints to the column list
// SQLite reports, since SQLite errors never carry the index name.
var sqliteUniqueColumns = map[string]string{
	"users_email_key":                 "users.email",
	"categories_slug_key":             "categories.slug",
	"products_slug_key":               "products.slug",
	"product_variants_sku_key":        "product_variants.sku",
	"orders_order_number_key":         "orders.order_number",
	"carts_user_id_key":               "carts.user_id",
	"carts_session_id_key":            "carts.session_id",
	"cart_items_cart_product_sku_key": "cart_items.cart_id, cart_items.product_id, cart_items.sku",
	"reviews_product_user_key":        "reviews.product_id, reviews.user_id",
	"wishlist_items_user_product_key": "wishlist_items.user_id, wishlist_items.product_id",
}
