package models

// All lists every persisted model in dependency order. Used by AutoMigrate in
// SQLite mode and in repository tests.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Product{},
		&ProductVariant{},
		&Order{},
		&OrderItem{},
		&Cart{},
		&CartItem{},
		&Review{},
		&WishlistItem{},
		&OutboxEvent{},
	}
}
