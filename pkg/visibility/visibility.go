package visibility

import (
	"github.com/lavish-fashion/lavish-backend/pkg/db/models"
	"github.com/lavish-fashion/lavish-backend/pkg/enums"
	pkgerrors "github.com/lavish-fashion/lavish-backend/pkg/errors"
)

// ProductVisibilityInput drives the shared catalog checks for customer-facing reads and writes.
type ProductVisibilityInput struct {
	Product *models.Product
	// Staff may read draft and discontinued products.
	Staff bool
	// Purchasable is set by carts and orders; it ignores Staff.
	Purchasable bool
}

// EnsureProductVisible hides anything that is not active from customers.
// Hidden products surface as NOT_FOUND so their existence never leaks.
func EnsureProductVisible(input ProductVisibilityInput) error {
	p := input.Product
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if input.Staff && !input.Purchasable {
		return nil
	}
	if p.Status != enums.ProductStatusActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"productId": p.ID.String()})
	}
	return nil
}

// Visible is the boolean form used when filtering loaded rows.
func Visible(p *models.Product, staff bool) bool {
	return EnsureProductVisible(ProductVisibilityInput{Product: p, Staff: staff}) == nil
}
