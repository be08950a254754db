package cart

import (
	"github.com/shopspring/decimal"

	"github.com/rockettradeline/tradeline-backend/pkg/db/models"
	"github.com/rockettradeline/tradeline-backend/pkg/enums"
	apperrors "github.com/rockettradeline/tradeline-backend/pkg/errors"
	"github.com/rockettradeline/tradeline-backend/pkg/money"
)

// recomputeTotals re-derives every monetary column from the cart's items,
// discount inputs, and tax. Called after every mutation; totals are never
// trusted from storage alone.
func recomputeTotals(cart *models.Cart) error {
	subtotal := decimal.Zero
	for i := range cart.Items {
		cart.Items[i].Recalculate()
		subtotal = subtotal.Add(cart.Items[i].Amount)
	}

	discount := decimal.Zero
	if cart.DiscountKind != nil {
		switch *cart.DiscountKind {
		case enums.DiscountKindPercentage:
			discount = money.PercentOf(subtotal, cart.DiscountValue)
		case enums.DiscountKindAmount:
			discount = cart.DiscountValue
		}
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Sub(discount).Add(cart.Tax)
	if total.IsNegative() {
		// A negative total means the discount inputs no longer match the
		// items; surface it instead of silently clamping.
		return apperrors.New(apperrors.CodeInternal, "cart total is negative; discount exceeds subtotal")
	}

	cart.Subtotal = money.Round2(subtotal)
	cart.Discount = money.Round2(discount)
	cart.Total = money.Round2(total)
	return nil
}
