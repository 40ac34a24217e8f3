package products

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
)

// UnitPriceFor returns the list price for buying quantity units: the price of
// the largest tier whose minimum quantity is met, or the base selling price.
func UnitPriceFor(product *models.Product, quantity decimal.Decimal) decimal.Decimal {
	price := product.SellingPrice
	best := decimal.Zero
	for _, tier := range product.PriceTiers {
		if quantity.LessThan(tier.MinQuantity) {
			continue
		}
		if tier.MinQuantity.GreaterThanOrEqual(best) {
			best = tier.MinQuantity
			price = tier.Price
		}
	}
	return price
}
