package service

import (
	"github.com/shopspring/decimal"

	"github.com/ecocycle/ewaste-api/internal/models"
)

// PricingCalculator derives request totals from priced items. It is pure and
// safe for concurrent use.
type PricingCalculator struct {
	commissionRate     decimal.Decimal
	sustainabilityRate decimal.Decimal
}

// NewPricingCalculator builds a calculator with the configured rates.
func NewPricingCalculator(commissionRate, sustainabilityRate decimal.Decimal) *PricingCalculator {
	return &PricingCalculator{commissionRate: commissionRate, sustainabilityRate: sustainabilityRate}
}

// Calculate sums quantity times unit price. Lines with a non-positive quantity
// or price contribute nothing. Shares are rounded to cents.
func (c *PricingCalculator) Calculate(items []models.RequestItem) models.Quote {
	total := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 || !item.UnitPrice.IsPositive() {
			continue
		}
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return models.Quote{
		Total:               total,
		CollectorCommission: total.Mul(c.commissionRate).Round(2),
		SustainabilityFund:  total.Mul(c.sustainabilityRate).Round(2),
	}
}
