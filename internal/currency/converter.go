package currency

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dalfonso89/outdoor-companion-service/internal/logger"
	"github.com/dalfonso89/outdoor-companion-service/internal/models"
)

// Converter rewrites item prices into a target display currency. An item
// whose rate cannot be resolved passes through unchanged; one unconvertible
// item never fails the rest of the list.
type Converter struct {
	rates  RateSource
	logger *logger.Logger
}

// NewConverter creates a new converter backed by the given rate source.
func NewConverter(rates RateSource, logger *logger.Logger) *Converter {
	return &Converter{
		rates:  rates,
		logger: logger,
	}
}

// Convert returns a new list, same order and length as the input, with each
// element either unchanged (already in the target currency, or no rate
// obtainable) or a price-replaced copy.
func (converter *Converter) Convert(ctx context.Context, items []models.Item, target string) []models.Item {
	if len(items) == 0 {
		return []models.Item{}
	}

	// Per-call memo so a list full of items in one currency costs one
	// lookup, and a failing pair is not retried per item.
	resolved := make(map[string]float64)
	failed := make(map[string]bool)

	converted := make([]models.Item, 0, len(items))
	for _, item := range items {
		source := item.Price.Currency
		if source == target {
			converted = append(converted, item)
			continue
		}
		if failed[source] {
			converted = append(converted, item)
			continue
		}

		rate, ok := resolved[source]
		if !ok {
			var err error
			rate, err = converter.rates.Rate(ctx, source, target)
			if err != nil {
				converter.logger.Warnf("No conversion rate %s->%s, leaving item %s unconverted: %v", source, target, item.ID, err)
				failed[source] = true
				converted = append(converted, item)
				continue
			}
			resolved[source] = rate
		}

		converted = append(converted, convertItem(item, rate, target))
	}

	return converted
}

// convertItem returns a copy of item with its price rewritten. Non-numeric
// amounts are treated as zero.
func convertItem(item models.Item, rate float64, target string) models.Item {
	amount, err := decimal.NewFromString(item.Price.Amount)
	if err != nil {
		amount = decimal.Zero
	}

	convertedAmount := amount.Mul(decimal.NewFromFloat(rate)).Round(2)

	item.Price = models.Price{
		Amount:   convertedAmount.StringFixed(2),
		Currency: target,
	}
	return item
}
