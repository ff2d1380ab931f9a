// Package pricing derives per-variant unit costs from supplier base prices.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/harbor-supply/costsync/internal/model"
)

// Derive computes one cost update per family member. Each member's cost is
// the supplier base price scaled by its quantity relative to the group's
// smallest quantity, rounded to two decimal places half away from zero.
// The member carrying the smallest quantity therefore pays the base price
// itself. Updates are returned in member order.
func Derive(group *model.FamilyGroup, basePrice decimal.Decimal) []model.CostUpdate {
	minQty := decimal.NewFromInt(int64(group.MinQty()))
	updates := make([]model.CostUpdate, 0, len(group.Members))
	for _, m := range group.Members {
		cost := basePrice.Mul(decimal.NewFromInt(int64(m.Qty))).Div(minQty).Round(2)
		updates = append(updates, model.CostUpdate{
			VariantID:       m.VariantID,
			InventoryItemID: m.InventoryItemID,
			SKU:             m.SKU,
			Qty:             m.Qty,
			NewCost:         cost,
		})
	}
	return updates
}
