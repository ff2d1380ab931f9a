package sync

import (
	"go.uber.org/zap"

	"github.com/harbor-supply/costsync/pkg/finale"
)

// flattenSuppliers reduces the catalog's nested per-product entry lists to
// one lookup keyed by supplier product id. A later occurrence of an id
// overwrites an earlier one, with a warning per overwrite. Entries without
// an id and entries with negative prices are dropped.
func flattenSuppliers(log *zap.Logger, catalog *finale.Catalog) map[string]finale.SupplierEntry {
	suppliers := make(map[string]finale.SupplierEntry)
	for _, row := range catalog.SupplierList {
		for _, entry := range row {
			if entry.SupplierProductID == "" {
				log.Debug("dropping supplier entry without product id",
					zap.String("party_id", entry.PartyID))
				continue
			}
			if entry.Price.IsNegative() {
				log.Warn("dropping supplier entry with negative price",
					zap.String("supplier_product_id", entry.SupplierProductID),
					zap.String("price", entry.Price.String()))
				continue
			}
			if _, seen := suppliers[entry.SupplierProductID]; seen {
				log.Warn("duplicate supplier product id, keeping last occurrence",
					zap.String("supplier_product_id", entry.SupplierProductID))
			}
			suppliers[entry.SupplierProductID] = entry
		}
	}
	return suppliers
}
