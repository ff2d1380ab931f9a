package model

// VariantRecord is a storefront variant whose SKU has been parsed into its
// family prefix and quantity multiplier. Records are immutable once built;
// the derivation stage reads them and never writes back.
type VariantRecord struct {
	VariantID       int64
	InventoryItemID int64
	SKU             string
	Prefix          string
	Qty             int // always >= 1
}

// FamilyGroup is the set of variants sharing one SKU prefix. Members keep
// the order in which they were first encountered in the variant listing.
type FamilyGroup struct {
	Prefix  string
	Members []VariantRecord
}

// MinQty returns the smallest quantity multiplier in the group. It is the
// baseline unit: the member carrying it receives the supplier price
// unchanged.
func (g *FamilyGroup) MinQty() int {
	min := g.Members[0].Qty
	for _, m := range g.Members[1:] {
		if m.Qty < min {
			min = m.Qty
		}
	}
	return min
}

// Families holds every family group from one variant listing. Prefixes
// records first-encounter order so that iteration is deterministic for a
// given input order.
type Families struct {
	Prefixes []string
	Groups   map[string]*FamilyGroup
}
