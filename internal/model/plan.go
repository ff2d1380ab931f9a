package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostUpdate is one cost write destined for the storefront. NewCost is
// already rounded to two decimal places.
type CostUpdate struct {
	VariantID       int64
	InventoryItemID int64
	SKU             string
	Qty             int
	NewCost         decimal.Decimal
}

// FamilyPlan is the derivation result for one matched family.
type FamilyPlan struct {
	Prefix            string
	SupplierProductID string
	BasePrice         decimal.Decimal
	MinQty            int
	Updates           []CostUpdate
}

// UnmatchedFamily names a family with no supplier catalog entry. No updates
// are derived for it; it is surfaced so purchasing can fix the catalog.
type UnmatchedFamily struct {
	Prefix   string
	Variants int
}

// SyncPlan is the full set of updates one run would apply, computed before
// any write is made. The plan command exports it for operator review.
type SyncPlan struct {
	RunID        string
	CreatedAt    time.Time
	VariantsSeen int
	SkippedNoSKU int
	Families     []FamilyPlan
	Unmatched    []UnmatchedFamily
}

// Updates counts the cost writes the plan contains.
func (p *SyncPlan) Updates() int {
	n := 0
	for _, f := range p.Families {
		n += len(f.Updates)
	}
	return n
}

// SyncReport summarizes one completed run.
type SyncReport struct {
	RunID           string
	DryRun          bool
	VariantsSeen    int
	SkippedNoSKU    int
	Families        int
	MatchedFamilies int
	Updates         int
	Failed          int
	Elapsed         time.Duration
}
