package sku

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harbor-supply/costsync/internal/model"
)

func rec(id int64, s string) model.VariantRecord {
	prefix, qty := Parse(s)
	return model.VariantRecord{VariantID: id, InventoryItemID: id + 1000, SKU: s, Prefix: prefix, Qty: qty}
}

func memberIDs(g *model.FamilyGroup) []int64 {
	ids := make([]int64, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.VariantID)
	}
	return ids
}

func TestGroup(t *testing.T) {
	t.Parallel()

	records := []model.VariantRecord{
		rec(1, "FR320-10"),
		rec(2, "BT14-4"),
		rec(3, "FR320-20"),
		rec(4, "FR320"),
		rec(5, "ZZ9"),
	}

	families := Group(records)

	require.Equal(t, []string{"FR320", "BT14", "ZZ9"}, families.Prefixes)

	fr := families.Groups["FR320"]
	require.NotNil(t, fr)
	assert.Equal(t, "FR320", fr.Prefix)
	assert.Equal(t, []int64{1, 3, 4}, memberIDs(fr))
	assert.Equal(t, 1, fr.MinQty())

	bt := families.Groups["BT14"]
	require.NotNil(t, bt)
	assert.Equal(t, []int64{2}, memberIDs(bt))
	assert.Equal(t, 4, bt.MinQty())
}

func TestGroupOrderIsStableAcrossRuns(t *testing.T) {
	t.Parallel()

	records := []model.VariantRecord{
		rec(1, "C-2"), rec(2, "A-5"), rec(3, "B-1"), rec(4, "A-10"),
	}

	first := Group(records)
	second := Group(records)
	assert.Equal(t, first.Prefixes, second.Prefixes)
	assert.Equal(t, []string{"C", "A", "B"}, first.Prefixes)
}

func TestGroupKeepsDuplicateSKUs(t *testing.T) {
	t.Parallel()

	families := Group([]model.VariantRecord{rec(1, "FR320-10"), rec(2, "FR320-10")})
	require.Len(t, families.Groups["FR320"].Members, 2)
	assert.Equal(t, []int64{1, 2}, memberIDs(families.Groups["FR320"]))
}

func TestGroupEmptyInput(t *testing.T) {
	t.Parallel()

	families := Group(nil)
	assert.Empty(t, families.Prefixes)
	assert.Empty(t, families.Groups)
}
