package sync

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harbor-supply/costsync/pkg/shopify"
)

func costEq(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return want.Equal(d) })
}

// catalogWriting returns a catalog source that stages the given payload.
func catalogWriting(t *testing.T, payload string) *mockCatalogSource {
	t.Helper()
	catalog := &mockCatalogSource{}
	catalog.On("FetchCatalogTo", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(args.String(1), []byte(payload), 0o600))
		}).
		Return(nil)
	return catalog
}

func variantsReturning(vs ...shopify.Variant) *mockVariantSource {
	variants := &mockVariantSource{}
	variants.On("ListAllVariants", mock.Anything).Return(vs, nil)
	return variants
}

func requireEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging artifacts must not outlive the run")
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
		shopify.Variant{ID: 3, SKU: "ZZ9", InventoryItemID: 9003},
	)
	catalog := catalogWriting(t, `{"supplierList":[[{"supplierProductId":"FR320","price":12.50}]]}`)

	sink := &mockCostSink{}
	sink.On("UpdateInventoryCost", mock.Anything, int64(9001), costEq("12.50")).Return(nil)
	sink.On("UpdateInventoryCost", mock.Anything, int64(9002), costEq("25.00")).Return(nil)

	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	report, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, report.VariantsSeen)
	assert.Equal(t, 0, report.SkippedNoSKU)
	assert.Equal(t, 2, report.Families)
	assert.Equal(t, 1, report.MatchedFamilies)
	assert.Equal(t, 2, report.Updates)
	assert.Equal(t, 0, report.Failed)
	assert.False(t, report.DryRun)
	assert.NotEmpty(t, report.RunID)

	// The baseline member's update lands before the scaled one.
	sink.AssertExpectations(t)
	sink.AssertNumberOfCalls(t, "UpdateInventoryCost", 2)
	require.Len(t, sink.Calls, 2)
	assert.Equal(t, int64(9001), sink.Calls[0].Arguments.Get(1))
	assert.Equal(t, int64(9002), sink.Calls[1].Arguments.Get(1))

	// Staging path was placed under the configured temp dir and removed.
	catalogPath := catalog.Calls[0].Arguments.String(1)
	assert.True(t, strings.HasPrefix(catalogPath, tempDir))
	requireEmptyDir(t, tempDir)
}

func TestRun_SkipsVariantsWithoutSKU(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "BT14-4", InventoryItemID: 9002},
	)
	catalog := catalogWriting(t, `{"supplierList":[[{"supplierProductId":"BT14","price":"3.10"}]]}`)

	sink := &mockCostSink{}
	sink.On("UpdateInventoryCost", mock.Anything, int64(9002), costEq("3.10")).Return(nil)

	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	report, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.VariantsSeen)
	assert.Equal(t, 1, report.SkippedNoSKU)
	assert.Equal(t, 1, report.Families)
	assert.Equal(t, 1, report.Updates)
	sink.AssertExpectations(t)
}

func TestRun_VariantFetchErrorAborts(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	variants := &mockVariantSource{}
	variants.On("ListAllVariants", mock.Anything).Return(nil, eris.New("shopify: status 500"))
	catalog := &mockCatalogSource{}
	sink := &mockCostSink{}

	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	_, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "list variants")
	catalog.AssertNotCalled(t, "FetchCatalogTo", mock.Anything, mock.Anything)
	sink.AssertNotCalled(t, "UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything)
	requireEmptyDir(t, tempDir)
}

func TestRun_CatalogFetchErrorAbortsAndCleans(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	variants := variantsReturning(shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001})

	// The download dies partway: a partial file exists and must still be
	// removed.
	catalog := &mockCatalogSource{}
	catalog.On("FetchCatalogTo", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			require.NoError(t, os.WriteFile(args.String(1), []byte(`{"supplier`), 0o600))
		}).
		Return(eris.New("finale: status 503"))
	sink := &mockCostSink{}

	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	_, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch supplier catalog")
	sink.AssertNotCalled(t, "UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything)
	requireEmptyDir(t, tempDir)
}

func TestRun_MalformedCatalogContinuesWithZeroUpdates(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
	)
	catalog := catalogWriting(t, `{"supplierList":{"supplierProductId":"FR320"}}`)
	sink := &mockCostSink{}

	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	report, err := runner.Run(context.Background())

	require.NoError(t, err, "a malformed catalog is a data problem, not a run failure")
	assert.Equal(t, 0, report.MatchedFamilies)
	assert.Equal(t, 0, report.Updates)
	assert.Equal(t, 0, report.Failed)
	sink.AssertNotCalled(t, "UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything)
	requireEmptyDir(t, tempDir)
}

func TestRun_PerUpdateFailureContinues(t *testing.T) {
	t.Parallel()

	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
		shopify.Variant{ID: 3, SKU: "BT14-4", InventoryItemID: 9003},
	)
	catalog := catalogWriting(t, `{"supplierList":[[
		{"supplierProductId":"FR320","price":12.50},
		{"supplierProductId":"BT14","price":"3.10"}
	]]}`)

	sink := &mockCostSink{}
	sink.On("UpdateInventoryCost", mock.Anything, int64(9001), mock.Anything).
		Return(eris.New("shopify: status 422"))
	sink.On("UpdateInventoryCost", mock.Anything, int64(9002), costEq("25.00")).Return(nil)
	sink.On("UpdateInventoryCost", mock.Anything, int64(9003), costEq("3.10")).Return(nil)

	runner := NewRunner(variants, catalog, sink, Options{TempDir: t.TempDir()})
	report, err := runner.Run(context.Background())

	require.NoError(t, err, "individual update failures must not abort the run")
	assert.Equal(t, 2, report.Updates)
	assert.Equal(t, 1, report.Failed)
	sink.AssertNumberOfCalls(t, "UpdateInventoryCost", 3)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
	)
	catalog := catalogWriting(t, `{"supplierList":[[{"supplierProductId":"FR320","price":12.50}]]}`)
	sink := &mockCostSink{}

	runner := NewRunner(variants, catalog, sink, Options{DryRun: true, TempDir: t.TempDir()})
	report, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Updates)
	sink.AssertNotCalled(t, "UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_FamiliesFilter(t *testing.T) {
	t.Parallel()

	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "BT14-4", InventoryItemID: 9002},
	)
	catalog := catalogWriting(t, `{"supplierList":[[
		{"supplierProductId":"FR320","price":12.50},
		{"supplierProductId":"BT14","price":"3.10"}
	]]}`)

	sink := &mockCostSink{}
	sink.On("UpdateInventoryCost", mock.Anything, int64(9002), costEq("3.10")).Return(nil)

	runner := NewRunner(variants, catalog, sink, Options{Families: []string{"BT14"}, TempDir: t.TempDir()})
	report, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.MatchedFamilies)
	assert.Equal(t, 1, report.Updates)
	sink.AssertNumberOfCalls(t, "UpdateInventoryCost", 1)
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	const payload = `{"supplierList":[[{"supplierProductId":"FR320","price":12.50}]]}`
	vs := []shopify.Variant{
		{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
	}

	runOnce := func() [][2]string {
		sink := &mockCostSink{}
		sink.On("UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		runner := NewRunner(variantsReturning(vs...), catalogWriting(t, payload), sink, Options{TempDir: t.TempDir()})
		_, err := runner.Run(context.Background())
		require.NoError(t, err)

		calls := make([][2]string, 0, len(sink.Calls))
		for _, c := range sink.Calls {
			id := c.Arguments.Get(1).(int64)
			cost := c.Arguments.Get(2).(decimal.Decimal)
			calls = append(calls, [2]string{strconv.FormatInt(id, 10), cost.StringFixed(2)})
		}
		return calls
	}

	first := runOnce()
	second := runOnce()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "reruns over unchanged inputs must issue identical updates in identical order")
}

func TestRun_UpdateIntervalSpacesWrites(t *testing.T) {
	t.Parallel()

	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
		shopify.Variant{ID: 3, SKU: "FR320-30", InventoryItemID: 9003},
	)
	catalog := catalogWriting(t, `{"supplierList":[[{"supplierProductId":"FR320","price":1.00}]]}`)
	sink := &mockCostSink{}
	sink.On("UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	runner := NewRunner(variants, catalog, sink, Options{UpdateInterval: 30 * time.Millisecond, TempDir: t.TempDir()})
	start := time.Now()
	report, err := runner.Run(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, report.Updates)
	// First write is immediate, the remaining two wait one interval each.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestRun_ContextCancelledMidApply(t *testing.T) {
	t.Parallel()

	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
	)
	catalog := catalogWriting(t, `{"supplierList":[[{"supplierProductId":"FR320","price":12.50}]]}`)

	ctx, cancel := context.WithCancel(context.Background())
	sink := &mockCostSink{}
	sink.On("UpdateInventoryCost", mock.Anything, int64(9001), mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	tempDir := t.TempDir()
	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	report, err := runner.Run(ctx)

	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Updates)
	sink.AssertNumberOfCalls(t, "UpdateInventoryCost", 1)
	requireEmptyDir(t, tempDir)
}

func TestBuildPlan(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	variants := variantsReturning(
		shopify.Variant{ID: 1, SKU: "FR320-10", InventoryItemID: 9001},
		shopify.Variant{ID: 2, SKU: "FR320-20", InventoryItemID: 9002},
		shopify.Variant{ID: 3, SKU: "ZZ9", InventoryItemID: 9003},
		shopify.Variant{ID: 4, SKU: "", InventoryItemID: 9004},
	)
	catalog := catalogWriting(t, `{"supplierList":[[{"supplierProductId":"FR320","price":12.50,"partyId":"100045"}]]}`)
	sink := &mockCostSink{}

	runner := NewRunner(variants, catalog, sink, Options{TempDir: tempDir})
	plan, err := runner.BuildPlan(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, plan.RunID)
	assert.Equal(t, 4, plan.VariantsSeen)
	assert.Equal(t, 1, plan.SkippedNoSKU)
	assert.Equal(t, 2, plan.Updates())

	require.Len(t, plan.Families, 1)
	family := plan.Families[0]
	assert.Equal(t, "FR320", family.Prefix)
	assert.Equal(t, "FR320", family.SupplierProductID)
	assert.Equal(t, 10, family.MinQty)
	assert.True(t, decimal.RequireFromString("12.50").Equal(family.BasePrice))
	require.Len(t, family.Updates, 2)
	assert.Equal(t, "FR320-10", family.Updates[0].SKU)
	assert.True(t, decimal.RequireFromString("12.50").Equal(family.Updates[0].NewCost))
	assert.Equal(t, "FR320-20", family.Updates[1].SKU)
	assert.True(t, decimal.RequireFromString("25.00").Equal(family.Updates[1].NewCost))

	require.Len(t, plan.Unmatched, 1)
	assert.Equal(t, "ZZ9", plan.Unmatched[0].Prefix)
	assert.Equal(t, 1, plan.Unmatched[0].Variants)

	// Planning stages and cleans the catalog exactly like a full run.
	sink.AssertNotCalled(t, "UpdateInventoryCost", mock.Anything, mock.Anything, mock.Anything)
	requireEmptyDir(t, tempDir)
}
