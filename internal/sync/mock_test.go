package sync

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/harbor-supply/costsync/pkg/shopify"
)

// --- Variant Source Mock ---

type mockVariantSource struct {
	mock.Mock
}

func (m *mockVariantSource) ListAllVariants(ctx context.Context) ([]shopify.Variant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shopify.Variant), args.Error(1)
}

// --- Catalog Source Mock ---

type mockCatalogSource struct {
	mock.Mock
}

func (m *mockCatalogSource) FetchCatalogTo(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

// --- Cost Sink Mock ---

type mockCostSink struct {
	mock.Mock
}

func (m *mockCostSink) UpdateInventoryCost(ctx context.Context, inventoryItemID int64, cost decimal.Decimal) error {
	args := m.Called(ctx, inventoryItemID, cost)
	return args.Error(0)
}

// --- Ensure interface compliance ---
var (
	_ VariantSource = (*mockVariantSource)(nil)
	_ CatalogSource = (*mockCatalogSource)(nil)
	_ CostSink      = (*mockCostSink)(nil)
)
