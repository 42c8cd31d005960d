package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
)

func TestDashboardService_DeliveryKPIs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.board.DeliveryKPIs(ctx, DeliveryKPIQuery{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 5, first.KPIs.Orders)
	assert.Equal(t, DeliveryKPIQuery{Category: "all", State: "all", Tier: "all"}, first.Filter)

	second, err := env.board.DeliveryKPIs(ctx, DeliveryKPIQuery{Category: "all", State: " ", Tier: "Todos"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.KPIs, second.KPIs)

	sp, err := env.board.DeliveryKPIs(ctx, DeliveryKPIQuery{State: "SP"})
	require.NoError(t, err)
	assert.Equal(t, 4, sp.KPIs.Orders)
}

func TestDashboardService_DeliveryKPIs_UnknownTier(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.board.DeliveryKPIs(context.Background(), DeliveryKPIQuery{Tier: "ultra"})
	assert.ErrorIs(t, err, domain.ErrUnknownTierFilter)
}

func TestDashboardService_ProjectionKPIs(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.board.ProjectionKPIs(context.Background(), ProjectionKPIQuery{Region: "Sur", Tier: "prime"})
	require.NoError(t, err)
	assert.Equal(t, "prime", got.Filter.Tier)
	assert.Equal(t, "Sur", got.Filter.Region)
	assert.Equal(t, 1, got.KPIs.Orders)
}

func TestDashboardService_Profile(t *testing.T) {
	env := newTestEnv(t)

	profile, err := env.board.Profile(context.Background(), ProfileQuery{Dataset: DatasetDelivery})
	require.NoError(t, err)
	assert.Equal(t, 5, profile.Rows)
	assert.Len(t, profile.Columns, 6)
	assert.Len(t, profile.Preview, dataset.PreviewRows)

	_, err = env.board.Profile(context.Background(), ProfileQuery{Dataset: "sales"})
	assert.ErrorIs(t, err, domain.ErrUnknownDataset)
}

func TestDashboardService_FilterOptions(t *testing.T) {
	env := newTestEnv(t)

	options, err := env.board.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"belleza", "cama"}, options.Categories)
	assert.Equal(t, []string{"RJ", "SP"}, options.States)
	assert.Equal(t, []string{"Hogar", "Moda"}, options.CategoryGroups)
	assert.Equal(t, []string{"Norte", "Sur"}, options.Regions)
	assert.Len(t, options.Tiers, 4)
}

func TestDashboardService_FilterOptions_OneDatasetMissing(t *testing.T) {
	env := newTestEnv(t)
	paths := env.paths
	paths.Projection = filepath.Join(t.TempDir(), "missing.xlsx")
	degraded := newTestEnvWithPaths(t, paths)

	options, err := degraded.board.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, options.Categories)
	assert.Empty(t, options.Regions)

	paths.Delivery = filepath.Join(t.TempDir(), "missing.xlsx")
	_, err = newTestEnvWithPaths(t, paths).board.FilterOptions(context.Background())
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}
