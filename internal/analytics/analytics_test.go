package analytics

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danu-shop/insights/internal/domain"
)

func deliveryTable() *domain.Table {
	return domain.NewTable(
		[]string{
			domain.ColCustomerID, domain.ColPurchaseTimestamp, domain.ColVolume, domain.ColProductCategory,
			domain.ColCustomerState, domain.ColDeliveryDays, domain.ColTotalValue,
		},
		[][]string{
			{"c1", "2018-01-05 10:00:00", "10", "cama", "SP", "2", "100"},
			{"c1", "2018-02-05 10:00:00", "20", "cama", "SP", "5", "120"},
			{"c2", "2018-01-10 10:00:00", "30", "cama", "RJ", "10", "200"},
			{"c3", "2018-01-11 10:00:00", "40", "belleza", "SP", "12", "200"},
			{"c3", "2018-01-20 10:00:00", "50", "belleza", "SP", "3", "100"},
		},
	)
}

func projectionTable() *domain.Table {
	return domain.NewTable(
		[]string{domain.ColCategoryGroup, domain.ColRegion, domain.ColVolume, domain.ColSimulatedDelivery, domain.ColRetention},
		[][]string{
			{"Hogar", "Sur", "10", "2", "1"},
			{"Hogar", "Norte", "20", "5", "0"},
			{"Moda", "Sur", "30", "9", "1"},
			{"Moda", "Sur", "40", "3", "1"},
			{"Tech", "Norte", "50", "40", "1"},
		},
	)
}

func TestQuantile(t *testing.T) {
	assert.Equal(t, 3.25, Quantile([]float64{4, 1, 3, 2}, 0.75))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
	assert.Equal(t, 7.0, Median([]float64{7}))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 2.0, RoundHalfEven(2.5, 0))
	assert.Equal(t, 4.0, RoundHalfEven(3.5, 0))
	assert.Equal(t, 1.23, RoundHalfEven(1.2345, 2))
}

func TestHistogram(t *testing.T) {
	got := Histogram([]float64{4, 4, 7, 8, 5.5}, 4, 7)

	assert.Equal(t, []DayCount{{4, 2}, {5, 0}, {6, 0}, {7, 1}}, got)
}

func TestTopN(t *testing.T) {
	table := domain.NewTable([]string{"c"}, [][]string{{"a"}, {"b"}, {"b"}, {"c"}, {""}, {"a"}, {"d"}})

	got := TopN(table, "c", 3)

	assert.Equal(t, []CategoryCount{{"a", 2}, {"b", 2}, {"c", 1}}, got)
}

func TestDeliveryKPIs_AllFilters(t *testing.T) {
	k := ComputeDeliveryKPIs(deliveryTable(), DeliveryFilter{Tier: domain.FilterAll})

	assert.Equal(t, 5, k.Orders)
	assert.Equal(t, 40.0, k.HighVolumeThreshold)
	assert.Equal(t, 1, k.HighVolumeOrders)
	assert.Equal(t, 100.0, k.FastShareHighVolume)
	assert.Equal(t, 3, k.Customers)
	assert.Equal(t, 1, k.RetainedCustomers)
	assert.InDelta(t, 33.333, k.RetentionRate, 1e-3)
	assert.InDelta(t, 66.667, k.NotRetained, 1e-3)
	assert.Equal(t, 6, k.AverageDeliveryDays)
	assert.True(t, k.WithinIdeal)
	assert.Equal(t, "Entrega Promedio (días)", k.AverageTitle)
	assert.Equal(t, "cama", k.TopCategory)
	assert.Equal(t, 3, k.TopCategorySales)
	require.NotNil(t, k.SavingsExpress)
	require.NotNil(t, k.SavingsPrime)
	assert.InDelta(t, 40.0, *k.SavingsExpress, 1e-9)
	assert.InDelta(t, 50.0, *k.SavingsPrime, 1e-9)
	assert.Len(t, k.Histogram, 31)
	assert.Equal(t, 1, k.Histogram[12].Count)
}

func TestDeliveryKPIs_StateFilterLeavesRetention(t *testing.T) {
	k := ComputeDeliveryKPIs(deliveryTable(), DeliveryFilter{State: "SP", Tier: domain.FilterAll})

	assert.Equal(t, 4, k.Orders)
	assert.Equal(t, 42.5, k.HighVolumeThreshold)
	assert.Equal(t, 3, k.Customers)
	assert.Equal(t, []CategoryCount{{"cama", 2}, {"belleza", 2}}, k.TopCategories)
}

func TestDeliveryKPIs_TierAndCategory(t *testing.T) {
	express := ComputeDeliveryKPIs(deliveryTable(), DeliveryFilter{Category: "all", Tier: domain.FilterExpress})
	assert.Equal(t, 5, express.AverageDeliveryDays)
	assert.Equal(t, "Entrega Promedio Express (días)", express.AverageTitle)
	assert.Len(t, express.Histogram, 4)

	belleza := ComputeDeliveryKPIs(deliveryTable(), DeliveryFilter{Category: "belleza", Tier: domain.FilterAll})
	assert.Equal(t, 1, belleza.Customers)
	assert.Zero(t, belleza.RetainedCustomers)
	assert.Nil(t, belleza.SavingsExpress, "no express orders in the slice")
}

func TestDeliveryKPIs_EmptySlice(t *testing.T) {
	k := ComputeDeliveryKPIs(deliveryTable(), DeliveryFilter{Category: "juguetes", Tier: domain.FilterAll})

	assert.Zero(t, k.Orders)
	assert.Zero(t, k.FastShareHighVolume)
	assert.Zero(t, k.RetentionRate)
	assert.Equal(t, NoCategory, k.TopCategory)
	assert.Nil(t, k.SavingsPrime)
}

func TestDeliveryKPIs_SavingsNeedTotalValue(t *testing.T) {
	table := domain.NewTable([]string{domain.ColVolume, domain.ColDeliveryDays}, [][]string{{"1", "2"}, {"3", "9"}})

	k := ComputeDeliveryKPIs(table, DeliveryFilter{})

	assert.Nil(t, k.SavingsExpress)
	assert.Nil(t, k.SavingsPrime)
}

func TestProjectionKPIs_All(t *testing.T) {
	k := ComputeProjectionKPIs(projectionTable(), ProjectionFilter{Tier: domain.FilterAll}, DefaultBaselines())

	assert.Equal(t, 4, k.Orders)
	assert.Equal(t, 3, k.RetainedProjected)
	assert.Equal(t, 60.0, k.RetentionProjected)
	assert.Equal(t, 2.95, k.RetentionCurrent)
	assert.InDelta(t, 57.05, k.RetentionDelta, 1e-9)
	assert.True(t, k.AboveTarget)
	assert.Equal(t, 4, k.MedianDelivery)
	assert.Equal(t, 6.0, k.DeliveryImprovement)
	assert.Equal(t, 25.0, k.MedianVolume)
	assert.Equal(t, 30.0, k.MedianVolumeAll)
	assert.Equal(t, []CategoryCount{{"Hogar", 2}, {"Moda", 2}}, k.TopCategories)
	assert.Len(t, k.Histogram, 31)
}

func TestProjectionKPIs_PrimeUsesTierBaseline(t *testing.T) {
	k := ComputeProjectionKPIs(projectionTable(), ProjectionFilter{Tier: domain.FilterPrime}, DefaultBaselines())

	assert.Equal(t, 2, k.Orders)
	assert.Equal(t, 40.0, k.RetentionProjected)
	assert.Equal(t, 0.25, k.RetentionCurrent)
	assert.Equal(t, 2, k.MedianDelivery, "2.5 rounds half to even")
	assert.Equal(t, 8.0, k.DeliveryImprovement)
	assert.Len(t, k.Histogram, 4)
}

func TestProjectionKPIs_RankingIgnoresCategory(t *testing.T) {
	k := ComputeProjectionKPIs(projectionTable(), ProjectionFilter{Category: "Moda", Region: "Sur", Tier: domain.FilterAll}, DefaultBaselines())

	assert.Equal(t, 2, k.Orders)
	assert.Equal(t, []CategoryCount{{"Moda", 2}, {"Hogar", 1}}, k.TopCategories)
}

func TestProjectionKPIs_NoRetentionColumn(t *testing.T) {
	table := domain.NewTable([]string{domain.ColSimulatedDelivery}, [][]string{{"3"}})

	k := ComputeProjectionKPIs(table, ProjectionFilter{}, DefaultBaselines())

	assert.Zero(t, k.RetainedProjected)
	assert.Zero(t, k.RetentionProjected)
	assert.False(t, k.AboveTarget)
}

func TestLoadBaselines(t *testing.T) {
	b, err := LoadBaselines("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaselines(), b)

	path := filepath.Join(t.TempDir(), "baselines.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retention_current:\n  prime: 0.5\ndelivery_current_days: 12\n"), 0o600))

	b, err = LoadBaselines(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, b.Retention(domain.FilterPrime))
	assert.Equal(t, 2.95, b.Retention(domain.FilterAll))
	assert.Equal(t, 12.0, b.DeliveryCurrentDays)
	assert.Equal(t, 3.0, b.RetentionTarget)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("retention_current:\n  overnight: 1\n"), 0o600))
	_, err = LoadBaselines(bad)
	assert.ErrorIs(t, err, domain.ErrUnknownTierFilter)

	_, err = LoadBaselines(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	o := Options(deliveryTable(), projectionTable())

	assert.Equal(t, []string{"belleza", "cama"}, o.Categories)
	assert.Equal(t, []string{"RJ", "SP"}, o.States)
	assert.Equal(t, []string{"Hogar", "Moda", "Tech"}, o.CategoryGroups)
	assert.Equal(t, []string{"Norte", "Sur"}, o.Regions)
	assert.Len(t, o.Tiers, 4)

	empty := Options(nil, nil)
	assert.Nil(t, empty.Categories)
}
