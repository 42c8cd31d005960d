package features

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danu-shop/insights/internal/domain"
)

func trainingTable() *domain.Table {
	return domain.NewTable(
		[]string{domain.ColVolume, domain.ColRegion, domain.ColCategoryGroup, domain.ColDeliveryDays, domain.ColPrice},
		[][]string{
			{"10", "Sur", "Hogar", "2", "99"},
			{"20", "Norte", "Tecnologia", "5", "10"},
			{"30", "Centro", "Hogar", "12", "1"},
			{"", "Sur", "Hogar", "3", "5"},
			{"40", "Sur", "Moda", "45", "5"},
			{"50", "Norte", "Moda", "abc", "5"},
		},
	)
}

func TestFit_Layout(t *testing.T) {
	prepared, err := NewPreparer(DefaultSchema()).Fit(trainingTable())
	require.NoError(t, err)

	want := &Layout{
		Columns: []string{
			"volumen",
			"region_Norte", "region_Sur",
			"categoria_de_productos_Tecnologia",
		},
		Numeric: []string{"volumen"},
		Categorical: []CategoricalColumn{
			{Name: "region", Reference: "Centro", Levels: []string{"Norte", "Sur"}},
			{Name: "categoria_de_productos", Reference: "Hogar", Levels: []string{"Tecnologia"}},
		},
		Means: []float64{20},
	}
	if diff := cmp.Diff(want, prepared.Layout); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 3, prepared.Dropped)
	assert.Equal(t, []domain.DeliveryTier{domain.TierPrime, domain.TierExpress, domain.TierRegular}, prepared.Labels)
	assert.Equal(t, [][]float64{
		{10, 0, 1, 0},
		{20, 1, 0, 1},
		{30, 0, 0, 0},
	}, prepared.X)
}

func TestFit_Deterministic(t *testing.T) {
	first, err := NewPreparer(DefaultSchema()).Fit(trainingTable())
	require.NoError(t, err)
	second, err := NewPreparer(DefaultSchema()).Fit(trainingTable())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("fit is not deterministic (-first +second):\n%s", diff)
	}
}

func TestFit_MissingColumns(t *testing.T) {
	table := domain.NewTable([]string{domain.ColVolume, domain.ColDeliveryDays}, [][]string{{"1", "2"}})

	_, err := NewPreparer(DefaultSchema()).Fit(table)

	mc, ok := domain.AsMissingColumnError(err)
	require.True(t, ok)
	assert.Equal(t, []string{domain.ColRegion, domain.ColCategoryGroup}, mc.Columns)
}

func TestFit_NoUsableRows(t *testing.T) {
	table := domain.NewTable(
		[]string{domain.ColVolume, domain.ColRegion, domain.ColCategoryGroup, domain.ColDeliveryDays},
		[][]string{{"1", "Sur", "Hogar", "99"}},
	)

	_, err := NewPreparer(DefaultSchema()).Fit(table)

	assert.ErrorIs(t, err, domain.ErrNoTrainingRows)
}

func TestEncode_ReproducesTrainingLayout(t *testing.T) {
	prepared, err := NewPreparer(DefaultSchema()).Fit(trainingTable())
	require.NoError(t, err)

	// columns in a different order, extra column, one unseen category, one missing volume
	input := domain.NewTable(
		[]string{domain.ColCategoryGroup, "extra", domain.ColRegion, domain.ColVolume},
		[][]string{
			{"Tecnologia", "x", "Sur", "15"},
			{"Juguetes", "y", "Norte", ""},
			{"Hogar", "z", "Centro", "5"},
		},
	)

	X, unknown, err := prepared.Layout.Encode(input)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{
		{15, 0, 1, 1},
		{20, 1, 0, 0},
		{5, 0, 0, 0},
	}, X)
	assert.Equal(t, map[string][]string{domain.ColCategoryGroup: {"Juguetes"}}, unknown)
}

func TestEncode_MissingRegion(t *testing.T) {
	prepared, err := NewPreparer(DefaultSchema()).Fit(trainingTable())
	require.NoError(t, err)

	input := domain.NewTable([]string{domain.ColVolume, domain.ColCategoryGroup}, [][]string{{"1", "Hogar"}})
	_, _, err = prepared.Layout.Encode(input)

	mc, ok := domain.AsMissingColumnError(err)
	require.True(t, ok)
	assert.Equal(t, []string{domain.ColRegion}, mc.Columns)
}

func TestRequiredInputs(t *testing.T) {
	prepared, err := NewPreparer(DefaultSchema()).Fit(trainingTable())
	require.NoError(t, err)

	assert.Equal(t, []string{domain.ColVolume, domain.ColRegion, domain.ColCategoryGroup}, prepared.Layout.RequiredInputs())
	assert.Equal(t, 4, prepared.Layout.Width())
}

func TestBooleanColumnsAreCast(t *testing.T) {
	table := domain.NewTable(
		[]string{"fragil", domain.ColRegion, domain.ColDeliveryDays},
		[][]string{{"true", "Sur", "1"}, {"false", "Norte", "9"}},
	)
	schema := Schema{Label: domain.ColDeliveryDays, Boolean: []string{"fragil"}, Categorical: []string{domain.ColRegion}}

	prepared, err := NewPreparer(schema).Fit(table)
	require.NoError(t, err)

	assert.Equal(t, []string{"fragil", "region_Sur"}, prepared.Layout.Columns)
	assert.Equal(t, [][]float64{{1, 1}, {0, 0}}, prepared.X)
}

func TestInferSchema(t *testing.T) {
	table := domain.NewTable(
		[]string{"orden_id", "volumen", "fragil", "region", "tiempo_total_entrega_dias", "vacia"},
		[][]string{
			{"a1", "1,5", "si", "Sur", "3", ""},
			{"a2", "2", "no", "Norte", "4", ""},
		},
	)

	s := InferSchema(table, domain.ColDeliveryDays, DefaultDrop())

	assert.Equal(t, []string{"volumen"}, s.Numeric)
	assert.Equal(t, []string{"fragil"}, s.Boolean)
	assert.Equal(t, []string{"region"}, s.Categorical)
	assert.NoError(t, s.Validate())
}

func TestSchemaValidate(t *testing.T) {
	assert.Error(t, Schema{}.Validate())
	assert.Error(t, Schema{Label: "a", Numeric: []string{"a"}}.Validate())
	assert.Error(t, Schema{Label: "a", Numeric: []string{"precio"}, Drop: []string{"precio"}}.Validate())
	assert.Error(t, Schema{Label: "a"}.Validate())
}
