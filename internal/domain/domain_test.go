package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		days    float64
		want    DeliveryTier
		labeled bool
	}{
		{0, TierPrime, true},
		{2, TierPrime, true},
		{3, TierPrime, true},
		{3.5, TierExpress, true},
		{4, TierExpress, true},
		{7, TierExpress, true},
		{8, TierRegular, true},
		{30, TierRegular, true},
		{30.5, "", false},
		{-1, "", false},
	}

	for _, tt := range tests {
		got, ok := TierFor(tt.days)
		assert.Equal(t, tt.labeled, ok, "days=%v", tt.days)
		assert.Equal(t, tt.want, got, "days=%v", tt.days)
	}
}

func TestDeliveryTier_Range(t *testing.T) {
	lo, hi := TierExpress.Range()
	assert.Equal(t, 4, lo)
	assert.Equal(t, 7, hi)
	assert.Equal(t, 1, TierExpress.Index())
	assert.False(t, DeliveryTier("Overnight").IsValid())
}

func TestParseTierFilter(t *testing.T) {
	tests := []struct {
		in   string
		want TierFilter
	}{
		{"", FilterAll},
		{"all", FilterAll},
		{"Todas (0-30 días)", FilterAll},
		{"Prime (0-3 días)", FilterPrime},
		{"EXPRESS", FilterExpress},
		{"Regular (8-30 días)", FilterRegular},
	}
	for _, tt := range tests {
		got, err := ParseTierFilter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseTierFilter("overnight")
	assert.ErrorIs(t, err, ErrUnknownTierFilter)
}

func TestTierFilter_Contains(t *testing.T) {
	assert.True(t, FilterAll.Contains(30))
	assert.False(t, FilterAll.Contains(31))
	assert.True(t, FilterPrime.Contains(3))
	assert.False(t, FilterPrime.Contains(4))
	assert.True(t, FilterRegular.Contains(12))

	lo, hi := FilterAll.Range()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 30, hi)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{" 3 ", 3, true},
		{"1.234,5", 1234.5, true},
		{"1,234.5", 1234.5, true},
		{"1,234", 1.234, true},
		{"-1.234.567,25", -1234567.25, true},
		{"12,34.5", 0, false},
		{"1.234,5.6", 0, false},
		{"1,2,3", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestTable_RequireListsAllMissing(t *testing.T) {
	table := NewTable([]string{ColVolume}, [][]string{{"1"}})

	err := table.Require("upload", ColVolume, ColRegion, ColCategoryGroup)

	mc, ok := AsMissingColumnError(err)
	require.True(t, ok)
	assert.Equal(t, []string{ColRegion, ColCategoryGroup}, mc.Columns)
	assert.Contains(t, err.Error(), "region")
	assert.NoError(t, table.Require("upload", ColVolume))
}

func TestTable_AppendColumnDoesNotMutate(t *testing.T) {
	table := NewTable([]string{"a"}, [][]string{{"1"}, {"2"}})

	out := table.AppendColumn("b", []string{"x", "y"})

	assert.Equal(t, []string{"a"}, table.Columns)
	assert.Len(t, table.Rows[0], 1)
	assert.Equal(t, []string{"a", "b"}, out.Columns)
	assert.Equal(t, "y", out.Value(1, "b"))
}

func TestTable_FilterAndDistinct(t *testing.T) {
	table := NewTable([]string{"region", "v"}, [][]string{
		{"Sur", "1"}, {"Norte", "2"}, {"Sur", "3"}, {"", "4"},
	})

	sur := table.Filter(func(r int) bool { return table.Value(r, "region") == "Sur" })
	assert.Equal(t, 2, sur.Len())
	v, ok := sur.Float(1, "v")
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	assert.Equal(t, []string{"Sur", "Norte"}, table.Distinct("region"))
	assert.Nil(t, table.Column("missing"))
}

func TestNewTable_PadsShortRows(t *testing.T) {
	table := NewTable([]string{"a", "b"}, [][]string{{"1"}})
	assert.Equal(t, "", table.Value(0, "b"))
}

func TestModelState_Transitions(t *testing.T) {
	s, err := ModelUntrained.Transition(ModelTrained)
	require.NoError(t, err)
	s, err = s.Transition(ModelReady)
	require.NoError(t, err)
	assert.Equal(t, ModelReady, s)

	_, err = ModelUntrained.Transition(ModelReady)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.True(t, ModelReady.CanTransition(ModelTrained))
}

func TestClassDistribution(t *testing.T) {
	d := Count([]DeliveryTier{TierRegular, TierRegular, TierPrime})
	assert.Equal(t, 3, d.Total())
	assert.Equal(t, TierRegular, d.Majority())
	assert.Equal(t, 0, d[TierExpress])
}
