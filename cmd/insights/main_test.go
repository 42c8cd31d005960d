package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/internal/domain"
)

var trainingColumns = []string{
	domain.ColOrderStatus, domain.ColPaymentType, domain.ColInstallments, domain.ColPayment,
	domain.ColProductID, domain.ColPrice, domain.ColFreightCost,
	domain.ColProductCategory, domain.ColPurchaseFrequency,
	domain.ColItemsPerOrder, domain.ColVolume, domain.ColCategoryGroup,
	domain.ColCorrectedSequence, domain.ColRegion, domain.ColDeliveryClass,
	domain.ColDeliveryDays,
}

func trainingRow(volume int, region, group string, days int) []string {
	return []string{
		"delivered", "credit_card", "1", "100",
		fmt.Sprintf("p%d", volume), "90", "10",
		"cama_mesa_banho", "1",
		"1", fmt.Sprint(volume), group,
		"1", region, "x",
		fmt.Sprint(days),
	}
}

func writeTable(t *testing.T, dir, name string, table *domain.Table) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dataset.WriteCSV(f, table))
	return path
}

func writeTrainingCSV(t *testing.T, dir string) string {
	var rows [][]string
	for i := 0; i < 12; i++ {
		rows = append(rows, trainingRow(1+i%3, "Sur", "Hogar", 1+i%3))
	}
	for i := 0; i < 6; i++ {
		rows = append(rows, trainingRow(50+i%2, "Centro", "Moda", 5+i%2))
	}
	for i := 0; i < 20; i++ {
		rows = append(rows, trainingRow(200+i%5, "Norte", "Tecnologia", 10+i%10))
	}
	return writeTable(t, dir, "training.csv", domain.NewTable(trainingColumns, rows))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainCommand(t *testing.T) {
	training := writeTrainingCSV(t, t.TempDir())

	out, err := execute(t, "train", "--dataset", training, "--neighbors", "3")
	require.NoError(t, err)

	var model struct {
		State  string `json:"state"`
		Report struct {
			Rows      int `json:"rows"`
			Neighbors int `json:"neighbors"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &model))
	assert.Equal(t, string(domain.ModelReady), model.State)
	assert.Equal(t, 38, model.Report.Rows)
	assert.Equal(t, 3, model.Report.Neighbors)
}

func TestTrainCommandSchema(t *testing.T) {
	training := writeTrainingCSV(t, t.TempDir())

	tests := []struct {
		schema  string
		want    string
		wantErr bool
	}{
		{schema: "default", want: domain.ColVolume},
		{schema: "infer", want: domain.ColFreightCost},
		{schema: "guess", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.schema, func(t *testing.T) {
			out, err := execute(t, "train", "--dataset", training, "--schema", tt.schema)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown schema")
				return
			}
			require.NoError(t, err)

			var model struct {
				Features []string `json:"features"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &model))
			assert.Contains(t, model.Features, tt.want)
			if tt.schema == "default" {
				assert.NotContains(t, model.Features, domain.ColFreightCost)
			}
		})
	}
}

func TestTrainCommandMissingDataset(t *testing.T) {
	_, err := execute(t, "train", "--dataset", filepath.Join(t.TempDir(), "absent.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATASET_UNAVAILABLE")
}

func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	training := writeTrainingCSV(t, dir)
	input := writeTable(t, dir, "orders.csv", domain.NewTable(
		[]string{domain.ColVolume, domain.ColRegion, domain.ColCategoryGroup},
		[][]string{{"2", "Sur", "Hogar"}, {"201", "Norte", "Tecnologia"}},
	))

	t.Run("stdout", func(t *testing.T) {
		out, err := execute(t, "predict", "--dataset", training, "--input", input)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasSuffix(lines[0], domain.ColPredictedTier))
		assert.True(t, strings.HasSuffix(lines[1], string(domain.TierPrime)))
		assert.True(t, strings.HasSuffix(lines[2], string(domain.TierRegular)))
	})

	t.Run("xlsx output", func(t *testing.T) {
		output := filepath.Join(dir, "labelled.xlsx")
		out, err := execute(t, "predict", "--dataset", training, "--input", input, "--output", output)
		require.NoError(t, err)

		var batch struct {
			Rows       int            `json:"rows"`
			TierCounts map[string]int `json:"tierCounts"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &batch))
		assert.Equal(t, 2, batch.Rows)
		assert.Equal(t, 1, batch.TierCounts[string(domain.TierPrime)])

		labelled, err := dataset.NewLoader().Load(context.Background(), output)
		require.NoError(t, err)
		assert.Equal(t, 2, labelled.Len())
		assert.Contains(t, labelled.Columns, domain.ColPredictedTier)
	})
}

func TestPredictCommandMissingColumn(t *testing.T) {
	dir := t.TempDir()
	training := writeTrainingCSV(t, dir)
	input := writeTable(t, dir, "orders.csv", domain.NewTable(
		[]string{domain.ColVolume, domain.ColCategoryGroup},
		[][]string{{"2", "Hogar"}},
	))

	_, err := execute(t, "predict", "--dataset", training, "--input", input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING_COLUMNS")
	assert.Contains(t, err.Error(), domain.ColRegion)
}

func TestPredictCommandRequiresInput(t *testing.T) {
	_, err := execute(t, "predict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestKPIsCommandArgs(t *testing.T) {
	_, err := execute(t, "kpis", "returns")
	require.Error(t, err)

	_, err = execute(t, "kpis")
	require.Error(t, err)
}

func TestKPIsCommandInvalidTier(t *testing.T) {
	_, err := execute(t, "kpis", "delivery", "--dataset", filepath.Join(t.TempDir(), "absent.csv"), "--tier", "overnight")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestProfileCommand(t *testing.T) {
	path := writeTable(t, t.TempDir(), "sample.csv", domain.NewTable(
		[]string{"a", "b"},
		[][]string{{"1", "x"}, {"2", ""}},
	))

	out, err := execute(t, "profile", "--dataset", path)
	require.NoError(t, err)

	var profile dataset.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.Equal(t, 2, profile.Rows)
	assert.Len(t, profile.Columns, 2)
	assert.Equal(t, 1, profile.NullCells)
}
