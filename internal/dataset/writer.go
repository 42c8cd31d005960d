package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/danu-shop/insights/internal/domain"
)

// WriteCSV writes the header and rows of table as comma separated values
func WriteCSV(w io.Writer, table *domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// EncodeCSV renders table into a byte slice
func EncodeCSV(table *domain.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes table to the first sheet of a new workbook
func WriteXLSX(w io.Writer, table *domain.Table) error {
	wb := excelize.NewFile()
	defer wb.Close()

	sheet := wb.GetSheetName(0)
	write := func(rowIdx int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return wb.SetSheetRow(sheet, cell, &values)
	}

	if err := write(1, table.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for r, row := range table.Rows {
		if err := write(r+2, row); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	return wb.Write(w)
}
