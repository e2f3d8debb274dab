// Package export renders reports as spreadsheet files.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/stock"
)

// XLSXContentType is the MIME type of the files written here.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const valuationSheet = "Valuation"

var valuationHeadings = []any{
	"Lot", "Batch", "Purchase date", "Expiry date", "Quantity", "Unit cost", "Sell price", "Value",
}

// StockValuationXLSX writes the active lots of one variant with their value
// at cost, followed by a totals row.
func StockValuationXLSX(w io.Writer, title string, v stock.Valuation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", valuationSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetCellValue(valuationSheet, "A1", title); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := setRow(f, 3, valuationHeadings); err != nil {
		return err
	}
	if err := f.SetRowStyle(valuationSheet, 3, 3, bold); err != nil {
		return err
	}

	row := 4
	for _, lot := range v.Lots {
		values := []any{
			lot.ID,
			deref(lot.BatchNumber),
			dateCell(lot.PurchaseDate),
			dateCell(lot.ExpiryDate),
			lot.Quantity,
			lot.CostPrice.InexactFloat64(),
			moneyCell(lot.SellPrice),
			types.LineAmount(lot.Quantity, lot.CostPrice).InexactFloat64(),
		}
		if err := setRow(f, row, values); err != nil {
			return err
		}
		row++
	}

	totals := []any{"Total", "", "", "", v.Quantity, "", "", v.Value.InexactFloat64()}
	if err := setRow(f, row, totals); err != nil {
		return err
	}
	if err := f.SetRowStyle(valuationSheet, row, row, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(valuationSheet, "A", "D", 16); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(valuationSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func moneyCell(m *types.Money) any {
	if m == nil {
		return ""
	}
	return m.InexactFloat64()
}
