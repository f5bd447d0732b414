package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetExpenses   = "Expenses"
	sheetCategories = "Categories"
	sheetDaily      = "Daily"

	totalFillColor = "#FFC7CE"
)

// Render produces the xlsx artifact for a built report: one sheet per
// populated view, each closed by a highlighted total row.
func Render(data Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{totalFillColor}},
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	f.SetSheetName("Sheet1", sheetExpenses)
	if err := renderExpenses(f, data, headerStyle, totalStyle); err != nil {
		return nil, err
	}
	if err := renderCategories(f, data, headerStyle, totalStyle); err != nil {
		return nil, err
	}
	if err := renderDaily(f, data, headerStyle, totalStyle); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func renderExpenses(f *excelize.File, data Data, headerStyle, totalStyle int) error {
	rows := make([][]any, 0, len(data.Expenses)+2)
	rows = append(rows, []any{"Date", "Amount", "Category", "Description"})
	for _, e := range data.Expenses {
		rows = append(rows, []any{
			e.Date.Format("02.01.2006 15:04"),
			e.Amount.Format(),
			e.Category,
			e.Description,
		})
	}
	rows = append(rows, []any{"Total:", data.Total().Format(), "", ""})
	return writeSheet(f, sheetExpenses, rows, headerStyle, totalStyle)
}

func renderCategories(f *excelize.File, data Data, headerStyle, totalStyle int) error {
	if len(data.ByCategory) == 0 {
		return nil
	}
	if _, err := f.NewSheet(sheetCategories); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetCategories, err)
	}
	rows := make([][]any, 0, len(data.ByCategory)+2)
	rows = append(rows, []any{"Category", "Count", "Total"})
	var count int64
	for _, c := range data.ByCategory {
		count += c.Count
		rows = append(rows, []any{c.Category, c.Count, c.Total.Format()})
	}
	rows = append(rows, []any{"Total:", count, data.Total().Format()})
	return writeSheet(f, sheetCategories, rows, headerStyle, totalStyle)
}

func renderDaily(f *excelize.File, data Data, headerStyle, totalStyle int) error {
	if len(data.ByDay) == 0 {
		return nil
	}
	if _, err := f.NewSheet(sheetDaily); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetDaily, err)
	}
	rows := make([][]any, 0, len(data.ByDay)+2)
	rows = append(rows, []any{"Day", "Count", "Total"})
	var count int64
	for _, d := range data.ByDay {
		count += d.Count
		rows = append(rows, []any{d.Day.Input(), d.Count, d.Total.Format()})
	}
	rows = append(rows, []any{"Total:", count, data.Total().Format()})
	return writeSheet(f, sheetDaily, rows, headerStyle, totalStyle)
}

// writeSheet fills a sheet row by row, styles the header and trailing
// total row, and sizes each column to its widest cell.
func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle, totalStyle int) error {
	widths := make([]int, len(rows[0]))

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", i+1, sheet, err)
		}
		for col, v := range row {
			if n := len(fmt.Sprint(v)); col < len(widths) && n > widths[col] {
				widths[col] = n
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return fmt.Errorf("last column name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header on %s: %w", sheet, err)
	}
	lastRow := len(rows)
	if err := f.SetCellStyle(sheet,
		fmt.Sprintf("A%d", lastRow),
		fmt.Sprintf("%s%d", lastCol, lastRow),
		totalStyle); err != nil {
		return fmt.Errorf("style total row on %s: %w", sheet, err)
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("column name %d: %w", col+1, err)
		}
		if err := f.SetColWidth(sheet, name, name, float64(w+2)); err != nil {
			return fmt.Errorf("set column width on %s: %w", sheet, err)
		}
	}
	return nil
}
