package bot

import (
	"testing"
	"time"

	"xarajat/internal/core"
)

func TestMonthRowsRollsOverYearBoundary(t *testing.T) {
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	rows := monthRows(now, time.UTC)

	var data []string
	for _, row := range rows {
		for _, b := range row {
			data = append(data, b.Data)
		}
	}

	want := []string{
		"month_2025-02", "month_2025-01",
		"month_2024-12", "month_2024-11",
		"month_2024-10", "month_2024-09",
		"month_2024-08",
	}
	if len(data) != len(want) {
		t.Fatalf("months = %v, want %d entries", data, len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("month[%d] = %q, want %q", i, data[i], want[i])
		}
	}
}

func TestCategoryKeyboardLayout(t *testing.T) {
	cats := []core.Category{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "C"},
	}
	kb := categoryKeyboard(cats)

	// Two rows of categories, then the cancel row.
	if len(kb) != 3 {
		t.Fatalf("rows = %d, want 3", len(kb))
	}
	if len(kb[0]) != 2 || len(kb[1]) != 1 {
		t.Fatalf("row sizes = %d, %d", len(kb[0]), len(kb[1]))
	}
	if kb[0][0].Data != "category_1" || kb[1][0].Data != "category_3" {
		t.Fatalf("callback data = %q, %q", kb[0][0].Data, kb[1][0].Data)
	}
	cancelRow := kb[len(kb)-1]
	if len(cancelRow) != 1 || cancelRow[0].Data != cbCancel {
		t.Fatalf("last row = %+v, want cancel", cancelRow)
	}
}
