package bot

import (
	"fmt"
	"time"

	"xarajat/internal/core"
	"xarajat/internal/gateway"
)

// Callback data values. Inbound events echo these back verbatim.
const (
	cbAdd        = "add"
	cbReportMenu = "report_menu"
	cbRecent     = "recent"
	cbDaily      = "daily"
	cbCancel     = "cancel"
	cbSkip       = "skip_description"

	cbReportWeek   = "report_week"
	cbReportMonth  = "report_month"
	cbReportYear   = "report_year"
	cbReportCustom = "report_custom"

	cbCategoryPrefix = "category_"
	cbMonthPrefix    = "month_"
)

// monthsShown is how many months the picker offers: the current month
// plus six before it.
const monthsShown = 7

func mainKeyboard() gateway.Keyboard {
	return gateway.Keyboard{
		{
			{Label: "➕ Add expense", Data: cbAdd},
			{Label: "📊 Report", Data: cbReportMenu},
		},
		{
			{Label: "🕐 Recent", Data: cbRecent},
			{Label: "📅 Daily stats", Data: cbDaily},
		},
	}
}

func reportKeyboard(now time.Time, loc *time.Location) gateway.Keyboard {
	kb := gateway.Keyboard{
		{
			{Label: "Last 7 days", Data: cbReportWeek},
			{Label: "Last 30 days", Data: cbReportMonth},
		},
		{
			{Label: "Last year", Data: cbReportYear},
			{Label: "Custom range", Data: cbReportCustom},
		},
	}
	kb = append(kb, monthRows(now, loc)...)
	kb = append(kb, []gateway.Button{{Label: "Cancel", Data: cbCancel}})
	return kb
}

// monthRows lists the current month and the six before it, two per
// row, newest first.
func monthRows(now time.Time, loc *time.Location) gateway.Keyboard {
	local := now.In(loc)
	var rows gateway.Keyboard
	var row []gateway.Button
	for i := 0; i < monthsShown; i++ {
		year, month := core.MonthsBack(local.Year(), local.Month(), i)
		row = append(row, gateway.Button{
			Label: fmt.Sprintf("%s %d", month, year),
			Data:  fmt.Sprintf("%s%04d-%02d", cbMonthPrefix, year, int(month)),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// categoryKeyboard pairs categories two per row with a trailing cancel
// row. Cached per user, invalidated when categories change.
func categoryKeyboard(cats []core.Category) gateway.Keyboard {
	var rows gateway.Keyboard
	var row []gateway.Button
	for _, c := range cats {
		row = append(row, gateway.Button{
			Label: c.Name,
			Data:  fmt.Sprintf("%s%d", cbCategoryPrefix, c.ID),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []gateway.Button{{Label: "Cancel", Data: cbCancel}})
	return rows
}

func descriptionKeyboard() gateway.Keyboard {
	return gateway.Keyboard{
		{
			{Label: "Skip", Data: cbSkip},
			{Label: "Cancel", Data: cbCancel},
		},
	}
}

func cancelKeyboard() gateway.Keyboard {
	return gateway.Keyboard{
		{{Label: "Cancel", Data: cbCancel}},
	}
}
