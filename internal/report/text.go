package report

import (
	"errors"
	"fmt"
	"strings"

	"xarajat/internal/core"
)

// maxMessageLen is the largest text message the gateway accepts.
const maxMessageLen = 4000

// Summary renders the plain-text report sent in chat: per-category
// totals with their share of spending, the grand total, then one detail
// line per expense.
func Summary(title string, data Data) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")

	shares, err := core.Percentages(data.ByCategory)
	for i, row := range data.ByCategory {
		b.WriteString(fmt.Sprintf("%s: %s", row.Category, row.Total.Format()))
		if err == nil {
			b.WriteString(fmt.Sprintf(" (%.1f%%)", shares[i]))
		}
		b.WriteString("\n")
	}
	if errors.Is(err, core.ErrZeroTotal) && len(data.ByCategory) == 0 {
		b.WriteString("No expenses in this period.\n")
	}

	b.WriteString(fmt.Sprintf("\nTotal: %s", data.Total().Format()))

	if len(data.Expenses) > 0 {
		b.WriteString("\n\nDetails:\n")
		for _, e := range data.Expenses {
			b.WriteString(fmt.Sprintf("%s  %s  %s",
				e.Date.Format("02.01.2006"), e.Amount.Format(), e.Category))
			if e.Description != "" {
				b.WriteString("  " + e.Description)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Chunk splits a message into gateway-sized pieces, breaking on line
// boundaries where possible.
func Chunk(text string) []string {
	if len(text) <= maxMessageLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > maxMessageLen {
		cut := strings.LastIndexByte(text[:maxMessageLen], '\n')
		if cut <= 0 {
			cut = maxMessageLen
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
