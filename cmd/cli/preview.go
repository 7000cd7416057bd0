package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/flowbaker/csvclassifier/pkg/domain"
)

const maxReasonWidth = 60

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderPreview shows the category, confidence and reason of the first
// limit rows.
func renderPreview(result domain.ResultTable, limit int) string {
	if len(result.Rows) == 0 {
		return "(no rows)"
	}

	if limit > len(result.Rows) {
		limit = len(result.Rows)
	}

	rows := make([][]string, 0, limit)
	for _, row := range result.Rows[:limit] {
		r := row.Result()
		rows = append(rows, []string{r.Category, formatPreviewConfidence(r.Confidence), truncate(r.Reason, maxReasonWidth)})
	}

	return styledTable(domain.ResultColumns, rows)
}

func styledTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.String()
}

func formatPreviewConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f", confidence)
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
