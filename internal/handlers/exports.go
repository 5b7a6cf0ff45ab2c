package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// renderBudgetCSV пишет таблицу бюджета в CSV для скачивания.
func renderBudgetCSV(rows []BudgetRowResponse) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"category", "previous_spend", "proposed_amount", "percent_change", "change_reason"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}

	for _, row := range rows {
		record := []string{
			row.Category,
			fmt.Sprintf("%.2f", row.PreviousSpend),
			fmt.Sprintf("%.2f", row.ProposedAmount),
			row.PercentChange,
			row.ChangeReason,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
