package advisor

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	savingsCategory = "Savings"

	// Reasons are synthesized only for changes above this magnitude.
	reasonThresholdPercent = 10
)

// Income-like proposal categories are not spending lines and are skipped.
var incomeCategories = map[string]struct{}{
	"income":    {},
	"deposits":  {},
	"paychecks": {},
}

// BudgetRow is one reconciled category line. PercentChange is +Inf when a
// category had no previous spend and the proposal adds spending.
type BudgetRow struct {
	Category       string
	PreviousSpend  float64
	ProposedAmount float64
	PercentChange  float64
	ChangeReason   string
}

// ReconciledBudget holds the ordered budget table plus caller-visible
// warnings collected along the way.
type ReconciledBudget struct {
	Rows     []BudgetRow
	Warnings []string
}

// TotalProposed возвращает сумму предложенных расходов по всем строкам.
func (b ReconciledBudget) TotalProposed() float64 {
	var total float64
	for _, row := range b.Rows {
		total += row.ProposedAmount
	}
	return total
}

// Reconcile нормализует предложенный бюджет относительно реального дохода и
// исторических трат: масштабирует превышение дохода, добавляет строку
// сбережений и сортирует строки по величине изменения.
func Reconcile(proposal BudgetProposal, previousSpend map[string]float64, income float64) ReconciledBudget {
	var out ReconciledBudget

	if len(proposal) == 0 {
		out.Warnings = append(out.Warnings, "no valid budget data")
		return out
	}

	categories := make([]string, 0, len(proposal))
	for category := range proposal {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	rows := make([]BudgetRow, 0, len(proposal)+1)
	for _, category := range categories {
		entry := proposal[category]
		if entry.Invalid {
			out.Warnings = append(out.Warnings, fmt.Sprintf("invalid data for %s, category skipped", category))
			continue
		}
		if _, ok := incomeCategories[strings.ToLower(category)]; ok {
			continue
		}

		previous := previousSpend[category]
		proposed := entry.Amount
		if entry.IsDelta {
			proposed = previous + entry.Change
		}

		rows = append(rows, BudgetRow{
			Category:       category,
			PreviousSpend:  previous,
			ProposedAmount: proposed,
			PercentChange:  percentChange(proposed-previous, previous),
			ChangeReason:   entry.Reason,
		})
	}

	for i := range rows {
		if rows[i].ChangeReason == "" {
			rows[i].ChangeReason = synthesizeReason(rows[i].PercentChange)
		}
	}

	var total float64
	for _, row := range rows {
		total += row.ProposedAmount
	}

	if total > income && total > 0 {
		factor := income / total
		for i := range rows {
			rows[i].ProposedAmount *= factor
			rows[i].PercentChange = percentChange(rows[i].ProposedAmount-rows[i].PreviousSpend, rows[i].PreviousSpend)
		}

		out.Warnings = append(out.Warnings, fmt.Sprintf("proposed spending $%.2f exceeded income $%.2f and was scaled down proportionally", total, income))

		total = 0
		for _, row := range rows {
			total += row.ProposedAmount
		}
	}

	if !hasSavingsRow(rows) {
		previous := previousSpend[savingsCategory]
		savings := income - total
		rows = append(rows, BudgetRow{
			Category:       savingsCategory,
			PreviousSpend:  previous,
			ProposedAmount: savings,
			PercentChange:  percentChange(savings-previous, previous),
			ChangeReason:   "Allocated remaining amount to savings",
		})
	}

	// Infinite percent changes sort first; ties keep insertion order.
	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].PercentChange) > math.Abs(rows[j].PercentChange)
	})

	out.Rows = rows
	return out
}

// percentChange is defined for zero previous spend: +Inf on added spending,
// 0 otherwise. Never NaN.
func percentChange(difference, previous float64) float64 {
	if previous != 0 {
		return difference / previous * 100
	}
	if difference > 0 {
		return math.Inf(1)
	}
	return 0
}

func synthesizeReason(percent float64) string {
	switch {
	case math.IsInf(percent, 1):
		return "Introduces spending in a previously unused category"
	case percent > reasonThresholdPercent:
		return fmt.Sprintf("Increases spending by %.1f%% versus recent history", percent)
	case percent < -reasonThresholdPercent:
		return fmt.Sprintf("Reduces spending by %.1f%% versus recent history", -percent)
	default:
		return ""
	}
}

func hasSavingsRow(rows []BudgetRow) bool {
	for _, row := range rows {
		if strings.EqualFold(row.Category, savingsCategory) {
			return true
		}
	}
	return false
}
