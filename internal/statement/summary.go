package statement

import (
	"fmt"
	"sort"
	"strings"

	"example.com/financial-advisor/backend/internal/models"
)

// Summary aggregates one ledger for a single advice request. Income is the
// user-declared monthly income, not the sum of ledger deposits.
type Summary struct {
	Income           float64
	TotalWithdrawals float64
	TotalDeposits    float64
	SavingsRate      float64
	CategoryTotals   map[string]float64
}

// CategorySpend is one per-category withdrawal total.
type CategorySpend struct {
	Category string
	Total    float64
}

// Summarize агрегирует выписку в итоги по категориям и норму сбережений.
func Summarize(ledger models.Ledger, income float64) (Summary, error) {
	totals := make(map[string]float64, 8)

	summary := Summary{Income: income, CategoryTotals: totals}
	for i, entry := range ledger {
		if strings.TrimSpace(entry.Category) == "" {
			return Summary{}, fmt.Errorf("ledger entry %d has no category", i)
		}

		summary.TotalWithdrawals += entry.Withdrawals
		summary.TotalDeposits += entry.Deposits
		totals[entry.Category] += entry.Withdrawals
	}

	summary.SavingsRate = SavingsRate(income, summary.TotalWithdrawals)
	return summary, nil
}

// SavingsRate возвращает норму сбережений в процентах; 0 при нулевом доходе.
func SavingsRate(income, expenses float64) float64 {
	if income == 0 {
		return 0
	}

	return (income - expenses) / income * 100
}

// TopCategories возвращает n самых затратных категорий по убыванию.
func (s Summary) TopCategories(n int) []CategorySpend {
	out := make([]CategorySpend, 0, len(s.CategoryTotals))
	for category, total := range s.CategoryTotals {
		out = append(out, CategorySpend{Category: category, Total: total})
	}

	// Name ascending on equal totals keeps the ordering deterministic.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Category < out[j].Category
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
