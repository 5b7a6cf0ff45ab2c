package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/financial-advisor/backend/internal/models"
)

func TestSummarize(t *testing.T) {
	ledger := models.Ledger{
		{Category: "Rent", Withdrawals: 1000},
		{Category: "Groceries", Withdrawals: 250.50},
		{Category: "Groceries", Withdrawals: 149.50},
		{Category: "Salary", Deposits: 3200},
	}

	summary, err := Summarize(ledger, 3000)
	require.NoError(t, err)

	assert.Equal(t, 3000.0, summary.Income)
	assert.Equal(t, 1400.0, summary.TotalWithdrawals)
	assert.Equal(t, 3200.0, summary.TotalDeposits)
	assert.Equal(t, 1000.0, summary.CategoryTotals["Rent"])
	assert.Equal(t, 400.0, summary.CategoryTotals["Groceries"])
	assert.Equal(t, 0.0, summary.CategoryTotals["Salary"])
	assert.InDelta(t, (3000.0-1400.0)/3000.0*100, summary.SavingsRate, 1e-9)
}

func TestSummarizeEmptyLedger(t *testing.T) {
	summary, err := Summarize(nil, 3000)
	require.NoError(t, err)

	assert.Zero(t, summary.TotalWithdrawals)
	assert.Zero(t, summary.TotalDeposits)
	assert.Empty(t, summary.CategoryTotals)
	assert.InDelta(t, 100.0, summary.SavingsRate, 1e-9)
}

func TestSummarizeRejectsMissingCategory(t *testing.T) {
	ledger := models.Ledger{
		{Category: "Rent", Withdrawals: 1000},
		{Category: "   ", Withdrawals: 50},
	}

	_, err := Summarize(ledger, 3000)
	require.Error(t, err)
	assert.EqualError(t, err, "ledger entry 1 has no category")
}

func TestSavingsRate(t *testing.T) {
	tests := []struct {
		name     string
		income   float64
		expenses float64
		want     float64
	}{
		{name: "positive savings", income: 5000, expenses: 3000, want: 40},
		{name: "spending all income", income: 2000, expenses: 2000, want: 0},
		{name: "overspending goes negative", income: 1000, expenses: 1500, want: -50},
		{name: "zero income", income: 0, expenses: 500, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SavingsRate(tt.income, tt.expenses), 1e-9)
		})
	}
}

func TestTopCategories(t *testing.T) {
	summary := Summary{CategoryTotals: map[string]float64{
		"Rent":          1200,
		"Groceries":     400,
		"Entertainment": 150,
		"Transport":     150,
		"Utilities":     90,
		"Coffee":        40,
	}}

	top := summary.TopCategories(5)
	require.Len(t, top, 5)

	assert.Equal(t, "Rent", top[0].Category)
	assert.Equal(t, "Groceries", top[1].Category)
	// Equal totals fall back to name order.
	assert.Equal(t, "Entertainment", top[2].Category)
	assert.Equal(t, "Transport", top[3].Category)
	assert.Equal(t, "Utilities", top[4].Category)
}

func TestTopCategoriesShorterThanLimit(t *testing.T) {
	summary := Summary{CategoryTotals: map[string]float64{"Rent": 1200}}

	top := summary.TopCategories(5)
	require.Len(t, top, 1)
	assert.Equal(t, CategorySpend{Category: "Rent", Total: 1200}, top[0])
}
