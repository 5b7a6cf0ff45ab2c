package handlers

import (
	"math"
	"strings"
	"testing"
	"time"

	"example.com/financial-advisor/backend/internal/advisor"
)

// TestFormatPercent проверяет форматирование процента изменения.
func TestFormatPercent(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{name: "decrease", value: -10, want: "-10.00%"},
		{name: "increase", value: 12.5, want: "12.50%"},
		{name: "zero", value: 0, want: "0.00%"},
		{name: "new category sentinel", value: math.Inf(1), want: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPercent(tt.value); got != tt.want {
				t.Errorf("formatPercent(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// TestFloatOrZero проверяет подстановку нуля вместо отсутствующих сумм.
func TestFloatOrZero(t *testing.T) {
	if got := floatOrZero(nil); got != 0 {
		t.Errorf("floatOrZero(nil) = %v, want 0", got)
	}

	value := 42.5
	if got := floatOrZero(&value); got != 42.5 {
		t.Errorf("floatOrZero(&42.5) = %v, want 42.5", got)
	}
}

func validAdviceRequest() AdviceRequest {
	withdrawal := 1000.0
	return AdviceRequest{
		Name:           "  Alice Example  ",
		Age:            34,
		Address:        "Austin, TX",
		CurrentIncome:  3000,
		CurrentSavings: 12000,
		Goals:          []string{"Buy a house"},
		TimelineMonths: 36,
		BankStatement: []LedgerEntryRequest{
			{Date: "2026-08-01", Description: "August rent", Category: " Rent ", Withdrawals: &withdrawal},
			{Category: "Groceries"},
		},
	}
}

// TestToModels проверяет преобразование запроса в доменные модели.
func TestToModels(t *testing.T) {
	profile, ledger, err := toModels(validAdviceRequest())
	if err != nil {
		t.Fatalf("toModels() returned error: %v", err)
	}

	if profile.Name != "Alice Example" {
		t.Errorf("profile.Name = %q, want trimmed %q", profile.Name, "Alice Example")
	}
	if len(ledger) != 2 {
		t.Fatalf("ledger has %d entries, want 2", len(ledger))
	}

	first := ledger[0]
	if first.Category != "Rent" {
		t.Errorf("ledger[0].Category = %q, want trimmed %q", first.Category, "Rent")
	}
	if first.Withdrawals != 1000 {
		t.Errorf("ledger[0].Withdrawals = %v, want 1000", first.Withdrawals)
	}
	if want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC); !first.Date.Equal(want) {
		t.Errorf("ledger[0].Date = %v, want %v", first.Date, want)
	}

	// Missing amounts and dates default to zero values.
	second := ledger[1]
	if second.Withdrawals != 0 || second.Deposits != 0 {
		t.Errorf("ledger[1] amounts = %v/%v, want 0/0", second.Withdrawals, second.Deposits)
	}
	if !second.Date.IsZero() {
		t.Errorf("ledger[1].Date = %v, want zero", second.Date)
	}
}

// TestToModelsRejectsBadDate проверяет отклонение некорректной даты.
func TestToModelsRejectsBadDate(t *testing.T) {
	req := validAdviceRequest()
	req.BankStatement[0].Date = "08/01/2026"

	_, _, err := toModels(req)
	if err == nil {
		t.Fatal("toModels() with malformed date succeeded, want error")
	}
	if !strings.Contains(err.Error(), "invalid date") {
		t.Errorf("toModels() error = %q, want it to mention invalid date", err)
	}
}

// TestToBudgetResponse проверяет сборку ответа с таблицей бюджета.
func TestToBudgetResponse(t *testing.T) {
	result := advisor.Result{
		BudgetStatus: advisor.BudgetPresent,
		Budget: advisor.ReconciledBudget{
			Rows: []advisor.BudgetRow{
				{Category: "Entertainment", ProposedAmount: 50, PercentChange: math.Inf(1)},
				{Category: "Rent", PreviousSpend: 1000, ProposedAmount: 900, PercentChange: -10, ChangeReason: "Cheaper lease"},
			},
			Warnings: []string{"something to know"},
		},
	}

	out := toBudgetResponse(result, 3000)

	if out.Status != "present" {
		t.Errorf("Status = %q, want %q", out.Status, "present")
	}
	if len(out.Rows) != 2 {
		t.Fatalf("Rows has %d entries, want 2", len(out.Rows))
	}
	if out.Rows[0].PercentChange != "N/A" {
		t.Errorf("Rows[0].PercentChange = %q, want N/A", out.Rows[0].PercentChange)
	}
	if out.Rows[1].PercentChange != "-10.00%" {
		t.Errorf("Rows[1].PercentChange = %q, want -10.00%%", out.Rows[1].PercentChange)
	}
	if out.TotalProposed != 950 {
		t.Errorf("TotalProposed = %v, want 950", out.TotalProposed)
	}
	if out.Remaining != 2050 {
		t.Errorf("Remaining = %v, want 2050", out.Remaining)
	}
	if len(out.Warnings) != 1 {
		t.Errorf("Warnings = %v, want the reconciler warning passed through", out.Warnings)
	}
}

// TestRenderBudgetCSV проверяет выгрузку бюджета в CSV.
func TestRenderBudgetCSV(t *testing.T) {
	rows := []BudgetRowResponse{
		{Category: "Rent", PreviousSpend: 1000, ProposedAmount: 900, PercentChange: "-10.00%", ChangeReason: "Cheaper lease"},
		{Category: "Savings", ProposedAmount: 2050, PercentChange: "N/A", ChangeReason: "Allocated remaining amount to savings"},
	}

	payload, err := renderBudgetCSV(rows)
	if err != nil {
		t.Fatalf("renderBudgetCSV() returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV has %d lines, want 3", len(lines))
	}
	if lines[0] != "category,previous_spend,proposed_amount,percent_change,change_reason" {
		t.Errorf("CSV header = %q", lines[0])
	}
	if lines[1] != "Rent,1000.00,900.00,-10.00%,Cheaper lease" {
		t.Errorf("CSV row = %q", lines[1])
	}
	if lines[2] != "Savings,0.00,2050.00,N/A,Allocated remaining amount to savings" {
		t.Errorf("CSV row = %q", lines[2])
	}
}
