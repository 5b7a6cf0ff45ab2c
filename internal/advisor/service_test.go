package advisor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/financial-advisor/backend/internal/llm"
	"example.com/financial-advisor/backend/internal/models"
)

func testLedger() models.Ledger {
	return models.Ledger{
		{Category: "Rent", Withdrawals: 1000},
		{Category: "Groceries", Withdrawals: 400},
		{Category: "Salary", Deposits: 3200},
	}
}

func newTestService(primary llm.Client, secondaries []llm.Client) *Service {
	dispatcher := newTestDispatcher(primary, secondaries, time.Second)
	return NewService(dispatcher, []string{"Investopedia", "NerdWallet"}, testLogger())
}

func TestGenerateAdviceEndToEnd(t *testing.T) {
	advice := "Income and Expense Analysis looks healthy overall.\n" +
		BudgetStartMarker + "\n" +
		`{"Proposed Monthly Budget": {
			"Rent": {"proposed_change": -100, "change_reason": "Negotiated a cheaper lease"},
			"Entertainment": {"proposed_change": 50}
		}}` + "\n" +
		BudgetEndMarker + "\n"

	// Stream the advice in small pieces like a real backend would.
	var chunks []llm.Chunk
	for len(advice) > 0 {
		n := 17
		if n > len(advice) {
			n = len(advice)
		}
		chunks = append(chunks, llm.Chunk{Text: advice[:n]})
		advice = advice[n:]
	}

	primary := &fakeClient{name: "gpt-4", chunks: chunks}
	service := newTestService(primary, nil)

	profile := testProfile()
	profile.SelectedBackend = "gpt-4"

	var fragments []string
	result := service.GenerateAdvice(context.Background(), profile, testLedger(), "", func(text string) {
		fragments = append(fragments, text)
	})

	assert.Equal(t, "gpt-4", result.ServedBackend)
	assert.Equal(t, result.Advice, strings.Join(fragments, ""))
	assert.Contains(t, result.Prompt.User, "Name: Alice Example")

	require.Equal(t, BudgetPresent, result.BudgetStatus)
	require.Len(t, result.Budget.Rows, 3)

	rent := findRow(t, result.Budget, "Rent")
	assert.Equal(t, 900.0, rent.ProposedAmount)
	assert.InDelta(t, -10.0, rent.PercentChange, 1e-9)

	assert.Equal(t, 50.0, findRow(t, result.Budget, "Entertainment").ProposedAmount)
	assert.Equal(t, 2050.0, findRow(t, result.Budget, "Savings").ProposedAmount)
	assert.InDelta(t, profile.CurrentIncome, result.Budget.TotalProposed(), 0.01)
}

func TestGenerateAdviceBudgetAbsent(t *testing.T) {
	primary := &fakeClient{name: "gpt-4", chunks: textChunks("Narrative advice without any budget block.")}
	service := newTestService(primary, nil)

	profile := testProfile()
	profile.SelectedBackend = "gpt-4"

	result := service.GenerateAdvice(context.Background(), profile, testLedger(), "", nil)

	assert.Equal(t, BudgetAbsent, result.BudgetStatus)
	assert.Empty(t, result.Budget.Rows)
	assert.Equal(t, "Narrative advice without any budget block.", result.Advice)
}

func TestGenerateAdviceLedgerError(t *testing.T) {
	primary := &fakeClient{name: "gpt-4", chunks: textChunks("should never be reached")}
	service := newTestService(primary, nil)

	ledger := models.Ledger{{Category: "", Withdrawals: 10}}

	var fragments []string
	result := service.GenerateAdvice(context.Background(), testProfile(), ledger, "", func(text string) {
		fragments = append(fragments, text)
	})

	assert.Equal(t, "Error: ledger entry 0 has no category", result.Advice)
	assert.Equal(t, []string{result.Advice}, fragments)
	assert.Equal(t, BudgetAbsent, result.BudgetStatus)
	assert.Empty(t, result.ServedBackend)
	assert.True(t, IsErrorText(result.Advice))
}

func TestGenerateAdviceSecondaryFallback(t *testing.T) {
	primary := &fakeClient{name: "gpt-4", chunks: textChunks("PRIMARY_OK")}
	secondary := &fakeClient{name: "gpt2", chunks: textChunks("way too short")}
	service := newTestService(primary, []llm.Client{secondary})

	profile := testProfile()
	profile.SelectedBackend = "gpt2"

	result := service.GenerateAdvice(context.Background(), profile, testLedger(), "", nil)

	assert.Equal(t, "gpt-4", result.ServedBackend)
	assert.Equal(t, "PRIMARY_OK", result.Advice)
}
