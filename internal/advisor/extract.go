package advisor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Delimiters the backend is instructed to emit around its JSON budget payload.
// Matching is first-occurrence and bit-exact.
const (
	BudgetStartMarker = "---BUDGET_JSON_START---"
	BudgetEndMarker   = "---BUDGET_JSON_END---"
)

const proposalWrapperKey = "Proposed Monthly Budget"

// ExtractStatus is the tri-state outcome of budget extraction.
type ExtractStatus int

const (
	BudgetPresent ExtractStatus = iota
	BudgetAbsent
	BudgetMalformed
)

func (s ExtractStatus) String() string {
	switch s {
	case BudgetPresent:
		return "present"
	case BudgetAbsent:
		return "absent"
	case BudgetMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// BudgetProposal maps category names to proposed entries as parsed from the
// backend's delimited JSON block.
type BudgetProposal map[string]ProposalEntry

// ProposalEntry is one proposed category line. A flat JSON number is an
// absolute amount; an object carries a delta against previous spend plus a
// reason. Entries of any other shape are kept but marked invalid so the
// reconciler can report them.
type ProposalEntry struct {
	Amount  float64
	Change  float64
	Reason  string
	IsDelta bool
	Invalid bool
}

func (e *ProposalEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		e.Invalid = true
		return nil
	}

	var amount float64
	if err := json.Unmarshal(trimmed, &amount); err == nil {
		e.Amount = amount
		return nil
	}

	var obj struct {
		ProposedChange json.RawMessage `json:"proposed_change"`
		ChangeReason   string          `json:"change_reason"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		e.Invalid = true
		return nil
	}

	e.IsDelta = true
	e.Reason = obj.ChangeReason
	e.Change = parseChange(obj.ProposedChange)
	return nil
}

// parseChange tolerates numbers and numeric strings; anything else is 0, the
// same leniency the rest of the pipeline applies to backend output.
func parseChange(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		return value
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			return parsed
		}
	}

	return 0
}

// ExtractBudget ищет размеченный JSON-блок в тексте совета и разбирает его.
// Отсутствие разметки — штатный исход (absent), ошибка разбора — malformed;
// сам текст совета в обоих случаях остаётся пригодным для показа.
func ExtractBudget(advice string) (BudgetProposal, ExtractStatus) {
	start := strings.Index(advice, BudgetStartMarker)
	if start < 0 {
		return nil, BudgetAbsent
	}

	rest := advice[start+len(BudgetStartMarker):]
	end := strings.Index(rest, BudgetEndMarker)
	if end < 0 {
		return nil, BudgetAbsent
	}

	candidate := strings.TrimSpace(rest[:end])

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &wrapper); err != nil {
		return nil, BudgetMalformed
	}

	payload := []byte(candidate)
	if raw, ok := wrapper[proposalWrapperKey]; ok {
		payload = raw
	}

	var proposal BudgetProposal
	if err := json.Unmarshal(payload, &proposal); err != nil {
		return nil, BudgetMalformed
	}

	return proposal, BudgetPresent
}
