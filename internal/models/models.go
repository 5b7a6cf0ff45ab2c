package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	minAge            = 18
	maxAge            = 120
	maxMonthlyIncome  = 1_000_000
	maxSavings        = 10_000_000
	maxTimelineMonths = 600
)

// UserProfile is one advice request's financial profile. It is built once per
// request and never mutated during a generation cycle.
type UserProfile struct {
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Address         string   `json:"address"`
	CurrentIncome   float64  `json:"current_income"`
	CurrentSavings  float64  `json:"current_savings"`
	Goals           []string `json:"goals"`
	TimelineMonths  int      `json:"timeline_months"`
	Constraints     []string `json:"constraints,omitempty"`
	SelectedBackend string   `json:"selected_backend"`
}

// LedgerEntry is one categorized bank-statement row. Withdrawals and Deposits
// default to zero when absent so aggregation never fails on missing values.
type LedgerEntry struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Withdrawals float64   `json:"withdrawals"`
	Deposits    float64   `json:"deposits"`
}

type Ledger []LedgerEntry

// Validate проверяет профиль по тем же границам, что и пользовательская форма.
func (p UserProfile) Validate() error {
	var problems []string

	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name must be a non-empty string")
	}
	if p.Age < minAge || p.Age > maxAge {
		problems = append(problems, fmt.Sprintf("age must be between %d and %d", minAge, maxAge))
	}
	if strings.TrimSpace(p.Address) == "" {
		problems = append(problems, "address must be a non-empty string")
	}
	if p.CurrentIncome <= 0 || p.CurrentIncome > maxMonthlyIncome {
		problems = append(problems, fmt.Sprintf("current income must be between 0.01 and %d", maxMonthlyIncome))
	}
	if p.CurrentSavings < 0 || p.CurrentSavings > maxSavings {
		problems = append(problems, fmt.Sprintf("current savings must be between 0 and %d", maxSavings))
	}
	if len(p.Goals) == 0 {
		problems = append(problems, "goals must be a non-empty list")
	}
	if p.TimelineMonths < 1 || p.TimelineMonths > maxTimelineMonths {
		problems = append(problems, fmt.Sprintf("timeline must be between 1 and %d months", maxTimelineMonths))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}

	return nil
}
