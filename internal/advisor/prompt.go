package advisor

import (
	"fmt"
	"strings"

	"example.com/financial-advisor/backend/internal/models"
	"example.com/financial-advisor/backend/internal/statement"
)

const topCategoryCount = 5

// PromptPair is one system/user instruction pair. Built fresh per request and
// never mutated afterwards; identical inputs produce byte-identical prompts.
type PromptPair struct {
	System string
	User   string
}

const systemTemplate = "You are a friendly, empathetic professional budget advisor. " +
	"Provide a detailed yet approachable financial analysis and budgeting advice for the following client. " +
	"Use a warm, first-person perspective as if you're having a conversation with a friend. " +
	"The client's monthly income is EXACTLY $%.2f. " +
	"Always use this exact income figure in your analysis and advice. Do not assume or use any other income figure."

// BuildPrompt собирает детерминированную пару инструкций для бекенда.
func BuildPrompt(profile models.UserProfile, summary statement.Summary, sources []string, followUp string) PromptPair {
	var b strings.Builder

	fmt.Fprintf(&b, "Based on the following user information and financial data, provide a comprehensive financial analysis and advice:\n\n")
	fmt.Fprintf(&b, "Name: %s\n", profile.Name)
	fmt.Fprintf(&b, "Age: %d\n", profile.Age)
	fmt.Fprintf(&b, "Location: %s\n", profile.Address)
	fmt.Fprintf(&b, "Monthly Income: $%.2f\n", profile.CurrentIncome)
	fmt.Fprintf(&b, "Current Savings: $%.2f\n", profile.CurrentSavings)
	fmt.Fprintf(&b, "Financial Goals: %s\n", strings.Join(profile.Goals, ", "))
	fmt.Fprintf(&b, "Timeline: %d months\n\n", profile.TimelineMonths)

	fmt.Fprintf(&b, "Bank Statement Summary:\n")
	fmt.Fprintf(&b, "Total Deposits: $%.2f\n", summary.TotalDeposits)
	fmt.Fprintf(&b, "Total Withdrawals: $%.2f\n\n", summary.TotalWithdrawals)

	fmt.Fprintf(&b, "Top Expense Categories:\n")
	for i, spend := range summary.TopCategories(topCategoryCount) {
		fmt.Fprintf(&b, "%d. %s: $%.2f\n", i+1, spend.Category, spend.Total)
	}
	b.WriteString("\n")

	if len(profile.Constraints) > 0 {
		fmt.Fprintf(&b, "Budgeting Constraints:\n")
		for _, constraint := range profile.Constraints {
			fmt.Fprintf(&b, "- %s\n", constraint)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "IMPORTANT: The client's monthly income is EXACTLY $%.2f. ", profile.CurrentIncome)
	fmt.Fprintf(&b, "Do not use any other income figure in your analysis or advice. This is the correct and only income figure to use.\n")
	fmt.Fprintf(&b, "Please provide the following sections in this exact order:\n")
	fmt.Fprintf(&b, "1. Income and Expense Analysis\n")
	fmt.Fprintf(&b, "2. Savings Rate Evaluation\n")
	fmt.Fprintf(&b, "3. Goal Feasibility\n")
	fmt.Fprintf(&b, "4. Recommendations for Improvement\n")
	fmt.Fprintf(&b, "5. Proposed Monthly Budget (in JSON format)\n\n")

	fmt.Fprintf(&b, "Use the following format for the Proposed Monthly Budget:\n")
	fmt.Fprintf(&b, "%s\n", BudgetStartMarker)
	fmt.Fprintf(&b, "{\n")
	fmt.Fprintf(&b, "  \"Proposed Monthly Budget\": {\n")
	fmt.Fprintf(&b, "    \"Category1\": {\"proposed_change\": 0.00, \"change_reason\": \"Reason for change\"},\n")
	fmt.Fprintf(&b, "    \"Category2\": {\"proposed_change\": 0.00, \"change_reason\": \"Reason for change\"}\n")
	fmt.Fprintf(&b, "  }\n")
	fmt.Fprintf(&b, "}\n")
	fmt.Fprintf(&b, "%s\n\n", BudgetEndMarker)

	fmt.Fprintf(&b, "Ensure that the total proposed budget matches the monthly income of $%.2f.\n\n", profile.CurrentIncome)
	fmt.Fprintf(&b, "Base your advice on best practices from reputable financial sources such as %s.\n", strings.Join(sources, ", "))

	if strings.TrimSpace(followUp) != "" {
		fmt.Fprintf(&b, "\nThe client has a follow-up question: %q\n", strings.TrimSpace(followUp))
		fmt.Fprintf(&b, "Address it in your analysis and regenerate a complete new proposed budget that reflects the follow-up, not a patch to the previous one.\n")
	}

	return PromptPair{
		System: fmt.Sprintf(systemTemplate, profile.CurrentIncome),
		User:   b.String(),
	}
}
