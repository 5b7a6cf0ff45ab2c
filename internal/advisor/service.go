package advisor

import (
	"context"
	"log/slog"

	"example.com/financial-advisor/backend/internal/models"
	"example.com/financial-advisor/backend/internal/statement"
)

// Service runs the advice pipeline: summarize the ledger, build the prompt,
// dispatch generation, accumulate the stream, then extract and reconcile the
// proposed budget. Each request owns its own summary, prompt and accumulator;
// no state crosses requests.
type Service struct {
	dispatcher *Dispatcher
	sources    []string
	logger     *slog.Logger
}

// Result is the completed outcome of one advice request. Advice is always
// usable text even when the budget section is absent or malformed.
type Result struct {
	Advice        string
	Prompt        PromptPair
	ServedBackend string
	Budget        ReconciledBudget
	BudgetStatus  ExtractStatus
}

// NewService создает сервис генерации советов.
func NewService(dispatcher *Dispatcher, sources []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		dispatcher: dispatcher,
		sources:    sources,
		logger:     logger,
	}
}

// GenerateAdvice генерирует совет, передавая фрагменты в onFragment по мере
// прихода, и после завершения потока извлекает и сверяет бюджет.
func (s *Service) GenerateAdvice(ctx context.Context, profile models.UserProfile, ledger models.Ledger, followUp string, onFragment func(string)) Result {
	summary, err := statement.Summarize(ledger, profile.CurrentIncome)
	if err != nil {
		s.logger.Error("ledger summary failed", slog.String("error", err.Error()))
		text := "Error: " + err.Error()
		if onFragment != nil {
			onFragment(text)
		}
		return Result{Advice: text, BudgetStatus: BudgetAbsent}
	}

	prompt := BuildPrompt(profile, summary, s.sources, followUp)
	stream, served := s.dispatcher.Dispatch(ctx, profile.SelectedBackend, prompt)
	advice := Accumulate(stream, onFragment)

	proposal, status := ExtractBudget(advice)
	result := Result{
		Advice:        advice,
		Prompt:        prompt,
		ServedBackend: <-served,
		BudgetStatus:  status,
	}

	switch status {
	case BudgetPresent:
		result.Budget = Reconcile(proposal, summary.CategoryTotals, profile.CurrentIncome)
	case BudgetAbsent:
		s.logger.Warn("budget markers not found in advice")
	case BudgetMalformed:
		s.logger.Warn("budget block did not parse as JSON")
	}

	return result
}
