package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/financial-advisor/backend/internal/advisor"
	"example.com/financial-advisor/backend/internal/models"
	"example.com/financial-advisor/backend/internal/repository"
)

const (
	dateLayout     = "2006-01-02"
	logTimeout     = 5 * time.Second
	defaultHistory = 20
)

type AdviceHandler struct {
	Service *advisor.Service
	Repo    *repository.AdviceRepository
}

// NewAdviceHandler создает обработчик генерации советов.
func NewAdviceHandler(service *advisor.Service, repo *repository.AdviceRepository) *AdviceHandler {
	return &AdviceHandler{Service: service, Repo: repo}
}

type AdviceRequest struct {
	Name             string               `json:"name" validate:"required"`
	Age              int                  `json:"age" validate:"gte=18,lte=120"`
	Address          string               `json:"address" validate:"required"`
	CurrentIncome    float64              `json:"current_income" validate:"gt=0,lte=1000000"`
	CurrentSavings   float64              `json:"current_savings" validate:"gte=0,lte=10000000"`
	Goals            []string             `json:"goals" validate:"required,min=1,dive,required"`
	TimelineMonths   int                  `json:"timeline_months" validate:"gte=1,lte=600"`
	Constraints      []string             `json:"constraints"`
	SelectedBackend  string               `json:"selected_backend"`
	FollowUpQuestion string               `json:"follow_up_question"`
	BankStatement    []LedgerEntryRequest `json:"bank_statement" validate:"required,min=1,dive"`
}

type LedgerEntryRequest struct {
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Category    string   `json:"category" validate:"required"`
	Withdrawals *float64 `json:"withdrawals" validate:"omitempty,gte=0"`
	Deposits    *float64 `json:"deposits" validate:"omitempty,gte=0"`
}

type BudgetRowResponse struct {
	Category       string  `json:"category"`
	PreviousSpend  float64 `json:"previous_spend"`
	ProposedAmount float64 `json:"proposed_amount"`
	PercentChange  string  `json:"percent_change"`
	ChangeReason   string  `json:"change_reason"`
}

type BudgetResponse struct {
	Status        string              `json:"status"`
	Rows          []BudgetRowResponse `json:"rows,omitempty"`
	TotalProposed float64             `json:"total_proposed"`
	Remaining     float64             `json:"remaining"`
	Warnings      []string            `json:"warnings,omitempty"`
}

type AdviceHistoryResponse struct {
	ID               uuid.UUID       `json:"id"`
	RequestedBackend string          `json:"requested_backend"`
	ServedBackend    string          `json:"served_backend"`
	Advice           string          `json:"advice"`
	BudgetStatus     string          `json:"budget_status"`
	Budget           json.RawMessage `json:"budget,omitempty"`
	Success          bool            `json:"success"`
	ErrorMessage     *string         `json:"error_message,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type sseEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Generate принимает профиль с выпиской и стримит совет как SSE: события
// fragment по мере генерации, затем budget с итоговой таблицей и done.
func (h *AdviceHandler) Generate(c echo.Context) error {
	var req AdviceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	profile, ledger, err := toModels(req)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := profile.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return serverError(c)
	}

	requestID := uuid.New()
	_ = writeSSE(c, sseEvent{Type: "started", Data: map[string]string{"request_id": requestID.String()}})
	flusher.Flush()

	onFragment := func(text string) {
		_ = writeSSE(c, sseEvent{Type: "fragment", Data: map[string]string{"text": text}})
		flusher.Flush()
	}

	result := h.Service.GenerateAdvice(c.Request().Context(), profile, ledger, req.FollowUpQuestion, onFragment)

	budget := toBudgetResponse(result, profile.CurrentIncome)
	_ = writeSSE(c, sseEvent{Type: "budget", Data: budget})
	_ = writeSSE(c, sseEvent{Type: "done"})
	flusher.Flush()

	h.logRequest(requestID, req.SelectedBackend, result, budget)
	return nil
}

// History возвращает последние запросы советов.
func (h *AdviceHandler) History(c echo.Context) error {
	limit := defaultHistory
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = parsed
	}

	logs, err := h.Repo.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return serverError(c)
	}

	out := make([]AdviceHistoryResponse, 0, len(logs))
	for _, log := range logs {
		out = append(out, toHistoryResponse(log))
	}

	return c.JSON(http.StatusOK, map[string][]AdviceHistoryResponse{"requests": out})
}

// HistoryEntry возвращает один запрос из журнала.
func (h *AdviceHandler) HistoryEntry(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid request id")
	}

	log, err := h.Repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "advice request not found")
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, toHistoryResponse(log))
}

// BudgetCSV выгружает сохраненный бюджет запроса в CSV-файл.
func (h *AdviceHandler) BudgetCSV(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid request id")
	}

	log, err := h.Repo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(c, "advice request not found")
		}
		return serverError(c)
	}

	var budget BudgetResponse
	if len(log.BudgetPayload) == 0 || json.Unmarshal(log.BudgetPayload, &budget) != nil || len(budget.Rows) == 0 {
		return notFound(c, "no budget available for this request")
	}

	payload, err := renderBudgetCSV(budget.Rows)
	if err != nil {
		return serverError(c)
	}

	filename := "budget-" + log.ID.String() + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", payload)
}

func (h *AdviceHandler) logRequest(id uuid.UUID, requestedBackend string, result advisor.Result, budget BudgetResponse) {
	payload := []byte(nil)
	if len(budget.Rows) > 0 {
		payload, _ = json.Marshal(budget)
	}

	log := repository.AdviceRequestLog{
		ID:               id,
		RequestedBackend: requestedBackend,
		ServedBackend:    result.ServedBackend,
		Prompt:           result.Prompt.User,
		Advice:           result.Advice,
		BudgetStatus:     result.BudgetStatus.String(),
		BudgetPayload:    payload,
		Success:          !advisor.IsErrorText(result.Advice),
	}
	if msg, ok := advisor.ErrorMessage(result.Advice); ok {
		log.ErrorMessage = &msg
	}

	// The request context is usually gone by now; log on a detached one.
	ctx, cancel := context.WithTimeout(context.Background(), logTimeout)
	defer cancel()

	if err := h.Repo.LogRequest(ctx, log); err != nil {
		slog.Error("failed to log advice request", slog.String("error", err.Error()))
	}
}

func toModels(req AdviceRequest) (models.UserProfile, models.Ledger, error) {
	profile := models.UserProfile{
		Name:            strings.TrimSpace(req.Name),
		Age:             req.Age,
		Address:         strings.TrimSpace(req.Address),
		CurrentIncome:   req.CurrentIncome,
		CurrentSavings:  req.CurrentSavings,
		Goals:           req.Goals,
		TimelineMonths:  req.TimelineMonths,
		Constraints:     req.Constraints,
		SelectedBackend: strings.TrimSpace(req.SelectedBackend),
	}

	ledger := make(models.Ledger, 0, len(req.BankStatement))
	for i, entry := range req.BankStatement {
		var date time.Time
		if trimmed := strings.TrimSpace(entry.Date); trimmed != "" {
			parsed, err := time.Parse(dateLayout, trimmed)
			if err != nil {
				return profile, nil, fmt.Errorf("bank statement entry %d has invalid date: %s", i, entry.Date)
			}
			date = parsed
		}

		ledger = append(ledger, models.LedgerEntry{
			Date:        date,
			Description: entry.Description,
			Category:    strings.TrimSpace(entry.Category),
			Withdrawals: floatOrZero(entry.Withdrawals),
			Deposits:    floatOrZero(entry.Deposits),
		})
	}

	return profile, ledger, nil
}

func toBudgetResponse(result advisor.Result, income float64) BudgetResponse {
	out := BudgetResponse{
		Status:   result.BudgetStatus.String(),
		Warnings: result.Budget.Warnings,
	}

	for _, row := range result.Budget.Rows {
		out.Rows = append(out.Rows, BudgetRowResponse{
			Category:       row.Category,
			PreviousSpend:  row.PreviousSpend,
			ProposedAmount: row.ProposedAmount,
			PercentChange:  formatPercent(row.PercentChange),
			ChangeReason:   row.ChangeReason,
		})
	}

	out.TotalProposed = result.Budget.TotalProposed()
	out.Remaining = income - out.TotalProposed
	return out
}

func toHistoryResponse(log repository.AdviceRequestLog) AdviceHistoryResponse {
	out := AdviceHistoryResponse{
		ID:               log.ID,
		RequestedBackend: log.RequestedBackend,
		ServedBackend:    log.ServedBackend,
		Advice:           log.Advice,
		BudgetStatus:     log.BudgetStatus,
		Success:          log.Success,
		ErrorMessage:     log.ErrorMessage,
		CreatedAt:        log.CreatedAt,
	}

	if len(log.BudgetPayload) > 0 {
		out.Budget = json.RawMessage(log.BudgetPayload)
	}

	return out
}

// formatPercent renders the percent-change sentinel as N/A for categories
// with no previous spend.
func formatPercent(value float64) string {
	if math.IsInf(value, 1) {
		return "N/A"
	}

	return fmt.Sprintf("%.2f%%", value)
}

func floatOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}

	return *value
}

func writeSSE(c echo.Context, event sseEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := c.Response().Write([]byte("event: " + event.Type + "\n")); err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return err
	}

	return nil
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
