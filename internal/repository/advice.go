package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdviceRepository struct {
	db *pgxpool.Pool
}

// AdviceRequestLog is one recorded generation: which backend was asked for,
// which one actually answered, the prompt, the advice text and the reconciled
// budget payload.
type AdviceRequestLog struct {
	ID               uuid.UUID
	RequestedBackend string
	ServedBackend    string
	Prompt           string
	Advice           string
	BudgetStatus     string
	BudgetPayload    []byte
	Success          bool
	ErrorMessage     *string
	CreatedAt        time.Time
}

// NewAdviceRepository создает репозиторий журнала советов.
func NewAdviceRepository(db *pgxpool.Pool) *AdviceRepository {
	return &AdviceRepository{db: db}
}

// LogRequest сохраняет запись о выполненной генерации совета.
func (r *AdviceRepository) LogRequest(ctx context.Context, log AdviceRequestLog) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO advice_requests
		 (id, requested_backend, served_backend, prompt, advice, budget_status, budget_payload, success, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::jsonb, $8, $9)`,
		log.ID,
		log.RequestedBackend,
		log.ServedBackend,
		log.Prompt,
		log.Advice,
		log.BudgetStatus,
		string(log.BudgetPayload),
		log.Success,
		log.ErrorMessage,
	)
	return err
}

// ListRecent возвращает последние записи журнала, новые первыми.
func (r *AdviceRepository) ListRecent(ctx context.Context, limit int) ([]AdviceRequestLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, requested_backend, served_backend, prompt, advice, budget_status,
		        COALESCE(budget_payload::text, ''), success, error_message, created_at
		 FROM advice_requests
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdviceRequestLog
	for rows.Next() {
		var log AdviceRequestLog
		var payload string
		if err := rows.Scan(
			&log.ID,
			&log.RequestedBackend,
			&log.ServedBackend,
			&log.Prompt,
			&log.Advice,
			&log.BudgetStatus,
			&payload,
			&log.Success,
			&log.ErrorMessage,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		log.BudgetPayload = []byte(payload)
		out = append(out, log)
	}

	return out, rows.Err()
}

// GetByID возвращает одну запись журнала или ErrNotFound.
func (r *AdviceRepository) GetByID(ctx context.Context, id uuid.UUID) (AdviceRequestLog, error) {
	var log AdviceRequestLog
	var payload string

	err := r.db.QueryRow(ctx,
		`SELECT id, requested_backend, served_backend, prompt, advice, budget_status,
		        COALESCE(budget_payload::text, ''), success, error_message, created_at
		 FROM advice_requests
		 WHERE id = $1`,
		id,
	).Scan(
		&log.ID,
		&log.RequestedBackend,
		&log.ServedBackend,
		&log.Prompt,
		&log.Advice,
		&log.BudgetStatus,
		&payload,
		&log.Success,
		&log.ErrorMessage,
		&log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return log, ErrNotFound
		}
		return log, err
	}

	log.BudgetPayload = []byte(payload)
	return log, nil
}
