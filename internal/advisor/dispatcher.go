package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"example.com/financial-advisor/backend/internal/llm"
)

const (
	// Secondary output below this length is treated as inadequate.
	minSecondaryLength = 200

	errorPrefix = "Error generating advice: "
)

// requiredSections must all appear in a secondary backend's output for it to
// be accepted without falling back to the primary backend.
var requiredSections = []string{
	"Income and Expense Analysis",
	"Savings Rate Evaluation",
	"Goal Feasibility",
	"Recommendations",
}

var errSecondaryTimeout = errors.New("secondary backend timed out")

type dispatchState int

const (
	stateIdle dispatchState = iota
	stateTryingSecondary
	stateTryingPrimary
	stateDone
	stateFailed
)

func (s dispatchState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateTryingSecondary:
		return "trying_secondary"
	case stateTryingPrimary:
		return "trying_primary"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dispatcher selects a generation backend by name and applies the fallback
// policy: secondary backends run under a timeout and a quality gate and fall
// back to the primary backend; the primary's failures are terminal and are
// surfaced as a final error fragment.
type Dispatcher struct {
	primary          llm.Client
	secondaries      map[string]llm.Client
	secondaryTimeout time.Duration
	logger           *slog.Logger
}

// NewDispatcher создает диспетчер с основным и запасными бекендами.
func NewDispatcher(primary llm.Client, secondaries []llm.Client, secondaryTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	index := make(map[string]llm.Client, len(secondaries))
	for _, client := range secondaries {
		index[client.Name()] = client
	}

	return &Dispatcher{
		primary:          primary,
		secondaries:      index,
		secondaryTimeout: secondaryTimeout,
		logger:           logger,
	}
}

// Dispatch выбирает бекенд по имени и возвращает поток фрагментов ответа.
// Второй канал получает ровно одно имя бекенда, который фактически ответил;
// читать его безопасно после исчерпания потока.
func (d *Dispatcher) Dispatch(ctx context.Context, backend string, prompt PromptPair) (<-chan llm.Chunk, <-chan string) {
	out := make(chan llm.Chunk)
	served := make(chan string, 1)
	go d.run(ctx, backend, prompt, out, served)
	return out, served
}

func (d *Dispatcher) run(ctx context.Context, backend string, prompt PromptPair, out chan<- llm.Chunk, served chan<- string) {
	defer close(out)

	state := stateIdle

	secondary, isSecondary := d.secondaries[backend]
	switch {
	case backend == d.primary.Name():
		state = stateTryingPrimary
	case isSecondary:
		state = stateTryingSecondary
	default:
		// Policy decision, not an error.
		d.logger.Warn("unknown backend requested, using primary",
			slog.String("backend", backend),
			slog.String("primary", d.primary.Name()))
		state = stateTryingPrimary
	}

	if state == stateTryingSecondary {
		text, err := d.trySecondary(ctx, secondary, prompt)
		if err == nil {
			err = d.checkQuality(text)
		}
		if err == nil {
			served <- secondary.Name()
			d.emit(ctx, out, llm.Chunk{Text: text})
			state = stateDone
			d.logger.Debug("dispatch finished", slog.String("state", state.String()), slog.String("backend", backend))
			return
		}

		d.logger.Warn("secondary backend fallback",
			slog.String("backend", backend),
			slog.String("reason", err.Error()))
		state = stateTryingPrimary
	}

	served <- d.primary.Name()

	stream, err := d.primary.Generate(ctx, prompt.System, prompt.User)
	if err != nil {
		d.logger.Error("primary backend failed", slog.String("error", err.Error()))
		d.emit(ctx, out, llm.Chunk{Text: errorPrefix + err.Error()})
		state = stateFailed
		d.logger.Debug("dispatch finished", slog.String("state", state.String()))
		return
	}

	for chunk := range stream {
		if chunk.Err != nil {
			d.logger.Error("primary backend stream failed", slog.String("error", chunk.Err.Error()))
			d.emit(ctx, out, llm.Chunk{Text: errorPrefix + chunk.Err.Error()})
			state = stateFailed
			d.logger.Debug("dispatch finished", slog.String("state", state.String()))
			return
		}

		if !d.emit(ctx, out, chunk) {
			return
		}
	}

	state = stateDone
	d.logger.Debug("dispatch finished", slog.String("state", state.String()))
}

// trySecondary runs the secondary call under the configured timeout. A call
// that outlives the timeout is abandoned, not cancelled; a late result lands
// in the buffered channel and is discarded.
func (d *Dispatcher) trySecondary(ctx context.Context, client llm.Client, prompt PromptPair) (string, error) {
	type result struct {
		text string
		err  error
	}

	results := make(chan result, 1)
	go func() {
		stream, err := client.Generate(ctx, prompt.System, prompt.User)
		if err != nil {
			results <- result{err: err}
			return
		}

		var b strings.Builder
		for chunk := range stream {
			if chunk.Err != nil {
				results <- result{err: chunk.Err}
				return
			}
			b.WriteString(chunk.Text)
		}
		results <- result{text: b.String()}
	}()

	select {
	case res := <-results:
		return res.text, res.err
	case <-time.After(d.secondaryTimeout):
		return "", errSecondaryTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (d *Dispatcher) checkQuality(text string) error {
	if len(text) < minSecondaryLength {
		return fmt.Errorf("response too short: %d chars", len(text))
	}

	for _, section := range requiredSections {
		if !strings.Contains(text, section) {
			return fmt.Errorf("response missing section %q", section)
		}
	}

	return nil
}

func (d *Dispatcher) emit(ctx context.Context, out chan<- llm.Chunk, chunk llm.Chunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
