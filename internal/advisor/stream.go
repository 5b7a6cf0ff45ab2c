package advisor

import (
	"strings"

	"example.com/financial-advisor/backend/internal/llm"
)

// Accumulate consumes a fragment stream, re-emitting each text fragment to
// onFragment as it arrives while building the full response. Empty fragments
// and backend control metadata are filtered out and never reach the caller.
// Returns the concatenated text once the stream is exhausted.
func Accumulate(stream <-chan llm.Chunk, onFragment func(string)) string {
	var b strings.Builder

	for chunk := range stream {
		if chunk.Err != nil {
			// The dispatcher converts backend errors to text fragments, but a
			// raw backend stream may still carry one; surface it as the error
			// marker so the caller always sees a terminal message.
			text := errorPrefix + chunk.Err.Error()
			b.WriteString(text)
			if onFragment != nil {
				onFragment(text)
			}
			continue
		}

		if chunk.Meta != "" || chunk.Text == "" {
			continue
		}

		b.WriteString(chunk.Text)
		if onFragment != nil {
			onFragment(chunk.Text)
		}
	}

	return b.String()
}

// IsErrorText сообщает, является ли текст терминальной ошибкой генерации, а
// не самим советом.
func IsErrorText(advice string) bool {
	return strings.HasPrefix(advice, "Error: ") || strings.HasPrefix(advice, errorPrefix)
}

// ErrorMessage извлекает сообщение из терминальной ошибки генерации.
func ErrorMessage(advice string) (string, bool) {
	switch {
	case strings.HasPrefix(advice, errorPrefix):
		return strings.TrimPrefix(advice, errorPrefix), true
	case strings.HasPrefix(advice, "Error: "):
		return strings.TrimPrefix(advice, "Error: "), true
	default:
		return "", false
	}
}
