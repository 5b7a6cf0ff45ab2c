package llm

import "context"

const defaultMaxTokens = 1024

// Chunk is one fragment of a generation stream. Text carries advice text;
// Meta carries backend control metadata (roles, finish reasons) that must not
// be shown to the caller; Err reports a mid-stream backend failure.
type Chunk struct {
	Text string
	Meta string
	Err  error
}

// Client is a single text-generation backend. The returned channel is a
// finite, non-restartable fragment sequence; concatenating Text fields in
// order reconstructs the full response.
type Client interface {
	Name() string
	Generate(ctx context.Context, system, user string) (<-chan Chunk, error)
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}
