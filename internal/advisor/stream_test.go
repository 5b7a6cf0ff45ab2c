package advisor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/financial-advisor/backend/internal/llm"
)

func chunkStream(chunks ...llm.Chunk) <-chan llm.Chunk {
	out := make(chan llm.Chunk, len(chunks))
	for _, chunk := range chunks {
		out <- chunk
	}
	close(out)
	return out
}

func TestAccumulateConcatenatesFragments(t *testing.T) {
	var fragments []string
	total := Accumulate(chunkStream(
		llm.Chunk{Text: "Hello"},
		llm.Chunk{Text: ", "},
		llm.Chunk{Text: "world"},
	), func(text string) {
		fragments = append(fragments, text)
	})

	assert.Equal(t, "Hello, world", total)
	assert.Equal(t, []string{"Hello", ", ", "world"}, fragments)
}

func TestAccumulateFiltersMetaAndEmpty(t *testing.T) {
	var fragments []string
	total := Accumulate(chunkStream(
		llm.Chunk{Meta: "role:assistant"},
		llm.Chunk{Text: "advice"},
		llm.Chunk{},
		llm.Chunk{Meta: "finish:stop"},
	), func(text string) {
		fragments = append(fragments, text)
	})

	assert.Equal(t, "advice", total)
	assert.Equal(t, []string{"advice"}, fragments)
}

func TestAccumulateSurfacesStreamError(t *testing.T) {
	total := Accumulate(chunkStream(
		llm.Chunk{Text: "partial "},
		llm.Chunk{Err: errors.New("boom")},
	), nil)

	assert.Equal(t, "partial Error generating advice: boom", total)
}

func TestAccumulateNilCallback(t *testing.T) {
	total := Accumulate(chunkStream(llm.Chunk{Text: "ok"}), nil)
	assert.Equal(t, "ok", total)
}

func TestIsErrorText(t *testing.T) {
	assert.True(t, IsErrorText("Error: ledger entry 0 has no category"))
	assert.True(t, IsErrorText("Error generating advice: timeout"))
	assert.False(t, IsErrorText("Here is your budget advice"))
	assert.False(t, IsErrorText(""))
}

func TestErrorMessage(t *testing.T) {
	msg, ok := ErrorMessage("Error generating advice: timeout")
	assert.True(t, ok)
	assert.Equal(t, "timeout", msg)

	msg, ok = ErrorMessage("Error: bad ledger")
	assert.True(t, ok)
	assert.Equal(t, "bad ledger", msg)

	_, ok = ErrorMessage("normal advice")
	assert.False(t, ok)
}
