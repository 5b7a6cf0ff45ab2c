package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient streams chat completions from the OpenAI-compatible API. It is
// the primary backend: its failures are terminal for a request.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient создает потоковый клиент OpenAI с заданными параметрами.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *OpenAIClient {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &OpenAIClient{
		apiKey:    apiKey,
		baseURL:   trimmedURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name возвращает имя модели, под которым бекенд выбирается диспетчером.
func (c *OpenAIClient) Name() string {
	return c.model
}

// Generate отправляет промпт и возвращает канал фрагментов ответа.
func (c *OpenAIClient) Generate(ctx context.Context, system, user string) (<-chan Chunk, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("openai api key is missing")
	}

	reqBody := openAIChatRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
		MaxTokens:   resolveMaxTokens(c.maxTokens),
		Stream:      true,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", c.baseURL)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "text/event-stream")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(response.Body)
		response.Body.Close()

		var apiErr openAIErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
			return nil, fmt.Errorf("openai api error: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("openai api error: %s", strings.TrimSpace(string(body)))
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		defer response.Body.Close()

		scanner := bufio.NewScanner(response.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			chunk, done := parseStreamLine(scanner.Text())
			if done {
				return
			}
			if chunk == nil {
				continue
			}

			select {
			case out <- *chunk:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case out <- Chunk{Err: fmt.Errorf("openai stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// parseStreamLine decodes one SSE line. done is true on the [DONE] sentinel.
func parseStreamLine(line string) (chunk *Chunk, done bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "data:") {
		return nil, false
	}

	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		return nil, true
	}

	var parsed openAIStreamChunk
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return &Chunk{Err: fmt.Errorf("openai stream chunk: %w", err)}, false
	}

	if len(parsed.Choices) == 0 {
		return nil, false
	}

	choice := parsed.Choices[0]
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		return &Chunk{Meta: "finish:" + *choice.FinishReason}, false
	}
	if choice.Delta.Content == "" {
		if choice.Delta.Role != "" {
			return &Chunk{Meta: "role:" + choice.Delta.Role}, false
		}
		return nil, false
	}

	return &Chunk{Text: choice.Delta.Content}, false
}
