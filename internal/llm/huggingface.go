package llm

import (
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

// HuggingFaceClient calls the HuggingFace Inference API for one hosted model.
// Inference responses arrive as a single completed text, emitted as one chunk.
type HuggingFaceClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int  `json:"max_new_tokens,omitempty"`
	ReturnFullText bool `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfErrorResponse struct {
	Error string `json:"error,omitempty"`
}

// NewHuggingFaceClient создает клиент Inference API для одной модели.
func NewHuggingFaceClient(apiKey, baseURL, model string, timeout time.Duration, maxTokens int) *HuggingFaceClient {
	trimmedURL := strings.TrimRight(baseURL, "/")
	return &HuggingFaceClient{
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
func (c *HuggingFaceClient) Name() string {
	return c.model
}

// Generate выполняет запрос к Inference API и отдаёт ответ одним фрагментом.
func (c *HuggingFaceClient) Generate(ctx context.Context, system, user string) (<-chan Chunk, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("huggingface api key is missing")
	}

	// Text-generation models take a single prompt without chat roles.
	reqBody := hfRequest{
		Inputs: system + "\n\n" + user,
		Parameters: hfParameters{
			MaxNewTokens:   resolveMaxTokens(c.maxTokens),
			ReturnFullText: false,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	out := make(chan Chunk, 1)
	go func() {
		defer close(out)

		text, err := c.complete(request)
		if err != nil {
			out <- Chunk{Err: err}
			return
		}

		out <- Chunk{Text: text}
	}()

	return out, nil
}

func (c *HuggingFaceClient) complete(request *http.Request) (string, error) {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", err
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		var apiErr hfErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return "", fmt.Errorf("huggingface api error: %s", apiErr.Error)
		}
		return "", fmt.Errorf("huggingface api error: %s", strings.TrimSpace(string(body)))
	}

	var generations []hfGeneration
	if err := json.Unmarshal(body, &generations); err != nil {
		return "", err
	}

	if len(generations) == 0 {
		return "", errors.New("huggingface response missing generations")
	}

	return strings.TrimSpace(generations[0].GeneratedText), nil
}
