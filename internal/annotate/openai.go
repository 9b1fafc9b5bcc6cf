package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"audio-notes-go/internal/logger"
	"audio-notes-go/internal/types"
)

const systemPrompt = "You are a helpful assistant that converts meeting transcripts " +
	"into a compact, machine-readable JSON structured note. " +
	"Respond with only valid JSON containing the keys: " +
	"summary, highlights, keywords, action_items. " +
	"- summary: 1-3 sentence summary string. " +
	"- highlights: array of important bullet points (strings). " +
	"- keywords: array of short keyword strings. " +
	"- action_items: array of objects with fields {assignee, action, due} " +
	"(use null when unknown)."

// OpenAIClient calls the OpenAI chat completions endpoint to build notes.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

func NewOpenAIClient(baseURL, apiKey, model string, log *logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Annotate asks the model for a structured note. Provider failures are
// logged and degrade to an empty note; they never propagate.
func (c *OpenAIClient) Annotate(ctx context.Context, transcript string) (types.StructuredNote, bool) {
	log := c.log.WithComponent("annotate")

	userPrompt := "Transcript:\n" + transcript + "\n\nReturn ONLY valid JSON with keys " +
		"summary, highlights, keywords, action_items."

	payload, _ := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0,
	})

	raw, err := c.doWithRetry(ctx, c.baseURL+"/chat/completions", payload)
	if err != nil {
		log.WithError(err).Warn("annotation provider call failed, degrading to empty note")
		return emptyNote(), true
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Choices) == 0 {
		log.Warn("annotation response had no choices, degrading to empty note")
		return emptyNote(), true
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		log.Warn("annotation response had empty content, degrading to empty note")
		return emptyNote(), true
	}
	return Recover(content), false
}

func (c *OpenAIClient) doWithRetry(ctx context.Context, url string, payload []byte) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var raw []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("http %d", resp.StatusCode))
		}
		raw = body
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return raw, nil
}
