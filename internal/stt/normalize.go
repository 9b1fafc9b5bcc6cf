package stt

import (
	"encoding/json"
	"strings"
)

// Provider responses present the recognized text under different field
// names and nestings depending on model and API version. Each extractor
// handles one known shape; they are tried in priority order and the first
// one that yields text wins.
type extractor func(raw []byte) (Result, bool)

var extractors = []extractor{
	extractDirect,
	extractNestedList,
	extractChoices,
	extractPlainText,
}

// Normalize resolves a provider response body into a Result, or
// ErrEmptyTranscript when no shape yields non-empty text.
func Normalize(raw []byte) (Result, error) {
	for _, extract := range extractors {
		if res, ok := extract(raw); ok && strings.TrimSpace(res.Text) != "" {
			res.Text = strings.TrimSpace(res.Text)
			return res, nil
		}
	}
	return Result{}, ErrEmptyTranscript
}

// {"text": "...", "language": "...", "confidence": 0.9} or {"transcript": "..."}
func extractDirect(raw []byte) (Result, bool) {
	var body struct {
		Text       string  `json:"text"`
		Transcript string  `json:"transcript"`
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Result{}, false
	}
	text := body.Text
	if text == "" {
		text = body.Transcript
	}
	return Result{Text: text, Language: body.Language, Confidence: body.Confidence}, text != ""
}

// {"results": [{"text": "..."}]} or {"data": [{"transcript": "..."}]}
func extractNestedList(raw []byte) (Result, bool) {
	var body struct {
		Results []struct {
			Text       string  `json:"text"`
			Transcript string  `json:"transcript"`
			Language   string  `json:"language"`
			Confidence float64 `json:"confidence"`
		} `json:"results"`
		Data []struct {
			Text       string `json:"text"`
			Transcript string `json:"transcript"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Result{}, false
	}
	if len(body.Results) > 0 {
		first := body.Results[0]
		text := first.Text
		if text == "" {
			text = first.Transcript
		}
		return Result{Text: text, Language: first.Language, Confidence: first.Confidence}, text != ""
	}
	if len(body.Data) > 0 {
		text := body.Data[0].Text
		if text == "" {
			text = body.Data[0].Transcript
		}
		return Result{Text: text}, text != ""
	}
	return Result{}, false
}

// {"choices": [{"message": {"content": "..."}}]} or {"choices": [{"text": "..."}]}
func extractChoices(raw []byte) (Result, bool) {
	var body struct {
		Choices []struct {
			Text    string `json:"text"`
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Result{}, false
	}
	if len(body.Choices) == 0 {
		return Result{}, false
	}
	text := body.Choices[0].Message.Content
	if text == "" {
		text = body.Choices[0].Text
	}
	return Result{Text: text}, text != ""
}

// Last resort: a non-JSON body is taken verbatim as the transcript.
func extractPlainText(raw []byte) (Result, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return Result{}, false
	}
	return Result{Text: text}, true
}
