// Package stt turns raw audio bytes into transcript text via a
// speech-to-text provider.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyTranscript is returned when the provider response resolves to no
// usable text. An empty transcript is a failure, not a success.
var ErrEmptyTranscript = errors.New("transcription returned empty text")

// Result is the normalized transcription output.
type Result struct {
	Text       string
	Language   string
	Confidence float64
}

// Transcriber converts audio bytes to a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (Result, error)
}
