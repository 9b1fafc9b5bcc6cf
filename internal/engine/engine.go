// Package engine drives a recording through the processing pipeline:
// claim, fetch audio, transcribe, persist the transcript, annotate,
// persist the note, and mark the recording done. Failures are contained
// per record; one bad recording never aborts a batch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"audio-notes-go/internal/annotate"
	"audio-notes-go/internal/logger"
	"audio-notes-go/internal/stt"
	"audio-notes-go/internal/types"
)

// errSkipped marks a recording another worker claimed first. Not a
// failure: the record is neither counted nor marked errored.
var errSkipped = errors.New("recording claimed by another worker")

// MetadataStore is the document-store surface the engine needs.
type MetadataStore interface {
	GetRecording(ctx context.Context, id primitive.ObjectID) (types.Recording, error)
	FindPending(ctx context.Context, limit int) ([]types.Recording, error)
	ClaimRecording(ctx context.Context, id primitive.ObjectID, fromStatus string) (bool, error)
	SetError(ctx context.Context, id primitive.ObjectID, msg string) error
	UpdateRecording(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	InsertTranscript(ctx context.Context, t *types.Transcript) (primitive.ObjectID, error)
	UpsertNote(ctx context.Context, note *types.Note) (primitive.ObjectID, error)
}

// BlobStore fetches the stored audio payload for a recording.
type BlobStore interface {
	Get(id primitive.ObjectID) ([]byte, error)
}

type Engine struct {
	store       MetadataStore
	blobs       BlobStore
	transcriber stt.Transcriber
	annotator   annotate.Annotator
	log         *logger.Logger
}

func New(store MetadataStore, blobs BlobStore, transcriber stt.Transcriber, annotator annotate.Annotator, log *logger.Logger) *Engine {
	return &Engine{
		store:       store,
		blobs:       blobs,
		transcriber: transcriber,
		annotator:   annotator,
		log:         log,
	}
}

// ProcessPending selects up to limit pending recordings and processes
// each one independently. It returns the number that reached done. Only a
// selection failure is returned as an error; per-record failures are
// recorded on the documents themselves.
func (e *Engine) ProcessPending(ctx context.Context, limit int) (int, error) {
	log := e.log.WithComponent("engine")

	docs, err := e.store.FindPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("select pending recordings: %w", err)
	}
	log.WithField("count", len(docs)).Info("found pending recordings")

	processed := 0
	for _, rec := range docs {
		recLog := log.WithField("recording_id", rec.ID.Hex())
		if err := e.runOne(ctx, rec); err != nil {
			if errors.Is(err, errSkipped) {
				recLog.Debug("skipped, claimed elsewhere")
				continue
			}
			recLog.WithField("error", err.Error()).Warn("recording failed")
			if serr := e.store.SetError(ctx, rec.ID, err.Error()); serr != nil {
				recLog.WithField("error", serr.Error()).Error("failed to record error status")
			}
			continue
		}
		processed++
		recLog.Info("recording processed")
	}
	return processed, nil
}

// Process drives a single recording by id, regardless of its current
// status. Used by the forced-reprocess endpoint and inline processing.
func (e *Engine) Process(ctx context.Context, id primitive.ObjectID) error {
	rec, err := e.store.GetRecording(ctx, id)
	if err != nil {
		return err
	}
	if err := e.runOne(ctx, rec); err != nil && !errors.Is(err, errSkipped) {
		if serr := e.store.SetError(ctx, rec.ID, err.Error()); serr != nil {
			e.log.WithComponent("engine").WithField("error", serr.Error()).Error("failed to record error status")
		}
		return err
	}
	return nil
}

// runOne is the per-record boundary: a panic anywhere inside the run is
// recovered here and converted into an error transition.
func (e *Engine) runOne(ctx context.Context, rec types.Recording) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected fault: %v", r)
		}
	}()
	return e.processOne(ctx, rec)
}

func (e *Engine) processOne(ctx context.Context, rec types.Recording) error {
	claimed, err := e.store.ClaimRecording(ctx, rec.ID, rec.Status)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		return errSkipped
	}

	if rec.BlobID.IsZero() {
		return errors.New("recording missing blob reference")
	}
	audio, err := e.blobs.Get(rec.BlobID)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}

	res, err := e.transcriber.Transcribe(ctx, audio, rec.Filename)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	// transcripts are never persisted with empty text, whatever the
	// transcriber claims
	if strings.TrimSpace(res.Text) == "" {
		return fmt.Errorf("transcribe: %w", stt.ErrEmptyTranscript)
	}

	transcriptID, err := e.store.InsertTranscript(ctx, &types.Transcript{
		RecordingID: rec.ID,
		Text:        res.Text,
		Confidence:  res.Confidence,
	})
	if err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}

	// Annotation is never fatal: a transcript alone still has display
	// value, so a degraded annotation yields an empty note, not an error.
	note, degraded := e.annotator.Annotate(ctx, res.Text)
	if degraded {
		e.log.WithComponent("engine").
			WithField("recording_id", rec.ID.Hex()).
			Warn("annotation degraded, persisting empty note")
	}

	// Keywords fall back to highlights so the displayed list stays
	// informative when the model returned none.
	keywords := note.Keywords
	if len(keywords) == 0 {
		keywords = note.Highlights
	}
	if keywords == nil {
		keywords = []string{}
	}

	if _, err := e.store.UpsertNote(ctx, &types.Note{
		RecordingID:     rec.ID,
		TranscriptionID: transcriptID,
		Transcript:      res.Text,
		Summary:         note.Summary,
		Keywords:        keywords,
		Highlights:      note.Highlights,
		ActionItems:     note.ActionItems,
		Language:        res.Language,
	}); err != nil {
		return fmt.Errorf("store note: %w", err)
	}

	done := bson.M{"status": types.StatusDone}
	if res.Language != "" {
		done["language"] = res.Language
	}
	if err := e.store.UpdateRecording(ctx, rec.ID, done); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return nil
}
