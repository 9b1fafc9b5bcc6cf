package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recording status values. A recording moves pending -> processing -> done
// or pending -> processing -> error; error records stay re-selectable.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Recording is one uploaded audio submission tracked through the pipeline.
type Recording struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BlobID          primitive.ObjectID `bson:"blob_id,omitempty" json:"blob_id,omitempty"`
	Status          string             `bson:"status" json:"status"`
	Error           string             `bson:"error,omitempty" json:"error,omitempty"`
	Filename        string             `bson:"filename,omitempty" json:"filename,omitempty"`
	ContentType     string             `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Language        string             `bson:"language,omitempty" json:"language,omitempty"`
	TranscriptionID primitive.ObjectID `bson:"transcription_id,omitempty" json:"transcription_id,omitempty"`
	NoteID          primitive.ObjectID `bson:"note_id,omitempty" json:"note_id,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// Transcript is the speech-to-text output for one recording. Inserted only
// after a successful transcription with non-empty text, never mutated.
type Transcript struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecordingID primitive.ObjectID `bson:"recording_id" json:"recording_id"`
	Text        string             `bson:"text" json:"text"`
	Confidence  float64            `bson:"confidence,omitempty" json:"confidence,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// ActionItem is one actionable entry extracted from a transcript.
type ActionItem struct {
	Assignee string `bson:"assignee,omitempty" json:"assignee,omitempty"`
	Action   string `bson:"action" json:"action"`
	Due      string `bson:"due,omitempty" json:"due,omitempty"`
}

// StructuredNote is the raw annotation result recovered from the text
// provider. Summary is always present (possibly empty); the slices are
// never nil after normalization.
type StructuredNote struct {
	Summary     string       `json:"summary"`
	Highlights  []string     `json:"highlights"`
	Keywords    []string     `json:"keywords"`
	ActionItems []ActionItem `json:"action_items"`
}

// Note is the denormalized display document, upserted by recording id.
type Note struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecordingID     primitive.ObjectID `bson:"recording_id" json:"recording_id"`
	TranscriptionID primitive.ObjectID `bson:"transcription_id,omitempty" json:"transcription_id,omitempty"`
	Transcript      string             `bson:"transcript" json:"transcript"`
	Summary         string             `bson:"summary" json:"summary"`
	Keywords        []string           `bson:"keywords" json:"keywords"`
	Highlights      []string           `bson:"highlights" json:"highlights"`
	ActionItems     []ActionItem       `bson:"action_items" json:"action_items"`
	Language        string             `bson:"language,omitempty" json:"language,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}
