// Package store is the MongoDB metadata layer: recordings, transcripts and
// notes collections. Each write is a single-document atomic update; there
// are no cross-document transactions.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audio-notes-go/internal/types"
)

// ErrNotFound is returned when no recording exists for the given id.
var ErrNotFound = errors.New("recording not found")

// Client wraps the MongoDB client and the collections used by the service.
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
	recordings  *mongo.Collection
	transcripts *mongo.Collection
	notes       *mongo.Collection
}

// NewClient creates a store client. Connect must be called before use.
func NewClient(ctx context.Context, uri, databaseName string) (*Client, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	database := mongoClient.Database(databaseName)
	return &Client{
		mongoClient: mongoClient,
		database:    database,
		recordings:  database.Collection("recordings"),
		transcripts: database.Collection("transcripts"),
		notes:       database.Collection("notes"),
	}, nil
}

// Connect verifies the connection.
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// Database exposes the underlying database, used for the GridFS bucket.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// CreateRecording inserts a new recording document and returns its id.
func (c *Client) CreateRecording(ctx context.Context, rec *types.Recording) (primitive.ObjectID, error) {
	if rec.Status == "" {
		rec.Status = types.StatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := c.recordings.InsertOne(ctx, rec)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert recording: %w", err)
	}
	id := res.InsertedID.(primitive.ObjectID)
	rec.ID = id
	return id, nil
}

// GetRecording returns one recording by id.
func (c *Client) GetRecording(ctx context.Context, id primitive.ObjectID) (types.Recording, error) {
	var rec types.Recording
	err := c.recordings.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Recording{}, fmt.Errorf("recording %s: %w", id.Hex(), ErrNotFound)
	}
	if err != nil {
		return types.Recording{}, fmt.Errorf("find recording %s: %w", id.Hex(), err)
	}
	return rec, nil
}

// FindPending returns up to limit recordings with status pending, oldest first.
func (c *Client) FindPending(ctx context.Context, limit int) ([]types.Recording, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := c.recordings.Find(ctx, bson.M{"status": types.StatusPending}, opts)
	if err != nil {
		return nil, fmt.Errorf("find pending: %w", err)
	}
	defer cursor.Close(ctx)

	var out []types.Recording
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pending: %w", err)
	}
	return out, nil
}

// ClaimRecording flips a recording to processing, conditional on the status
// it had when selected. Returns false when another worker moved it first.
// Matched count, not modified count: claiming a record already in
// processing (a stuck record being force-reprocessed) matches the filter
// but modifies nothing, and must still count as a successful claim.
func (c *Client) ClaimRecording(ctx context.Context, id primitive.ObjectID, fromStatus string) (bool, error) {
	res, err := c.recordings.UpdateOne(ctx,
		bson.M{"_id": id, "status": fromStatus},
		bson.M{"$set": bson.M{"status": types.StatusProcessing}})
	if err != nil {
		return false, fmt.Errorf("claim recording %s: %w", id.Hex(), err)
	}
	return res.MatchedCount == 1, nil
}

// SetError marks a recording failed with a message.
func (c *Client) SetError(ctx context.Context, id primitive.ObjectID, msg string) error {
	_, err := c.recordings.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": types.StatusError, "error": msg}})
	if err != nil {
		return fmt.Errorf("set error %s: %w", id.Hex(), err)
	}
	return nil
}

// UpdateRecording sets arbitrary fields on a recording document.
func (c *Client) UpdateRecording(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	_, err := c.recordings.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update recording %s: %w", id.Hex(), err)
	}
	return nil
}

// InsertTranscript stores a transcript and back-references it on the
// owning recording. Reprocessing inserts a fresh transcript; the recording
// always points at the latest one.
func (c *Client) InsertTranscript(ctx context.Context, t *types.Transcript) (primitive.ObjectID, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	res, err := c.transcripts.InsertOne(ctx, t)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert transcript: %w", err)
	}
	id := res.InsertedID.(primitive.ObjectID)
	t.ID = id
	_, err = c.recordings.UpdateOne(ctx, bson.M{"_id": t.RecordingID},
		bson.M{"$set": bson.M{"transcription_id": id}})
	if err != nil {
		return id, fmt.Errorf("link transcript %s: %w", id.Hex(), err)
	}
	return id, nil
}

// UpsertNote writes the denormalized note keyed by recording id, so a
// reprocessed recording overwrites its note in place, and back-references
// the note on the recording.
func (c *Client) UpsertNote(ctx context.Context, note *types.Note) (primitive.ObjectID, error) {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	update := bson.M{"$set": bson.M{
		"transcription_id": note.TranscriptionID,
		"transcript":       note.Transcript,
		"summary":          note.Summary,
		"keywords":         note.Keywords,
		"highlights":       note.Highlights,
		"action_items":     note.ActionItems,
		"language":         note.Language,
		"created_at":       note.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var saved types.Note
	err := c.notes.FindOneAndUpdate(ctx, bson.M{"recording_id": note.RecordingID}, update, opts).Decode(&saved)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("upsert note: %w", err)
	}
	note.ID = saved.ID
	_, err = c.recordings.UpdateOne(ctx, bson.M{"_id": note.RecordingID},
		bson.M{"$set": bson.M{"note_id": saved.ID}})
	if err != nil {
		return saved.ID, fmt.Errorf("link note %s: %w", saved.ID.Hex(), err)
	}
	return saved.ID, nil
}

// GetNoteByRecording returns the note owned by a recording, if any.
func (c *Client) GetNoteByRecording(ctx context.Context, recordingID primitive.ObjectID) (*types.Note, error) {
	var note types.Note
	err := c.notes.FindOne(ctx, bson.M{"recording_id": recordingID}).Decode(&note)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find note for %s: %w", recordingID.Hex(), err)
	}
	return &note, nil
}

// FeedItem is one row of the dashboard feed: a recording joined with its
// note's summary and keywords.
type FeedItem struct {
	ID        primitive.ObjectID `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Status    string             `json:"status"`
	Language  string             `json:"language,omitempty"`
	Summary   string             `json:"summary,omitempty"`
	Keywords  []string           `json:"keywords,omitempty"`
}

// ListFeed returns the latest recordings with note summaries attached.
func (c *Client) ListFeed(ctx context.Context, limit int) ([]FeedItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := c.recordings.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []types.Recording
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode recordings: %w", err)
	}

	out := make([]FeedItem, 0, len(recs))
	for _, rec := range recs {
		item := FeedItem{
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt,
			Status:    rec.Status,
			Language:  rec.Language,
		}
		note, err := c.GetNoteByRecording(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if note != nil {
			item.Summary = note.Summary
			item.Keywords = note.Keywords
		}
		out = append(out, item)
	}
	return out, nil
}

// SearchNotes matches q case-insensitively against note transcripts and
// keywords, newest first.
func (c *Client) SearchNotes(ctx context.Context, q string, limit int) ([]types.Note, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"transcript": bson.M{"$regex": q, "$options": "i"}},
		bson.M{"keywords": bson.M{"$elemMatch": bson.M{"$regex": q, "$options": "i"}}},
	}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := c.notes.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer cursor.Close(ctx)

	var out []types.Note
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return out, nil
}

// ListNotes returns the newest notes, used by the export report.
func (c *Client) ListNotes(ctx context.Context, limit int) ([]types.Note, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := c.notes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer cursor.Close(ctx)

	var out []types.Note
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return out, nil
}
