// Package blob stores raw audio payloads in GridFS, decoupled from the
// metadata documents that reference them.
package blob

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no blob exists for the given id.
var ErrNotFound = errors.New("blob not found")

// Store is a content-addressed audio store backed by a GridFS bucket.
type Store struct {
	bucket *gridfs.Bucket
}

func NewStore(db *mongo.Database) (*Store, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, fmt.Errorf("gridfs bucket: %w", err)
	}
	return &Store{bucket: bucket}, nil
}

// Put stores the payload and returns its blob id.
func (s *Store) Put(data []byte, filename, contentType string) (primitive.ObjectID, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{"content_type": contentType})
	id, err := s.bucket.UploadFromStream(filename, bytes.NewReader(data), opts)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("gridfs upload: %w", err)
	}
	return id, nil
}

// Get returns the raw bytes for a blob id, or ErrNotFound.
func (s *Store) Get(id primitive.ObjectID) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStream(id, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gridfs download: %w", err)
	}
	return buf.Bytes(), nil
}

// Stream copies the blob to w, used to serve audio back over HTTP.
func (s *Store) Stream(id primitive.ObjectID, w io.Writer) error {
	if _, err := s.bucket.DownloadToStream(id, w); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("gridfs download: %w", err)
	}
	return nil
}

// Delete removes a blob.
func (s *Store) Delete(id primitive.ObjectID) error {
	if err := s.bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("gridfs delete: %w", err)
	}
	return nil
}
