package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"audio-notes-go/internal/blob"
	"audio-notes-go/internal/config"
	"audio-notes-go/internal/logger"
	"audio-notes-go/internal/store"
	"audio-notes-go/internal/types"
)

type fakeStore struct {
	recs  map[primitive.ObjectID]types.Recording
	notes map[primitive.ObjectID]types.Note
	feed  []store.FeedItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recs:  map[primitive.ObjectID]types.Recording{},
		notes: map[primitive.ObjectID]types.Note{},
	}
}

func (f *fakeStore) CreateRecording(ctx context.Context, rec *types.Recording) (primitive.ObjectID, error) {
	rec.ID = primitive.NewObjectID()
	f.recs[rec.ID] = *rec
	return rec.ID, nil
}

func (f *fakeStore) GetRecording(ctx context.Context, id primitive.ObjectID) (types.Recording, error) {
	rec, ok := f.recs[id]
	if !ok {
		return types.Recording{}, store.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) GetNoteByRecording(ctx context.Context, recordingID primitive.ObjectID) (*types.Note, error) {
	note, ok := f.notes[recordingID]
	if !ok {
		return nil, nil
	}
	return &note, nil
}

func (f *fakeStore) ListFeed(ctx context.Context, limit int) ([]store.FeedItem, error) {
	return f.feed, nil
}

func (f *fakeStore) SearchNotes(ctx context.Context, q string, limit int) ([]types.Note, error) {
	var out []types.Note
	for _, n := range f.notes {
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeStore) ListNotes(ctx context.Context, limit int) ([]types.Note, error) {
	return f.SearchNotes(ctx, "", limit)
}

type fakeBlobs struct {
	data map[primitive.ObjectID][]byte
}

func (f *fakeBlobs) Put(data []byte, filename, contentType string) (primitive.ObjectID, error) {
	if f.data == nil {
		f.data = map[primitive.ObjectID][]byte{}
	}
	id := primitive.NewObjectID()
	f.data[id] = data
	return id, nil
}

func (f *fakeBlobs) Stream(id primitive.ObjectID, w io.Writer) error {
	b, ok := f.data[id]
	if !ok {
		return blob.ErrNotFound
	}
	_, err := w.Write(b)
	return err
}

type fakeProcessor struct {
	processed []primitive.ObjectID
	err       error
}

func (f *fakeProcessor) Process(ctx context.Context, id primitive.ObjectID) error {
	f.processed = append(f.processed, id)
	return f.err
}

func newTestServer(st *fakeStore, blobs *fakeBlobs, p *fakeProcessor, cfg config.Config) *httptest.Server {
	if cfg.MaxFileMB == 0 {
		cfg.MaxFileMB = 10
	}
	s := NewServer(st, blobs, p, cfg, logger.New())
	return httptest.NewServer(s.Routes())
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadCreatesPendingRecording(t *testing.T) {
	st := newFakeStore()
	blobs := &fakeBlobs{}
	p := &fakeProcessor{}
	server := newTestServer(st, blobs, p, config.Config{})
	defer server.Close()

	body, contentType := multipartUpload(t, "memo.mp3", []byte("audio-bytes"))
	resp, err := http.Post(server.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	rid, err := primitive.ObjectIDFromHex(out["recording_id"])
	if err != nil {
		t.Fatalf("recording_id = %q: %v", out["recording_id"], err)
	}
	rec := st.recs[rid]
	if rec.Status != types.StatusPending {
		t.Errorf("status = %q, want pending", rec.Status)
	}
	if rec.BlobID.IsZero() {
		t.Error("blob id not set")
	}
	if string(blobs.data[rec.BlobID]) != "audio-bytes" {
		t.Error("audio payload not stored")
	}
	if len(p.processed) != 0 {
		t.Error("processed inline without PROCESS_INLINE")
	}
}

func TestUploadInlineProcessing(t *testing.T) {
	st := newFakeStore()
	p := &fakeProcessor{}
	server := newTestServer(st, &fakeBlobs{}, p, config.Config{ProcessInline: true})
	defer server.Close()

	body, contentType := multipartUpload(t, "memo.wav", []byte("x"))
	resp, err := http.Post(server.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(p.processed) != 1 {
		t.Fatalf("processed = %d, want 1", len(p.processed))
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeBlobs{}, &fakeProcessor{}, config.Config{})
	defer server.Close()

	body, contentType := multipartUpload(t, "notes.txt", []byte("not audio"))
	resp, err := http.Post(server.URL+"/upload", contentType, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeBlobs{}, &fakeProcessor{}, config.Config{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/upload", "multipart/form-data; boundary=x", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestNoteDetail(t *testing.T) {
	st := newFakeStore()
	rid := primitive.NewObjectID()
	st.recs[rid] = types.Recording{ID: rid, Status: types.StatusDone, Language: "en"}
	st.notes[rid] = types.Note{
		RecordingID: rid,
		Transcript:  "hello",
		Summary:     "greeting",
		Keywords:    []string{"hello"},
	}
	server := newTestServer(st, &fakeBlobs{}, &fakeProcessor{}, config.Config{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/notes/" + rid.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["summary"] != "greeting" || out["transcript"] != "hello" {
		t.Errorf("detail = %v", out)
	}
}

func TestNoteDetailInvalidAndMissingIDs(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeBlobs{}, &fakeProcessor{}, config.Config{})
	defer server.Close()

	resp, _ := http.Get(server.URL + "/notes/not-an-id")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", resp.StatusCode)
	}

	resp, _ = http.Get(server.URL + "/notes/" + primitive.NewObjectID().Hex())
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", resp.StatusCode)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	server := newTestServer(newFakeStore(), &fakeBlobs{}, &fakeProcessor{}, config.Config{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/search")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out []types.Note
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("results = %v, want empty", out)
	}
}

func TestProcessEndpoint(t *testing.T) {
	st := newFakeStore()
	rid := primitive.NewObjectID()
	st.recs[rid] = types.Recording{ID: rid, Status: types.StatusError}
	p := &fakeProcessor{}
	server := newTestServer(st, &fakeBlobs{}, p, config.Config{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/process/"+rid.Hex(), "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(p.processed) != 1 || p.processed[0] != rid {
		t.Errorf("processed = %v", p.processed)
	}
}

func TestProcessEndpointReportsFailure(t *testing.T) {
	st := newFakeStore()
	rid := primitive.NewObjectID()
	st.recs[rid] = types.Recording{ID: rid}
	p := &fakeProcessor{err: errors.New("transcribe: empty")}
	server := newTestServer(st, &fakeBlobs{}, p, config.Config{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/process/"+rid.Hex(), "", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestProcessEndpointUnknownRecording(t *testing.T) {
	p := &fakeProcessor{err: fmt.Errorf("recording lookup: %w", store.ErrNotFound)}
	server := newTestServer(newFakeStore(), &fakeBlobs{}, p, config.Config{})
	defer server.Close()

	resp, _ := http.Post(server.URL+"/process/"+primitive.NewObjectID().Hex(), "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAudioStream(t *testing.T) {
	st := newFakeStore()
	blobs := &fakeBlobs{}
	blobID, _ := blobs.Put([]byte("raw-audio"), "a.mp3", "audio/mpeg")
	rid := primitive.NewObjectID()
	st.recs[rid] = types.Recording{ID: rid, BlobID: blobID, ContentType: "audio/mpeg"}
	server := newTestServer(st, blobs, &fakeProcessor{}, config.Config{})
	defer server.Close()

	resp, err := http.Get(server.URL + "/audio/" + rid.Hex())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("content type = %q", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	if string(b) != "raw-audio" {
		t.Errorf("body = %q", b)
	}
}

func TestAudioNotFound(t *testing.T) {
	st := newFakeStore()
	rid := primitive.NewObjectID()
	st.recs[rid] = types.Recording{ID: rid, BlobID: primitive.NewObjectID()}
	server := newTestServer(st, &fakeBlobs{}, &fakeProcessor{}, config.Config{})
	defer server.Close()

	resp, _ := http.Get(server.URL + "/audio/" + rid.Hex())
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
