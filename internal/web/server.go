// Package web is the HTTP front end: uploads in, notes out. All pipeline
// logic lives in the engine; handlers only shape requests and responses.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"audio-notes-go/internal/blob"
	"audio-notes-go/internal/config"
	"audio-notes-go/internal/logger"
	"audio-notes-go/internal/report"
	"audio-notes-go/internal/store"
	"audio-notes-go/internal/types"
)

var allowedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".webm": true,
	".m4a":  true,
	".mp4":  true,
}

// Store is the metadata surface the handlers need.
type Store interface {
	CreateRecording(ctx context.Context, rec *types.Recording) (primitive.ObjectID, error)
	GetRecording(ctx context.Context, id primitive.ObjectID) (types.Recording, error)
	GetNoteByRecording(ctx context.Context, recordingID primitive.ObjectID) (*types.Note, error)
	ListFeed(ctx context.Context, limit int) ([]store.FeedItem, error)
	SearchNotes(ctx context.Context, q string, limit int) ([]types.Note, error)
	ListNotes(ctx context.Context, limit int) ([]types.Note, error)
}

// Blobs is the audio payload surface the handlers need.
type Blobs interface {
	Put(data []byte, filename, contentType string) (primitive.ObjectID, error)
	Stream(id primitive.ObjectID, w io.Writer) error
}

// Processor drives one recording through the pipeline.
type Processor interface {
	Process(ctx context.Context, id primitive.ObjectID) error
}

type Server struct {
	store     Store
	blobs     Blobs
	processor Processor
	cfg       config.Config
	log       *logger.Logger
}

func NewServer(st Store, blobs Blobs, processor Processor, cfg config.Config, log *logger.Logger) *Server {
	return &Server{store: st, blobs: blobs, processor: processor, cfg: cfg, log: log}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /notes", s.handleListNotes)
	mux.HandleFunc("GET /notes/{id}", s.handleNoteDetail)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /process/{id}", s.handleProcess)
	mux.HandleFunc("GET /audio/{id}", s.handleAudio)
	mux.HandleFunc("GET /export", s.handleExport)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := s.log.WithRequest(r).WithField("handler", "upload")

	maxBytes := int64(s.cfg.MaxFileMB) << 20
	// generous reader cap so the explicit size check below owns the 413
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file")
		return
	}
	defer file.Close()

	filename := header.Filename
	if filename == "" {
		filename = "audio.webm"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file type %q not allowed", ext))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	if int64(len(data)) > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %dMB limit", s.cfg.MaxFileMB))
		return
	}

	contentType := header.Header.Get("Content-Type")
	blobID, err := s.blobs.Put(data, filename, contentType)
	if err != nil {
		log.WithField("error", err.Error()).Error("blob store failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	rec := types.Recording{
		BlobID:      blobID,
		Status:      types.StatusPending,
		Filename:    filename,
		ContentType: contentType,
	}
	rid, err := s.store.CreateRecording(r.Context(), &rec)
	if err != nil {
		log.WithField("error", err.Error()).Error("create recording failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}
	log = log.WithField("recording_id", rid.Hex())
	log.Info("recording uploaded")

	if s.cfg.ProcessInline {
		if err := s.processor.Process(r.Context(), rid); err != nil {
			// status and error message are already on the document
			log.WithField("error", err.Error()).Warn("inline processing failed")
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"recording_id": rid.Hex()})
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListFeed(r.Context(), 50)
	if err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("list feed failed")
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleNoteDetail(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := s.store.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	note, err := s.store.GetNoteByRecording(r.Context(), rec.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	out := map[string]interface{}{
		"id":         rec.ID.Hex(),
		"created_at": rec.CreatedAt,
		"status":     rec.Status,
		"language":   rec.Language,
	}
	if rec.Status == types.StatusError {
		out["error"] = rec.Error
	}
	if note != nil {
		out["summary"] = note.Summary
		out["keywords"] = note.Keywords
		out["action_items"] = note.ActionItems
		out["transcript"] = note.Transcript
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, []types.Note{})
		return
	}
	notes, err := s.store.SearchNotes(r.Context(), q, 50)
	if err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if notes == nil {
		notes = []types.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := s.processor.Process(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := s.store.GetRecording(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if rec.ContentType != "" {
		w.Header().Set("Content-Type", rec.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	if err := s.blobs.Stream(rec.BlobID, w); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audio not found")
			return
		}
		s.log.WithRequest(r).WithField("error", err.Error()).Error("audio stream failed")
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context(), 500)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="notes.xlsx"`)
	if err := report.WriteNotes(w, notes); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("export failed")
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
