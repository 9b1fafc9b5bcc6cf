package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"audio-notes-go/internal/annotate"
	"audio-notes-go/internal/blob"
	"audio-notes-go/internal/config"
	"audio-notes-go/internal/engine"
	"audio-notes-go/internal/logger"
	"audio-notes-go/internal/store"
	"audio-notes-go/internal/stt"
	"audio-notes-go/internal/web"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "audio-notes-web").Info("starting service")

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	st, err := store.NewClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Fatal("failed to create store client")
	}
	if err := st.Connect(ctx); err != nil {
		log.WithError(err).Fatal("failed to connect to mongodb")
	}
	defer st.Close(context.Background())

	blobs, err := blob.NewStore(st.Database())
	if err != nil {
		log.WithError(err).Fatal("failed to open blob store")
	}

	transcriber := stt.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.TranscribeModel)
	annotator := annotate.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.TextModel, log)
	eng := engine.New(st, blobs, transcriber, annotator, log)

	server := web.NewServer(st, blobs, eng, cfg, log)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}
