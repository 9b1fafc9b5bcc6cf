package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"audio-notes-go/internal/annotate"
	"audio-notes-go/internal/blob"
	"audio-notes-go/internal/config"
	"audio-notes-go/internal/drainer"
	"audio-notes-go/internal/engine"
	"audio-notes-go/internal/logger"
	"audio-notes-go/internal/store"
	"audio-notes-go/internal/stt"
)

func main() {
	_ = godotenv.Load() // loads .env

	once := flag.Bool("once", false, "run a single batch and exit")
	interval := flag.Duration("interval", 0, "time between batches, e.g. 10s (overrides POLL_INTERVAL_SEC)")
	flag.Parse()

	log := logger.New()
	log.WithField("service", "audio-notes-poller").Info("starting poller")

	cfg := config.Load()
	if *interval > 0 {
		cfg.PollInterval = *interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	st, err := store.NewClient(connectCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.WithError(err).Fatal("failed to create store client")
	}
	if err := st.Connect(connectCtx); err != nil {
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

	d := drainer.New(eng, cfg.PollInterval, cfg.BatchLimit, log)

	if *once {
		if err := d.RunOnce(ctx); err != nil {
			log.WithError(err).Error("batch failed")
			os.Exit(1)
		}
		return
	}

	d.Run(ctx)
	log.Info("poller stopped")
}
