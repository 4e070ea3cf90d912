package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"activity-events/config"
	"activity-events/domain"
	"activity-events/storage"
)

func main() {
	var cfg config.Ingester
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("Event Ingester Service starting")

	if err := cfg.Validate(); err != nil {
		log.Fatalf("storage config: %v", err)
	}
	if cfg.ConnectionString == "" || cfg.Queue == "" {
		log.Fatal("missing queue config")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	queue, err := storage.NewQueue(cfg.ConnectionString, cfg.Queue)
	if err != nil {
		log.Fatalf("queue client: %v", err)
	}

	var rc *redis.Client
	if cfg.RedisConnection != "" {
		opts, err := config.RedisOptions(cfg.RedisConnection)
		if err != nil {
			log.Fatalf("redis config: %v", err)
		}
		rc = redis.NewClient(opts)
		defer rc.Close()
	}

	ingestor := domain.NewIngestor(domain.NewProjector(loc), store, domain.RetryPolicy{MaxElapsed: cfg.WriteMaxElapsed})
	c := &consumer{
		queue: queue,
		processor: &processor{
			ingestor: ingestor,
			loc:      loc,
			rc:       rc,
			channel:  cfg.Channel,
		},
		pollInterval: cfg.PollInterval,
		visibility:   cfg.Visibility,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := c.run(ctx); err != nil {
		log.Fatalf("ingester halted: %v", err)
	}
	log.Info("Event Ingester Service stopped")
}
