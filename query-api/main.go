package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"activity-events/config"
	"activity-events/domain"
	"activity-events/query-api/api"
	"activity-events/query-api/stream"
	"activity-events/storage"
)

func main() {
	var cfg config.QueryAPI
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("storage config: %v", err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.Close()

	authOpts := api.AuthOptions{
		Mode:     cfg.AuthMode,
		Secret:   cfg.SharedSecret,
		CacheTTL: cfg.JWKSCacheTTL,
	}
	if cfg.AuthMode == api.AuthModeJWKS {
		if cfg.Auth0Audience == "" || cfg.Auth0Domain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   cfg.JWKSCacheTTL,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.WithError(err).Warn("jwks refresh")
			},
		})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		defer jwks.EndBackground()
		authOpts.JWKS = jwks
		authOpts.Audience = cfg.Auth0Audience
		authOpts.Issuer = "https://" + cfg.Auth0Domain + "/"
	}
	auth, err := api.NewAuth(authOpts)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	views := api.Views{
		ByCorrelationID: domain.NewEventsByCorrelationIDRepository(store),
		ByReference:     domain.NewEventsByReferenceRepository(store),
		Store:           store,
	}
	if cfg.RedisConnection != "" && cfg.Channel != "" {
		opts, err := config.RedisOptions(cfg.RedisConnection)
		if err != nil {
			log.Fatalf("redis config: %v", err)
		}
		rc := redis.NewClient(opts)
		defer rc.Close()
		broker := stream.NewBroker(cfg.StreamBuffer)
		go stream.Listen(ctx, rc, cfg.Channel, broker)
		views.Updates = broker
		log.Infof("streaming notifications from %s", cfg.Channel)
	}
	api.Register(e, views, auth, cfg.DefaultLimit, log.StandardLogger())
	go func() {
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}
