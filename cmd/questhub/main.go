package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/layer-3/questhub"
	"github.com/layer-3/questhub/adapters/questapi"
	"github.com/layer-3/questhub/adapters/store"
	"github.com/layer-3/questhub/adapters/tokenizer"
	"github.com/layer-3/questhub/config"
	httptransport "github.com/layer-3/questhub/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := watermill.NewStdLogger(cfg.LogDebug, cfg.LogTrace)

	// Tokens are only honoured for the identity currently signed in, so a
	// per-process key is enough
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate signing key: %v", err)
	}

	capture := questapi.NewCapture()
	deps := questhub.Deps{
		Capture:   capture,
		Tokenizer: tokenizer.NewJWTTokenizer(privateKey, cfg.TokenTTL),
		Logger:    logger,
		QuestAPI: questapi.NewClient(cfg.QuestAPIURL,
			questapi.WithTimeout(cfg.QuestAPITimeout),
			questapi.WithRateLimit(rate.Limit(cfg.QuestAPIRate), cfg.QuestAPIBurst),
			questapi.WithLogger(logger),
			questapi.WithInterceptor("/", capture.Intercept),
			questapi.WithInterceptor("/", func(endpoint string, status int, body []byte) {
				logger.Trace("Quest API response", watermill.LogFields{"endpoint": endpoint, "status": status, "bytes": len(body)})
			}),
		),
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		deps.Store = store.NewRedisStore(redisClient)
	}

	if cfg.EventsBackend == config.EventsRedis {
		deps.Publisher, deps.Subscriber = redisPubSub(redisClient, logger)
	}

	app, err := questhub.New(questhub.Config{
		RiddleReward:     cfg.RiddleReward,
		QuizReward:       cfg.QuizReward,
		ToastTTL:         cfg.ToastTTL,
		SimulatedLatency: cfg.SimulatedLatency,
	}, deps)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	router := httptransport.SetupRouter(app.Services())
	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Listening", watermill.LogFields{"addr": cfg.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err, nil)
	}
	if err := app.Close(); err != nil {
		logger.Error("App shutdown failed", err, nil)
	}
}

func redisPubSub(client *redis.Client, logger watermill.LoggerAdapter) (*redisstream.Publisher, *redisstream.Subscriber) {
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	// no consumer group: every instance sees every reward
	subscriber, err := redisstream.NewSubscriber(
		redisstream.SubscriberConfig{
			Client: client,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis subscriber: %v", err)
	}

	return publisher, subscriber
}
