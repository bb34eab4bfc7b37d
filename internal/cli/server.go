package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"assessment-attempt-service/internal/backend"
	"assessment-attempt-service/internal/config"
	"assessment-attempt-service/internal/infra/memory"
	pgloader "assessment-attempt-service/internal/infra/postgres"
	infraredis "assessment-attempt-service/internal/infra/redis"
	"assessment-attempt-service/internal/submit"
	"assessment-attempt-service/internal/timer"
	transport "assessment-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the attempt service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	client := backend.New(cfg.Backend.URL, cfg.Backend.Token, config.TTLDuration(cfg.Backend.Timeout, 30*time.Second))

	var source memory.PayloadSource = memory.NewStaticQuizSource(samplePayloads())
	if pool != nil {
		source = pgloader.NewQuizLoader(pool)
	} else if cfg.Backend.URL != "" {
		source = client
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo transport.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, source, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(source, quizTTL)
	}

	attemptTTL := config.TTLDuration(cfg.Attempt.TTL, 2*time.Hour)
	var registry transport.AttemptRegistry
	if redisClient != nil {
		registry = infraredis.NewAttemptRegistry(redisClient, attemptTTL)
	} else {
		registry = memory.NewAttemptRegistry()
	}

	layer := submit.NewLayer(client)
	wsHandler := transport.NewWSHandler(quizRepo, registry, client, layer, timer.NewWallClock())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting attempt service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// samplePayloads provides a minimal quiz for running without postgres or an
// upstream content service.
func samplePayloads() map[string]map[string]any {
	return map[string]map[string]any{
		"quiz-1": {
			"id":                  "quiz-1",
			"title":               "Arithmetic",
			"durationMinutes":     5,
			"passingScorePercent": 70,
			"questions": []any{
				map[string]any{
					"id":   "q1",
					"text": "What is 2 + 2?",
					"type": "single-choice",
					"options": []any{
						map[string]any{"id": "o1", "text": "3"},
						map[string]any{"id": "o2", "text": "4", "correct": true},
						map[string]any{"id": "o3", "text": "5"},
					},
				},
				map[string]any{
					"id":   "q2",
					"text": "7 is a prime number",
					"type": "true-false",
					"correctAnswer": true,
				},
			},
		},
	}
}
