package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/graph"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/llm"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/repo"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/session"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/chat"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/core"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/knowledge"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/providers/booking"
	"github.com/Chative-core-poc-v1/travel-concierge/internal/server"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/travel-concierge/pkg/redis"
	"github.com/Chative-core-poc-v1/travel-concierge/pkg/sqlite"
)

const defaultSeedFile = "data/knowledge.yaml"

// AppConfig defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis  pkgredis.Config
	SQLite sqlite.Config
	Server model.ServerConfig

	// Capabilities
	LLM          model.LLMConfig
	BookingTTL   time.Duration `envconfig:"BOOKING_QUOTE_TTL" default:"30m"`
	Retrieval    model.RetrievalConfig
	Classifier   model.ClassifierModelConfig
	Generation   model.GenerationModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Orchestrator model.OrchestratorConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dotenvErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})
	if dotenvErr != nil {
		logx.Debug().Err(dotenvErr).Msg("No .env file loaded")
	}

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	db, err := cfg.SQLite.Open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cfg.Redis.New(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		logx.Info().Msg("Connected to Redis successfully")
	}

	kb, err := openKnowledge(ctx, db, cfg.Retrieval)
	if err != nil {
		return err
	}

	chats, err := chat.NewStore(ctx, db)
	if err != nil {
		return err
	}
	if _, err := chats.SeedWelcome(ctx); err != nil {
		return err
	}

	var states model.StateStore
	var lockOpts []session.Option
	if rdb != nil {
		states = repo.NewRedisStateStore(rdb, cfg.Conversation.TTL)
		if cfg.Conversation.DistributedLock {
			lockTTL := model.LockTTLFor(cfg.Conversation, cfg.Orchestrator)
			if lockTTL > cfg.Conversation.LockTTL {
				logx.Warn().
					Dur("configured", cfg.Conversation.LockTTL).
					Dur("lock_ttl", lockTTL).
					Msg("CONVERSATION_LOCK_TTL is shorter than a worst-case turn, raising it")
			}
			lockOpts = append(lockOpts, session.WithLocker(session.NewRedisLocker(rdb, "travel:lock:"), lockTTL))
		}
	} else {
		logx.Warn().Msg("REDIS_URL not set, keeping conversation state in memory")
		states = repo.NewMemoryStateStore(cfg.Conversation.TTL)
	}

	completer, err := llm.NewCompleter(ctx, cfg.LLM, cfg.Classifier, cfg.Generation)
	if err != nil {
		return err
	}

	orch, err := graph.NewOrchestrator(ctx, graph.Config{
		Completer:    completer,
		Searcher:     kb,
		Booking:      booking.NewStubProvider(cfg.BookingTTL),
		States:       states,
		Messages:     chats,
		Sessions:     session.NewManager(lockOpts...),
		Classifier:   cfg.Classifier,
		Generation:   cfg.Generation,
		Retrieval:    cfg.Retrieval,
		Prompt:       cfg.Prompt,
		Conversation: cfg.Conversation,
		Orchestrator: cfg.Orchestrator,
	})
	if err != nil {
		return err
	}

	handler := server.NewHandler(server.Deps{
		Runner:      orch,
		Chats:       chats,
		States:      states,
		Config:      cfg.Server,
		LLMProvider: cfg.LLM.Provider,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", srv.Addr).Str("llm_provider", cfg.LLM.Provider).Msg("Travel concierge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openKnowledge opens the knowledge base and seeds it when it is empty.
func openKnowledge(ctx context.Context, db *sql.DB, cfg model.RetrievalConfig) (*knowledge.Store, error) {
	kb, err := knowledge.NewStore(ctx, db)
	if err != nil {
		return nil, err
	}
	n, err := kb.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		logx.Debug().Int("documents", n).Msg("Knowledge base already seeded")
		return kb, nil
	}

	path := cfg.SeedFile
	if path == "" {
		path = defaultSeedFile
	}
	if _, err := kb.Seed(ctx, path); err != nil {
		if cfg.SeedFile == "" && errors.Is(err, os.ErrNotExist) {
			logx.Warn().Str("path", path).Msg("No knowledge seed file, retrieval starts empty")
			return kb, nil
		}
		return nil, err
	}
	return kb, nil
}
