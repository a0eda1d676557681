// Package app wires the configured components into a ready chat handler.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Swuzz123/Coffee-Assistant/internal/agent"
	"github.com/Swuzz123/Coffee-Assistant/internal/catalog"
	"github.com/Swuzz123/Coffee-Assistant/internal/config"
	"github.com/Swuzz123/Coffee-Assistant/internal/database"
	"github.com/Swuzz123/Coffee-Assistant/internal/handlers"
	"github.com/Swuzz123/Coffee-Assistant/internal/intent"
	"github.com/Swuzz123/Coffee-Assistant/internal/llm"
	"github.com/Swuzz123/Coffee-Assistant/internal/memory"
	"github.com/Swuzz123/Coffee-Assistant/internal/models"
	"github.com/Swuzz123/Coffee-Assistant/internal/orders"
	"github.com/Swuzz123/Coffee-Assistant/internal/tools"
)

type App struct {
	DB       *gorm.DB
	Sessions *memory.Manager
	Chat     *handlers.ChatHandler
}

// Build opens the database, loads the menu vocabulary and assembles the
// dialog stack. A non-nil provider replaces the configured model.
func Build(ctx context.Context, cfg *config.Config, log *logrus.Logger, provider llm.Provider) (*App, error) {
	db, err := database.Open(database.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log)
	if err != nil {
		return nil, err
	}
	a := &App{DB: db}

	chat, err := a.assemble(ctx, cfg, log, provider)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Chat = chat
	return a, nil
}

func (a *App) assemble(ctx context.Context, cfg *config.Config, log *logrus.Logger, provider llm.Provider) (*handlers.ChatHandler, error) {
	if err := database.Migrate(a.DB); err != nil {
		return nil, err
	}

	if cfg.MenuSeedCSV != "" {
		n, err := catalog.ImportCSVFile(ctx, a.DB, cfg.MenuSeedCSV)
		if err != nil {
			return nil, err
		}
		log.WithField("items", n).Info("📥 Menu seed processed")
	}

	menu := catalog.NewRepository(a.DB, log)
	vocab, err := vocabulary(ctx, cfg, menu)
	if err != nil {
		return nil, err
	}
	log.WithField("main_categories", len(vocab)).Info("📚 Menu vocabulary loaded")

	delta := decimal.NewFromInt(cfg.SizePriceDelta)
	svc := orders.NewService(menu, orders.NewRepository(a.DB), log, orders.WithSizeDelta(delta))
	registry, err := tools.NewRegistry(intent.NewClassifier(vocab), menu, svc, log)
	if err != nil {
		return nil, err
	}

	if provider == nil {
		provider, err = llm.NewFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	log.WithFields(logrus.Fields{
		"provider": provider.Name(),
		"model":    cfg.LLMModel,
	}).Info("🤖 Language model ready")

	controller := agent.NewController(provider, registry, log,
		agent.WithMaxIterations(cfg.AgentMaxIterations),
		agent.WithSizeDelta(delta),
	)

	store, err := sessionStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Sessions = memory.NewManager(store, log)

	db := a.DB
	return handlers.NewChatHandler(controller, a.Sessions, log,
		handlers.WithHealthCheck("database", func(ctx context.Context) error { return database.Ping(ctx, db) }),
	), nil
}

func vocabulary(ctx context.Context, cfg *config.Config, menu *catalog.Repository) (models.Vocabulary, error) {
	if cfg.MenuMappingsFile != "" {
		return catalog.LoadMappings(cfg.MenuMappingsFile)
	}
	vocab, err := menu.Vocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	return vocab, nil
}

func sessionStore(cfg *config.Config) (memory.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return memory.NewInMemoryStore(cfg.SessionTTL), nil
	case config.SessionBackendRedis:
		return memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
	}
	if a.DB != nil {
		errs = append(errs, database.Close(a.DB))
	}
	return errors.Join(errs...)
}
