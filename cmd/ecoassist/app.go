package main

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"eco-assistant/internal/config"
	"eco-assistant/internal/fulfillment"
	"eco-assistant/internal/integrations/environment"
	"eco-assistant/internal/integrations/paramstore"
	"eco-assistant/internal/intent"
	"eco-assistant/internal/repository"
	"eco-assistant/internal/session"
	"eco-assistant/internal/usecase"
)

// localTokenPrefix namespaces tokens taken from the environment when no SSM
// prefix is configured.
const localTokenPrefix = "/local"

// app is the dependency graph shared by the serve and chat commands.
type app struct {
	cfg      *config.Config
	store    *repository.SQLiteStore
	sessions *session.Manager
	chat     *usecase.ChatService
	webhook  *usecase.FulfillmentService
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if err := cfg.ValidateLocal(); err != nil {
		return nil, err
	}

	store, err := repository.NewSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	getter, prefix, err := tokenSource(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	envClient, err := environment.NewClient(getter, prefix)
	if err != nil {
		store.Close()
		return nil, err
	}

	dispatcher, err := fulfillment.NewDispatcher(store, envClient, fulfillment.Options{
		Logger:          logger,
		Timeout:         cfg.CollaboratorTimeout,
		DefaultLocation: cfg.DefaultLocation,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	resolver := intent.NewResolver()
	sessions := session.NewManager(session.Options{Logger: logger})
	chat, err := usecase.NewChatService(resolver, dispatcher, sessions, cfg.MaxMessageLength)
	if err != nil {
		store.Close()
		return nil, err
	}
	webhook, err := usecase.NewFulfillmentService(resolver, dispatcher, cfg.MaxMessageLength)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, sessions: sessions, chat: chat, webhook: webhook}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// tokenSource reads provider tokens from SSM when PARAM_PREFIX is set and
// from WAQI_TOKEN/OPENWEATHER_TOKEN otherwise.
func tokenSource(ctx context.Context, cfg *config.Config) (environment.Getter, string, error) {
	if cfg.ParamPrefix == "" {
		return paramstore.StaticTokens(localTokenPrefix, map[string]string{
			environment.WAQITokenName:        cfg.WAQIToken,
			environment.OpenWeatherTokenName: cfg.OpenWeatherToken,
		}), localTokenPrefix, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load AWS config: %w", err)
	}
	client, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, "", err
	}
	return client, cfg.ParamPrefix, nil
}
