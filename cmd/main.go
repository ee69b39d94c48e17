package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"eco-assistant/handler"
	appconfig "eco-assistant/internal/config"
	"eco-assistant/internal/fulfillment"
	"eco-assistant/internal/integrations/environment"
	"eco-assistant/internal/integrations/paramstore"
	"eco-assistant/internal/intent"
	"eco-assistant/internal/repository"
	"eco-assistant/internal/session"
	"eco-assistant/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if err := cfg.ValidateLambda(); err != nil {
		slog.Error("invalid lambda configuration", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	activities, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.ActivityTable)
	if err != nil {
		slog.Error("failed to create activity store", "err", err)
		os.Exit(1)
	}
	envClient, err := environment.NewClient(ssmClient, cfg.ParamPrefix)
	if err != nil {
		slog.Error("failed to create environment client", "err", err)
		os.Exit(1)
	}

	// ---- Dialogue core ----
	dispatcher, err := fulfillment.NewDispatcher(activities, envClient, fulfillment.Options{
		Logger:          logger,
		Timeout:         cfg.CollaboratorTimeout,
		DefaultLocation: cfg.DefaultLocation,
	})
	if err != nil {
		slog.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}
	resolver := intent.NewResolver()

	// Sessions live as long as the warm container. Lambda freezes the process
	// between invocations, so idle sessions are swept on the request path.
	sessions := session.NewManager(session.Options{Logger: logger})

	// ---- Handler ----
	chat, err := usecase.NewChatService(resolver, dispatcher, sessions, cfg.MaxMessageLength)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	webhook, err := usecase.NewFulfillmentService(resolver, dispatcher, cfg.MaxMessageLength)
	if err != nil {
		slog.Error("failed to create fulfillment service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chat, webhook, logger)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	// A container handles one invocation at a time.
	var lastReap time.Time
	lambda.Start(func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if time.Since(lastReap) >= cfg.ReapInterval {
			sessions.Reap(cfg.SessionTTL)
			lastReap = time.Now()
		}
		return h.Handle(ctx, event)
	})
}
