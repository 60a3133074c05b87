package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/application/services"
	domainconfig "github.com/sjak1/rabbithole-backend/domain/config"
	"github.com/sjak1/rabbithole-backend/infrastructure/config"
	"github.com/sjak1/rabbithole-backend/infrastructure/identity"
	"github.com/sjak1/rabbithole-backend/infrastructure/llm"
	"github.com/sjak1/rabbithole-backend/infrastructure/messaging/eventbridge"
	"github.com/sjak1/rabbithole-backend/infrastructure/persistence/dynamodb"
	"github.com/sjak1/rabbithole-backend/interfaces/http/rest"
	"github.com/sjak1/rabbithole-backend/interfaces/http/rest/handlers"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
	"github.com/sjak1/rabbithole-backend/pkg/observability"
)

// ProvideLogger creates a new logger instance. The level comes from
// LOG_LEVEL; the encoder follows the environment.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level
	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig loads environment-specific business rule limits
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideBranchRepository creates a branch repository
func ProvideBranchRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.BranchRepository {
	return dynamodb.NewBranchRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideAccountRepository creates an account repository
func ProvideAccountRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.AccountRepository {
	return dynamodb.NewAccountRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates an EventBridge-backed event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideMetrics creates metrics instance
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	namespace := fmt.Sprintf("Rabbithole/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		client = nil
	}
	return observability.NewMetrics(namespace, client)
}

// ProvideTracer creates the distributed tracer, or nil when tracing is
// disabled.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	if !cfg.EnableTracing {
		return nil
	}
	return observability.NewTracer("rabbithole-backend")
}

// ProvideCompletionClient creates the OpenAI completion client
func ProvideCompletionClient(cfg *config.Config) ports.CompletionClient {
	return llm.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model)
}

// ProvideIdentityProvider creates the identity-provider profile client
func ProvideIdentityProvider(cfg *config.Config) ports.IdentityProvider {
	return identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey)
}

// ProvideJWTValidator creates the JWT validator
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(secret, cfg.JWTIssuer)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger)
}

// ProvideCreditLedger creates the credit ledger service
func ProvideCreditLedger(
	accounts ports.AccountRepository,
	identityProvider ports.IdentityProvider,
	publisher ports.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *services.CreditLedger {
	return services.NewCreditLedger(accounts, identityProvider, publisher, cfg.InitialCredits, logger)
}

// ProvideBranchService creates the branch service
func ProvideBranchService(
	branches ports.BranchRepository,
	ledger *services.CreditLedger,
	publisher ports.EventPublisher,
	limits *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.BranchService {
	return services.NewBranchService(branches, ledger, publisher, limits, logger)
}

// ProvideChatService creates the metered completion gateway
func ProvideChatService(
	client ports.CompletionClient,
	ledger *services.CreditLedger,
	cfg *config.Config,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *services.ChatService {
	return services.NewChatService(client, ledger, cfg.Model, metrics, tracer, logger)
}

// ProvideTitleSynthesizer creates the title synthesizer
func ProvideTitleSynthesizer(
	branches *services.BranchService,
	chat *services.ChatService,
	logger *zap.Logger,
) *services.TitleSynthesizer {
	return services.NewTitleSynthesizer(branches, chat, logger)
}

// ProvideBranchHandler creates the branch handler
func ProvideBranchHandler(branches *services.BranchService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.BranchHandler {
	return handlers.NewBranchHandler(branches, errorHandler, logger)
}

// ProvideMessageHandler creates the message handler
func ProvideMessageHandler(branches *services.BranchService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.MessageHandler {
	return handlers.NewMessageHandler(branches, errorHandler, logger)
}

// ProvideUserHandler creates the user handler
func ProvideUserHandler(ledger *services.CreditLedger, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.UserHandler {
	return handlers.NewUserHandler(ledger, errorHandler, logger)
}

// ProvideChatHandler creates the chat handler
func ProvideChatHandler(chat *services.ChatService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.ChatHandler {
	return handlers.NewChatHandler(chat, errorHandler, logger)
}

// ProvideTitleHandler creates the title handler
func ProvideTitleHandler(titles *services.TitleSynthesizer, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *handlers.TitleHandler {
	return handlers.NewTitleHandler(titles, errorHandler, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	branchHandler *handlers.BranchHandler,
	messageHandler *handlers.MessageHandler,
	userHandler *handlers.UserHandler,
	chatHandler *handlers.ChatHandler,
	titleHandler *handlers.TitleHandler,
	validator *auth.JWTValidator,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(branchHandler, messageHandler, userHandler, chatHandler, titleHandler, validator, cfg.EnableCORS, logger)
}
