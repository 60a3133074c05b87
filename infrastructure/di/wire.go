//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/application/services"
	"github.com/sjak1/rabbithole-backend/infrastructure/config"
	"github.com/sjak1/rabbithole-backend/interfaces/http/rest"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
	"github.com/sjak1/rabbithole-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	BranchRepo       ports.BranchRepository
	AccountRepo      ports.AccountRepository
	EventPublisher   ports.EventPublisher
	CompletionClient ports.CompletionClient
	IdentityProvider ports.IdentityProvider
	CreditLedger     *services.CreditLedger
	BranchService    *services.BranchService
	ChatService      *services.ChatService
	TitleSynthesizer *services.TitleSynthesizer
	JWTValidator     *auth.JWTValidator
	Metrics          *observability.Metrics
	Router           *rest.Router
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDomainConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideBranchRepository,
	ProvideAccountRepository,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideTracer,
	ProvideCompletionClient,
	ProvideIdentityProvider,
	ProvideJWTValidator,
	ProvideErrorHandler,
	ProvideCreditLedger,
	ProvideBranchService,
	ProvideChatService,
	ProvideTitleSynthesizer,
	ProvideBranchHandler,
	ProvideMessageHandler,
	ProvideUserHandler,
	ProvideChatHandler,
	ProvideTitleHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
