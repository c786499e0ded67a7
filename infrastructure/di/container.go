package di

import (
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/application/services"
	"github.com/imanima/InsightJourney-backend-sub000/application/services/analytics"
	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/config"
	"github.com/imanima/InsightJourney-backend-sub000/interfaces/http/rest"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/auth"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Client       *awsdynamodb.Client
	UserRepo     ports.UserRepository
	SessionRepo  ports.SessionRepository
	ElementRepo  ports.ElementRepository
	TopicRepo    ports.TopicRepository
	Locker       ports.OwnerLocker
	Cache        ports.Cache
	Sequencer    *services.SessionSequencer
	TopicService *services.TopicService
	Ingestion    *services.IngestionService
	Users        *services.UserService
	Analytics    *analytics.Service
	Tokens       *auth.TokenManager
	RateLimiter  *auth.DistributedRateLimiter
	Errors       *apperrors.ErrorHandler
	Router       *rest.Router
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideStore,
	ProvideUserRepository,
	ProvideSessionRepository,
	ProvideElementRepository,
	ProvideTopicRepository,
	ProvideOwnerLocker,
	ProvideCache,
	ProvideSequencer,
	ProvideTopicService,
	ProvideInsightLinker,
	ProvideIngestionService,
	ProvideUserService,
	ProvideAnalyticsService,
	ProvideTokenManager,
	ProvideUserRateLimiter,
	ProvideErrorHandler,
	ProvideReadiness,
	ProvideAuthHandler,
	ProvideUserHandler,
	ProvideSessionHandler,
	ProvideInsightHandler,
	ProvideTopicHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)
