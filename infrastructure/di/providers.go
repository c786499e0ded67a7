package di

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/application/services"
	"github.com/imanima/InsightJourney-backend-sub000/application/services/analytics"
	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/cache"
	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/config"
	"github.com/imanima/InsightJourney-backend-sub000/infrastructure/persistence/dynamodb"
	"github.com/imanima/InsightJourney-backend-sub000/interfaces/http/rest"
	"github.com/imanima/InsightJourney-backend-sub000/interfaces/http/rest/handlers"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/auth"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// ReadinessCheck reports whether the store dependency is reachable.
type ReadinessCheck func() error

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointing at a local
// endpoint when one is configured.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	})
}

// ProvideStore creates the shared DynamoDB store wrapper
func ProvideStore(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.Store {
	return dynamodb.NewStore(client, cfg.DynamoDBTable, logger)
}

// ProvideUserRepository creates the user repository
func ProvideUserRepository(store *dynamodb.Store, logger *zap.Logger) ports.UserRepository {
	return dynamodb.NewUserRepository(store, logger)
}

// ProvideSessionRepository creates the session repository
func ProvideSessionRepository(store *dynamodb.Store, logger *zap.Logger) ports.SessionRepository {
	return dynamodb.NewSessionRepository(store, logger)
}

// ProvideElementRepository creates the element repository
func ProvideElementRepository(store *dynamodb.Store, logger *zap.Logger) ports.ElementRepository {
	return dynamodb.NewElementRepository(store, logger)
}

// ProvideTopicRepository creates the topic repository
func ProvideTopicRepository(store *dynamodb.Store, logger *zap.Logger) ports.TopicRepository {
	return dynamodb.NewTopicRepository(store, logger)
}

// ProvideOwnerLocker creates the per-owner chain lock
func ProvideOwnerLocker(store *dynamodb.Store, logger *zap.Logger) ports.OwnerLocker {
	return dynamodb.NewOwnerLock(store, logger)
}

// ProvideCache creates the in-process cache
func ProvideCache() ports.Cache {
	return cache.NewInMemoryCache()
}

// ProvideSequencer creates the session sequencer
func ProvideSequencer(sessions ports.SessionRepository, locker ports.OwnerLocker, logger *zap.Logger) *services.SessionSequencer {
	return services.NewSessionSequencer(sessions, locker, logger)
}

// ProvideTopicService creates the topic service
func ProvideTopicService(topics ports.TopicRepository, c ports.Cache, logger *zap.Logger) *services.TopicService {
	return services.NewTopicService(topics, c, logger)
}

// ProvideInsightLinker creates the insight auto-linker
func ProvideInsightLinker(elements ports.ElementRepository, logger *zap.Logger) *services.InsightLinker {
	return services.NewInsightLinker(elements, logger)
}

// ProvideIngestionService creates the ingestion service
func ProvideIngestionService(
	sessions ports.SessionRepository,
	elements ports.ElementRepository,
	topics *services.TopicService,
	linker *services.InsightLinker,
	logger *zap.Logger,
) *services.IngestionService {
	return services.NewIngestionService(sessions, elements, topics, linker, logger)
}

// ProvideUserService creates the user service
func ProvideUserService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	elements ports.ElementRepository,
	sequencer *services.SessionSequencer,
	logger *zap.Logger,
) *services.UserService {
	return services.NewUserService(users, sessions, elements, sequencer, logger)
}

// ProvideAnalyticsService creates the analytics service
func ProvideAnalyticsService(
	sessions ports.SessionRepository,
	elements ports.ElementRepository,
	topics ports.TopicRepository,
	logger *zap.Logger,
) *analytics.Service {
	return analytics.NewService(sessions, elements, topics, logger)
}

// ProvideTokenManager creates the JWT token manager
func ProvideTokenManager(cfg *config.Config) *auth.TokenManager {
	secret := cfg.JWTSecret
	if secret == "" {
		// Validate rejects this in production; keep local setups running.
		secret = "development-secret-change-in-production"
	}
	return auth.NewTokenManager(secret, cfg.JWTIssuer, cfg.JWTLifetime)
}

// ProvideUserRateLimiter creates the distributed per-user rate limiter
func ProvideUserRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	return auth.NewDistributedUserRateLimiter(client, cfg.DynamoDBTable, 200)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *apperrors.ErrorHandler {
	return apperrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideReadiness checks table reachability with a short deadline
func ProvideReadiness(client *awsdynamodb.Client, cfg *config.Config) ReadinessCheck {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, err := client.DescribeTable(ctx, &awsdynamodb.DescribeTableInput{
			TableName: aws.String(cfg.DynamoDBTable),
		})
		return err
	}
}

// ProvideAuthHandler creates the auth handler
func ProvideAuthHandler(users *services.UserService, tokens *auth.TokenManager, errs *apperrors.ErrorHandler, logger *zap.Logger) *handlers.AuthHandler {
	return handlers.NewAuthHandler(users, tokens, errs, logger)
}

// ProvideUserHandler creates the user handler
func ProvideUserHandler(users *services.UserService, errs *apperrors.ErrorHandler, logger *zap.Logger) *handlers.UserHandler {
	return handlers.NewUserHandler(users, errs, logger)
}

// ProvideSessionHandler creates the session handler
func ProvideSessionHandler(
	sequencer *services.SessionSequencer,
	ingestion *services.IngestionService,
	elements ports.ElementRepository,
	topics ports.TopicRepository,
	errs *apperrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.SessionHandler {
	return handlers.NewSessionHandler(sequencer, ingestion, elements, topics, errs, logger)
}

// ProvideInsightHandler creates the insight handler
func ProvideInsightHandler(svc *analytics.Service, errs *apperrors.ErrorHandler, logger *zap.Logger) *handlers.InsightHandler {
	return handlers.NewInsightHandler(svc, errs, logger)
}

// ProvideTopicHandler creates the topic handler
func ProvideTopicHandler(topics *services.TopicService, errs *apperrors.ErrorHandler, logger *zap.Logger) *handlers.TopicHandler {
	return handlers.NewTopicHandler(topics, errs, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	sessionHandler *handlers.SessionHandler,
	insightHandler *handlers.InsightHandler,
	topicHandler *handlers.TopicHandler,
	tokens *auth.TokenManager,
	userLimiter *auth.DistributedRateLimiter,
	errs *apperrors.ErrorHandler,
	readiness ReadinessCheck,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(
		cfg,
		authHandler,
		userHandler,
		sessionHandler,
		insightHandler,
		topicHandler,
		tokens,
		userLimiter,
		errs,
		readiness,
		logger,
	)
}
