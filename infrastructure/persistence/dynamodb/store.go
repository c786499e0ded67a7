package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// GSI1 is the single alternate index: id lookups and owner-scoped edge scans.
const GSI1IndexName = "GSI1"

// Store wraps the DynamoDB client with the table configuration, a circuit
// breaker and tracing. Every repository goes through Store.do so that store
// outages surface uniformly as StoreUnavailable.
type Store struct {
	client    *dynamodb.Client
	tableName string
	breaker   *gobreaker.CircuitBreaker
	tracer    trace.Tracer
	logger    *zap.Logger
}

// NewStore creates a new store
func NewStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *Store {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "dynamodb",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Conditional failures are application outcomes, not outages.
			return err == nil || isConditionalFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Store circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Store{
		client:    client,
		tableName: tableName,
		breaker:   breaker,
		tracer:    otel.Tracer("dynamodb"),
		logger:    logger,
	}
}

// TableName returns the configured table name.
func (s *Store) TableName() string { return s.tableName }

// Client exposes the raw client for operations the helpers do not cover.
func (s *Store) Client() *dynamodb.Client { return s.client }

// do runs one store call through the breaker with a span around it.
// Conditional-check failures pass through untouched so callers can map them
// to their domain meaning; everything else becomes StoreUnavailable.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "dynamodb."+op,
		trace.WithAttributes(attribute.String("db.table", s.tableName)),
	)
	defer span.End()

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return nil
	}
	if isConditionalFailure(err) {
		span.SetStatus(codes.Ok, "conditional check failed")
		return err
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("Store operation failed",
		zap.String("operation", op),
		zap.Error(err),
	)
	return apperrors.NewStoreUnavailableError(op, err)
}

// isConditionalFailure reports whether the error is a conditional write or
// transaction condition rejection rather than a store outage.
func isConditionalFailure(err error) bool {
	var conditional *types.ConditionalCheckFailedException
	if errors.As(err, &conditional) {
		return true
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
