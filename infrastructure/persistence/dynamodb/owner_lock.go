package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// OwnerLock serializes session-chain mutations per owner using DynamoDB
// conditional writes. Lock record: PK=LOCK#OWNER#<ownerID> SK=LOCK with an
// ExpiresAt guard and a TTL attribute so abandoned locks age out.
type OwnerLock struct {
	store  *Store
	logger *zap.Logger
}

// NewOwnerLock creates a new owner lock
func NewOwnerLock(store *Store, logger *zap.Logger) ports.OwnerLocker {
	return &OwnerLock{store: store, logger: logger}
}

func lockPK(ownerID string) string { return fmt.Sprintf("LOCK#OWNER#%s", ownerID) }

// Acquire retries the conditional put until it wins or the timeout elapses.
func (l *OwnerLock) Acquire(ctx context.Context, ownerID string, ttl, timeout time.Duration) (ports.ReleaseFunc, error) {
	deadline := time.Now().Add(timeout)
	retryInterval := 50 * time.Millisecond

	for {
		release, err := l.tryAcquire(ctx, ownerID, ttl)
		if err == nil {
			return release, nil
		}
		if !isConditionalFailure(err) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, apperrors.NewTimeoutError("acquire owner lock")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

func (l *OwnerLock) tryAcquire(ctx context.Context, ownerID string, ttl time.Duration) (ports.ReleaseFunc, error) {
	lockID := uuid.New().String()
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: lockPK(ownerID)},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339Nano)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	err := l.store.do(ctx, "AcquireOwnerLock", func(ctx context.Context) error {
		_, err := l.store.Client().PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(l.store.TableName()),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Debug("Owner lock acquired",
		zap.String("owner_id", ownerID),
		zap.String("lock_id", lockID),
		zap.Duration("ttl", ttl),
	)

	release := func(ctx context.Context) error {
		err := l.store.do(ctx, "ReleaseOwnerLock", func(ctx context.Context) error {
			_, err := l.store.Client().DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(l.store.TableName()),
				Key: map[string]types.AttributeValue{
					"PK": &types.AttributeValueMemberS{Value: lockPK(ownerID)},
					"SK": &types.AttributeValueMemberS{Value: "LOCK"},
				},
				ConditionExpression: aws.String("LockID = :lockId"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":lockId": &types.AttributeValueMemberS{Value: lockID},
				},
			})
			return err
		})
		if err != nil && isConditionalFailure(err) {
			// Lock expired and was taken over; nothing left to release.
			l.logger.Warn("Owner lock already released or taken over",
				zap.String("owner_id", ownerID),
				zap.String("lock_id", lockID),
			)
			return nil
		}
		return err
	}
	return release, nil
}
