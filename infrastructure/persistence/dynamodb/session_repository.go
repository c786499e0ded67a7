package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// SessionRepository implements ports.SessionRepository.
// Session item: PK=USER#owner SK=SESSION#id, GSI1PK=SESSIONID#id for direct
// lookups. Chain edge: PK=USER#owner SK=CHAIN#src with the destination as an
// attribute — the key shape itself allows at most one outgoing edge per
// session.
type SessionRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(store *Store, logger *zap.Logger) ports.SessionRepository {
	return &SessionRepository{store: store, logger: logger}
}

// sessionItem represents the DynamoDB item structure for a session
type sessionItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	GSI1PK            string `dynamodbav:"GSI1PK"`
	GSI1SK            string `dynamodbav:"GSI1SK"`
	EntityType        string `dynamodbav:"EntityType"`
	SessionID         string `dynamodbav:"SessionID"`
	OwnerID           string `dynamodbav:"OwnerID"`
	Title             string `dynamodbav:"Title"`
	Date              string `dynamodbav:"Date"`
	Description       string `dynamodbav:"Description,omitempty"`
	Transcript        string `dynamodbav:"Transcript,omitempty"`
	Status            string `dynamodbav:"Status"`
	AnalysisStatus    string `dynamodbav:"AnalysisStatus"`
	AnalysisTimestamp string `dynamodbav:"AnalysisTimestamp,omitempty"`
	IsLastSession     bool   `dynamodbav:"IsLastSession"`
	CreatedAt         string `dynamodbav:"CreatedAt"`
	UpdatedAt         string `dynamodbav:"UpdatedAt"`
}

// chainItem represents a NEXT_SESSION edge
type chainItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	EntityType   string `dynamodbav:"EntityType"`
	OwnerID      string `dynamodbav:"OwnerID"`
	SrcSessionID string `dynamodbav:"SrcSessionID"`
	DstSessionID string `dynamodbav:"DstSessionID"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
}

func sessionSK(sessionID string) string { return fmt.Sprintf("SESSION#%s", sessionID) }
func chainSK(srcSessionID string) string { return fmt.Sprintf("CHAIN#%s", srcSessionID) }

func toSessionItem(s *graph.Session) sessionItem {
	item := sessionItem{
		PK:             userPK(s.OwnerID),
		SK:             sessionSK(s.ID),
		GSI1PK:         fmt.Sprintf("SESSIONID#%s", s.ID),
		GSI1SK:         "METADATA",
		EntityType:     "SESSION",
		SessionID:      s.ID,
		OwnerID:        s.OwnerID,
		Title:          s.Title,
		Date:           s.Date.Format(time.RFC3339Nano),
		Description:    s.Description,
		Transcript:     s.Transcript,
		Status:         string(s.Status),
		AnalysisStatus: string(s.AnalysisStatus),
		IsLastSession:  s.IsLastSession,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339Nano),
	}
	if s.AnalysisTimestamp != nil {
		item.AnalysisTimestamp = s.AnalysisTimestamp.Format(time.RFC3339Nano)
	}
	return item
}

func (item sessionItem) toDomain() (*graph.Session, error) {
	parse := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339Nano, s)
		return t
	}
	if item.SessionID == "" {
		return nil, fmt.Errorf("session item missing SessionID")
	}
	session := &graph.Session{
		ID:             item.SessionID,
		OwnerID:        item.OwnerID,
		Title:          item.Title,
		Date:           parse(item.Date),
		Description:    item.Description,
		Transcript:     item.Transcript,
		Status:         graph.SessionStatus(item.Status),
		AnalysisStatus: graph.AnalysisStatus(item.AnalysisStatus),
		IsLastSession:  item.IsLastSession,
		CreatedAt:      parse(item.CreatedAt),
		UpdatedAt:      parse(item.UpdatedAt),
	}
	if item.AnalysisTimestamp != "" {
		t := parse(item.AnalysisTimestamp)
		session.AnalysisTimestamp = &t
	}
	return session, nil
}

// Create persists a new session node
func (r *SessionRepository) Create(ctx context.Context, session *graph.Session) error {
	av, err := attributevalue.MarshalMap(toSessionItem(session))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session")
	}
	return r.store.do(ctx, "CreateSession", func(ctx context.Context) error {
		_, err := r.store.Client().PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String(r.store.TableName()),
			Item:                av,
			ConditionExpression: aws.String("attribute_not_exists(PK)"),
		})
		return err
	})
}

// GetByID retrieves a session via the GSI1 id lookup
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*graph.Session, error) {
	var out *dynamodb.QueryOutput
	err := r.store.do(ctx, "GetSession", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.TableName()),
			IndexName:              aws.String(GSI1IndexName),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("SESSIONID#%s", sessionID)},
				":sk": &types.AttributeValueMemberS{Value: "METADATA"},
			},
			Limit: aws.Int32(1),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, apperrors.ErrSessionNotFound(sessionID)
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal session")
	}
	return item.toDomain()
}

// ListByOwner retrieves all of a user's sessions, created_at ascending
func (r *SessionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*graph.Session, error) {
	items, err := r.queryOwnerPrefix(ctx, "ListSessions", ownerID, "SESSION#")
	if err != nil {
		return nil, err
	}

	sessions := make([]*graph.Session, 0, len(items))
	for _, raw := range items {
		var item sessionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal session item", zap.Error(err))
			continue
		}
		session, err := item.toDomain()
		if err != nil {
			r.logger.Warn("Skipping malformed session item", zap.Error(err))
			continue
		}
		sessions = append(sessions, session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.Before(sessions[j].CreatedAt) })
	return sessions, nil
}

// LastSession returns the owner's session flagged is_last_session, or nil
func (r *SessionRepository) LastSession(ctx context.Context, ownerID string) (*graph.Session, error) {
	sessions, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].IsLastSession {
			return sessions[i], nil
		}
	}
	return nil, nil
}

// ClearLastFlags unsets is_last_session on every flagged session of the owner
func (r *SessionRepository) ClearLastFlags(ctx context.Context, ownerID string) error {
	sessions, err := r.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if !session.IsLastSession {
			continue
		}
		if err := r.SetLastFlag(ctx, ownerID, session.ID, false); err != nil {
			return err
		}
	}
	return nil
}

// SetLastFlag sets or clears is_last_session on one session
func (r *SessionRepository) SetLastFlag(ctx context.Context, ownerID, sessionID string, last bool) error {
	err := r.store.do(ctx, "SetLastFlag", func(ctx context.Context) error {
		_, err := r.store.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
				"SK": &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
			UpdateExpression:    aws.String("SET IsLastSession = :last"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":last": &types.AttributeValueMemberBOOL{Value: last},
			},
		})
		return err
	})
	if err != nil && isConditionalFailure(err) {
		return apperrors.ErrSessionNotFound(sessionID)
	}
	return err
}

// MarkAnalyzed records an ingestion outcome on the session node
func (r *SessionRepository) MarkAnalyzed(ctx context.Context, ownerID, sessionID string, status graph.AnalysisStatus, at time.Time) error {
	err := r.store.do(ctx, "MarkAnalyzed", func(ctx context.Context) error {
		_, err := r.store.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
				"SK": &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
			UpdateExpression:    aws.String("SET AnalysisStatus = :status, AnalysisTimestamp = :ts, UpdatedAt = :ts"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":status": &types.AttributeValueMemberS{Value: string(status)},
				":ts":     &types.AttributeValueMemberS{Value: at.Format(time.RFC3339Nano)},
			},
		})
		return err
	})
	if err != nil && isConditionalFailure(err) {
		return apperrors.ErrSessionNotFound(sessionID)
	}
	return err
}

// PutChainLink stores the NEXT_SESSION edge src -> dst
func (r *SessionRepository) PutChainLink(ctx context.Context, ownerID, srcSessionID, dstSessionID string) error {
	av, err := attributevalue.MarshalMap(chainItem{
		PK:           userPK(ownerID),
		SK:           chainSK(srcSessionID),
		EntityType:   "NEXT_SESSION",
		OwnerID:      ownerID,
		SrcSessionID: srcSessionID,
		DstSessionID: dstSessionID,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal chain link")
	}
	return r.store.do(ctx, "PutChainLink", func(ctx context.Context) error {
		_, err := r.store.Client().PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.store.TableName()),
			Item:      av,
		})
		return err
	})
}

// DeleteChainLink removes the outgoing NEXT_SESSION edge of src
func (r *SessionRepository) DeleteChainLink(ctx context.Context, ownerID, srcSessionID string) error {
	return r.store.do(ctx, "DeleteChainLink", func(ctx context.Context) error {
		_, err := r.store.Client().DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
				"SK": &types.AttributeValueMemberS{Value: chainSK(srcSessionID)},
			},
		})
		return err
	})
}

// ChainLinks returns every NEXT_SESSION edge of the owner as src -> dst
func (r *SessionRepository) ChainLinks(ctx context.Context, ownerID string) (map[string]string, error) {
	items, err := r.queryOwnerPrefix(ctx, "ChainLinks", ownerID, "CHAIN#")
	if err != nil {
		return nil, err
	}

	links := make(map[string]string, len(items))
	for _, raw := range items {
		var item chainItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal chain item", zap.Error(err))
			continue
		}
		links[item.SrcSessionID] = item.DstSessionID
	}
	return links, nil
}

// Delete removes the session node, its outgoing chain edge and its occurrence
// partition. Element and topic nodes stay.
func (r *SessionRepository) Delete(ctx context.Context, ownerID, sessionID string) error {
	err := r.store.do(ctx, "DeleteSession", func(ctx context.Context) error {
		_, err := r.store.Client().TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Delete: &types.Delete{
					TableName: aws.String(r.store.TableName()),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
						"SK": &types.AttributeValueMemberS{Value: sessionSK(sessionID)},
					},
					ConditionExpression: aws.String("attribute_exists(PK)"),
				}},
				{Delete: &types.Delete{
					TableName: aws.String(r.store.TableName()),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
						"SK": &types.AttributeValueMemberS{Value: chainSK(sessionID)},
					},
				}},
			},
		})
		return err
	})
	if err != nil {
		if isConditionalFailure(err) {
			return apperrors.ErrSessionNotFound(sessionID)
		}
		return err
	}

	// Occurrence edges live in the session's own partition.
	return r.purgePartition(ctx, fmt.Sprintf("SESSION#%s", sessionID))
}

// queryOwnerPrefix pages through one owner partition by SK prefix.
func (r *SessionRepository) queryOwnerPrefix(ctx context.Context, op, ownerID, prefix string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	err := r.store.do(ctx, op, func(ctx context.Context) error {
		var startKey map[string]types.AttributeValue
		for {
			out, err := r.store.Client().Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.store.TableName()),
				KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk": &types.AttributeValueMemberS{Value: userPK(ownerID)},
					":sk": &types.AttributeValueMemberS{Value: prefix},
				},
				ExclusiveStartKey: startKey,
			})
			if err != nil {
				return err
			}
			items = append(items, out.Items...)
			if out.LastEvaluatedKey == nil {
				return nil
			}
			startKey = out.LastEvaluatedKey
		}
	})
	return items, err
}

// purgePartition deletes every item in one partition in batches of 25.
func (r *SessionRepository) purgePartition(ctx context.Context, pk string) error {
	return r.store.do(ctx, "PurgePartition", func(ctx context.Context) error {
		var startKey map[string]types.AttributeValue
		for {
			out, err := r.store.Client().Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.store.TableName()),
				KeyConditionExpression: aws.String("PK = :pk"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk": &types.AttributeValueMemberS{Value: pk},
				},
				ProjectionExpression: aws.String("PK, SK"),
				ExclusiveStartKey:    startKey,
			})
			if err != nil {
				return err
			}

			for start := 0; start < len(out.Items); start += 25 {
				end := start + 25
				if end > len(out.Items) {
					end = len(out.Items)
				}
				writes := make([]types.WriteRequest, 0, end-start)
				for _, item := range out.Items[start:end] {
					writes = append(writes, types.WriteRequest{
						DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
							"PK": item["PK"],
							"SK": item["SK"],
						}},
					})
				}
				if _, err := r.store.Client().BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
					RequestItems: map[string][]types.WriteRequest{r.store.TableName(): writes},
				}); err != nil {
					return err
				}
			}

			if out.LastEvaluatedKey == nil {
				return nil
			}
			startKey = out.LastEvaluatedKey
		}
	})
}
