package dynamodb

import (
	"context"
	"fmt"
	"strings"
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

// UserRepository implements ports.UserRepository on the single-table layout.
// Profile item: PK=USER#id SK=PROFILE, with GSI1PK=EMAIL#email for login
// lookups. The email lookup is part of the same item, so uniqueness is
// enforced with a separate guard item keyed by the email itself.
type UserRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(store *Store, logger *zap.Logger) ports.UserRepository {
	return &UserRepository{store: store, logger: logger}
}

// userItem represents the DynamoDB item structure for a user profile
type userItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	Email        string `dynamodbav:"Email"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	Name         string `dynamodbav:"Name"`
	IsAdmin      bool   `dynamodbav:"IsAdmin"`
	Disabled     bool   `dynamodbav:"Disabled"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	LastLogin    string `dynamodbav:"LastLogin,omitempty"`
}

func userPK(userID string) string { return fmt.Sprintf("USER#%s", userID) }

func emailGuardKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("EMAIL#%s", strings.ToLower(email))},
		"SK": &types.AttributeValueMemberS{Value: "GUARD"},
	}
}

func toUserItem(u *graph.User) userItem {
	item := userItem{
		PK:           userPK(u.ID),
		SK:           "PROFILE",
		GSI1PK:       fmt.Sprintf("EMAIL#%s", strings.ToLower(u.Email)),
		GSI1SK:       "PROFILE",
		EntityType:   "USER",
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Name:         u.Name,
		IsAdmin:      u.IsAdmin,
		Disabled:     u.Disabled,
		CreatedAt:    u.CreatedAt.Format(time.RFC3339Nano),
	}
	if u.LastLogin != nil {
		item.LastLogin = u.LastLogin.Format(time.RFC3339Nano)
	}
	return item
}

func (item userItem) toDomain() (*graph.User, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on user %s: %w", item.UserID, err)
	}
	user := &graph.User{
		ID:           item.UserID,
		Email:        item.Email,
		PasswordHash: item.PasswordHash,
		Name:         item.Name,
		IsAdmin:      item.IsAdmin,
		Disabled:     item.Disabled,
		CreatedAt:    createdAt,
	}
	if item.LastLogin != "" {
		if t, err := time.Parse(time.RFC3339Nano, item.LastLogin); err == nil {
			user.LastLogin = &t
		}
	}
	return user, nil
}

// Create writes the profile and the email guard in one transaction; a taken
// email fails the guard's condition.
func (r *UserRepository) Create(ctx context.Context, user *graph.User) error {
	av, err := attributevalue.MarshalMap(toUserItem(user))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user")
	}

	guard := emailGuardKey(user.Email)
	guard["UserID"] = &types.AttributeValueMemberS{Value: user.ID}
	guard["EntityType"] = &types.AttributeValueMemberS{Value: "EMAIL_GUARD"}

	err = r.store.do(ctx, "CreateUser", func(ctx context.Context) error {
		_, err := r.store.Client().TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Put: &types.Put{
					TableName:           aws.String(r.store.TableName()),
					Item:                guard,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				}},
				{Put: &types.Put{
					TableName:           aws.String(r.store.TableName()),
					Item:                av,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				}},
			},
		})
		return err
	})
	if err != nil {
		if isConditionalFailure(err) {
			return apperrors.ErrEmailAlreadyRegistered(user.Email)
		}
		return err
	}

	r.logger.Debug("User created", zap.String("user_id", user.ID))
	return nil
}

// GetByID retrieves a user profile
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*graph.User, error) {
	var out *dynamodb.GetItemOutput
	err := r.store.do(ctx, "GetUser", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, apperrors.ErrUserNotFound(userID)
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user")
	}
	return item.toDomain()
}

// GetByEmail retrieves a user via the GSI1 email lookup
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*graph.User, error) {
	var out *dynamodb.QueryOutput
	err := r.store.do(ctx, "GetUserByEmail", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.TableName()),
			IndexName:              aws.String(GSI1IndexName),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EMAIL#%s", strings.ToLower(email))},
				":sk": &types.AttributeValueMemberS{Value: "PROFILE"},
			},
			Limit: aws.Int32(1),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, apperrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user")
	}
	return item.toDomain()
}

// Update overwrites the mutable profile fields
func (r *UserRepository) Update(ctx context.Context, user *graph.User) error {
	err := r.store.do(ctx, "UpdateUser", func(ctx context.Context) error {
		_, err := r.store.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(user.ID)},
				"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
			UpdateExpression:    aws.String("SET #name = :name, Disabled = :disabled, IsAdmin = :isAdmin"),
			ExpressionAttributeNames: map[string]string{
				"#name": "Name",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":name":     &types.AttributeValueMemberS{Value: user.Name},
				":disabled": &types.AttributeValueMemberBOOL{Value: user.Disabled},
				":isAdmin":  &types.AttributeValueMemberBOOL{Value: user.IsAdmin},
			},
		})
		return err
	})
	if err != nil {
		if isConditionalFailure(err) {
			return apperrors.ErrUserNotFound(user.ID)
		}
		return err
	}
	return nil
}

// UpdateLastLogin records a successful login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	err := r.store.do(ctx, "UpdateLastLogin", func(ctx context.Context) error {
		_, err := r.store.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
				"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
			},
			ConditionExpression: aws.String("attribute_exists(PK)"),
			UpdateExpression:    aws.String("SET LastLogin = :lastLogin"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":lastLogin": &types.AttributeValueMemberS{Value: at.Format(time.RFC3339Nano)},
			},
		})
		return err
	})
	if err != nil {
		if isConditionalFailure(err) {
			return apperrors.ErrUserNotFound(userID)
		}
		return err
	}
	return nil
}

// Delete removes the profile and the email guard. The owning service runs the
// session/element cascade before calling this.
func (r *UserRepository) Delete(ctx context.Context, userID string) error {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return r.store.do(ctx, "DeleteUser", func(ctx context.Context) error {
		_, err := r.store.Client().TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Delete: &types.Delete{
					TableName: aws.String(r.store.TableName()),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: userPK(userID)},
						"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
					},
				}},
				{Delete: &types.Delete{
					TableName: aws.String(r.store.TableName()),
					Key:       emailGuardKey(user.Email),
				}},
			},
		})
		return err
	})
}
