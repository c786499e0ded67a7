package dynamodb

import (
	"context"
	"fmt"
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

// TopicRepository implements ports.TopicRepository.
// Topic node: PK=TOPIC#name SK=METADATA — name is the global identity, so the
// merge is an if_not_exists update and concurrent creation converges.
// RELATED_TO edge: PK=ELEM#elementID SK=TOPIC#name, GSI1PK=USERTOPIC#owner.
// Taxonomy entry: PK=TAXONOMY#name SK=METADATA, GSI1PK=TAXONOMY for listing.
// CLASSIFIED_AS edge: PK=TOPIC#name SK=CLASSIFIED_AS.
type TopicRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(store *Store, logger *zap.Logger) ports.TopicRepository {
	return &TopicRepository{store: store, logger: logger}
}

type topicItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	EntityType  string `dynamodbav:"EntityType"`
	TopicID     string `dynamodbav:"TopicID"`
	Name        string `dynamodbav:"Name"`
	Description string `dynamodbav:"Description,omitempty"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
}

type topicLinkItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	GSI1PK     string  `dynamodbav:"GSI1PK"`
	GSI1SK     string  `dynamodbav:"GSI1SK"`
	EntityType string  `dynamodbav:"EntityType"`
	ElementID  string  `dynamodbav:"ElementID"`
	OwnerID    string  `dynamodbav:"OwnerID"`
	TopicName  string  `dynamodbav:"TopicName"`
	Relevance  float64 `dynamodbav:"Relevance"`
	CreatedAt  string  `dynamodbav:"CreatedAt"`
}

type taxonomyItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	EntityType  string `dynamodbav:"EntityType"`
	Name        string `dynamodbav:"Name"`
	Level       string `dynamodbav:"Level"`
	ParentName  string `dynamodbav:"ParentName,omitempty"`
	Description string `dynamodbav:"Description,omitempty"`
}

type classificationItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	EntityType   string  `dynamodbav:"EntityType"`
	TopicName    string  `dynamodbav:"TopicName"`
	TaxonomyName string  `dynamodbav:"TaxonomyName"`
	Confidence   float64 `dynamodbav:"Confidence"`
	CreatedAt    string  `dynamodbav:"CreatedAt"`
}

func topicPK(name string) string { return fmt.Sprintf("TOPIC#%s", name) }

// Merge creates the topic by name if absent and returns it. The atomic
// if_not_exists update is the store's merge-on-unique-name primitive.
func (r *TopicRepository) Merge(ctx context.Context, name string) (*graph.Topic, error) {
	name = graph.NormalizeName(name)
	if name == "" {
		return nil, apperrors.NewValidationError("topic name must not be empty")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	newID := graph.NewTopicID()

	var out *dynamodb.UpdateItemOutput
	err := r.store.do(ctx, "MergeTopic", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: topicPK(name)},
				"SK": &types.AttributeValueMemberS{Value: "METADATA"},
			},
			UpdateExpression: aws.String(
				"SET TopicID = if_not_exists(TopicID, :id), EntityType = :entityType, " +
					"#name = :name, CreatedAt = if_not_exists(CreatedAt, :now), UpdatedAt = :now",
			),
			ExpressionAttributeNames: map[string]string{"#name": "Name"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":id":         &types.AttributeValueMemberS{Value: newID},
				":entityType": &types.AttributeValueMemberS{Value: "TOPIC"},
				":name":       &types.AttributeValueMemberS{Value: name},
				":now":        &types.AttributeValueMemberS{Value: now},
			},
			ReturnValues: types.ReturnValueAllNew,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var item topicItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal topic")
	}
	created, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	updated, _ := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	return &graph.Topic{
		ID:          item.TopicID,
		Name:        item.Name,
		Description: item.Description,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

// Link merges the RELATED_TO edge; the deterministic key makes it idempotent.
func (r *TopicRepository) Link(ctx context.Context, link graph.TopicLink) error {
	av, err := attributevalue.MarshalMap(topicLinkItem{
		PK:         fmt.Sprintf("ELEM#%s", link.ElementID),
		SK:         topicPK(link.TopicName),
		GSI1PK:     fmt.Sprintf("USERTOPIC#%s", link.OwnerID),
		GSI1SK:     fmt.Sprintf("TOPIC#%s#%s", link.TopicName, link.ElementID),
		EntityType: "RELATED_TO",
		ElementID:  link.ElementID,
		OwnerID:    link.OwnerID,
		TopicName:  link.TopicName,
		Relevance:  graph.Clamp01(link.Relevance),
		CreatedAt:  link.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal topic link")
	}
	return r.store.do(ctx, "LinkTopic", func(ctx context.Context) error {
		_, err := r.store.Client().PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.store.TableName()),
			Item:      av,
		})
		return err
	})
}

// LinksByOwner returns every RELATED_TO edge of a user via GSI1
func (r *TopicRepository) LinksByOwner(ctx context.Context, ownerID string) ([]graph.TopicLink, error) {
	var items []map[string]types.AttributeValue
	err := r.store.do(ctx, "TopicLinksByOwner", func(ctx context.Context) error {
		var startKey map[string]types.AttributeValue
		for {
			out, err := r.store.Client().Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.store.TableName()),
				IndexName:              aws.String(GSI1IndexName),
				KeyConditionExpression: aws.String("GSI1PK = :pk"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("USERTOPIC#%s", ownerID)},
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
	if err != nil {
		return nil, err
	}
	return r.toLinks(items), nil
}

// LinksByElement returns the RELATED_TO edges of one element
func (r *TopicRepository) LinksByElement(ctx context.Context, elementID string) ([]graph.TopicLink, error) {
	var out *dynamodb.QueryOutput
	err := r.store.do(ctx, "TopicLinksByElement", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.TableName()),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("ELEM#%s", elementID)},
				":sk": &types.AttributeValueMemberS{Value: "TOPIC#"},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.toLinks(out.Items), nil
}

func (r *TopicRepository) toLinks(items []map[string]types.AttributeValue) []graph.TopicLink {
	links := make([]graph.TopicLink, 0, len(items))
	for _, raw := range items {
		var item topicLinkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal topic link item", zap.Error(err))
			continue
		}
		created, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
		links = append(links, graph.TopicLink{
			ElementID: item.ElementID,
			OwnerID:   item.OwnerID,
			TopicName: item.TopicName,
			Relevance: item.Relevance,
			CreatedAt: created,
		})
	}
	return links
}

// ListTaxonomies returns every taxonomy entry via the GSI1 listing partition
func (r *TopicRepository) ListTaxonomies(ctx context.Context) ([]graph.Taxonomy, error) {
	var items []map[string]types.AttributeValue
	err := r.store.do(ctx, "ListTaxonomies", func(ctx context.Context) error {
		var startKey map[string]types.AttributeValue
		for {
			out, err := r.store.Client().Query(ctx, &dynamodb.QueryInput{
				TableName:              aws.String(r.store.TableName()),
				IndexName:              aws.String(GSI1IndexName),
				KeyConditionExpression: aws.String("GSI1PK = :pk"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":pk": &types.AttributeValueMemberS{Value: "TAXONOMY"},
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
	if err != nil {
		return nil, err
	}

	taxonomies := make([]graph.Taxonomy, 0, len(items))
	for _, raw := range items {
		var item taxonomyItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal taxonomy item", zap.Error(err))
			continue
		}
		taxonomies = append(taxonomies, graph.Taxonomy{
			Name:        item.Name,
			Level:       item.Level,
			ParentName:  item.ParentName,
			Description: item.Description,
		})
	}
	return taxonomies, nil
}

// Classify merges the CLASSIFIED_AS edge for a topic
func (r *TopicRepository) Classify(ctx context.Context, c graph.Classification) error {
	av, err := attributevalue.MarshalMap(classificationItem{
		PK:           topicPK(c.TopicName),
		SK:           "CLASSIFIED_AS",
		EntityType:   "CLASSIFIED_AS",
		TopicName:    c.TopicName,
		TaxonomyName: c.TaxonomyName,
		Confidence:   graph.Clamp01(c.Confidence),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal classification")
	}
	return r.store.do(ctx, "ClassifyTopic", func(ctx context.Context) error {
		_, err := r.store.Client().PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.store.TableName()),
			Item:      av,
		})
		return err
	})
}

// Classification returns the topic's CLASSIFIED_AS edge, or nil
func (r *TopicRepository) Classification(ctx context.Context, topicName string) (*graph.Classification, error) {
	var out *dynamodb.GetItemOutput
	err := r.store.do(ctx, "GetClassification", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: topicPK(topicName)},
				"SK": &types.AttributeValueMemberS{Value: "CLASSIFIED_AS"},
			},
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	var item classificationItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal classification")
	}
	created, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
	return &graph.Classification{
		TopicName:    item.TopicName,
		TaxonomyName: item.TaxonomyName,
		Confidence:   item.Confidence,
		CreatedAt:    created,
	}, nil
}
