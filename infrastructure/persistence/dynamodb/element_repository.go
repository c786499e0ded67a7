package dynamodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	apperrors "github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// ElementRepository implements ports.ElementRepository.
//
// Element node: PK=USER#owner SK=ELEM#KIND#name — the key shape IS the merge
// identity, so an UpdateItem with if_not_exists on the immutable attributes
// is an atomic merge-by-key. GSI1PK=ELEMENTID#id serves direct id lookups.
// Occurrence edge: PK=SESSION#id SK=OCC#KIND#elementID, mirrored to
// GSI1PK=USEROCC#owner so one query loads a user's full occurrence history.
// Insight link: PK=INSIGHT#src SK=LINK#dst, mirrored to GSI1PK=USERLINK#owner.
type ElementRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewElementRepository creates a new element repository
func NewElementRepository(store *Store, logger *zap.Logger) ports.ElementRepository {
	return &ElementRepository{store: store, logger: logger}
}

// elementItem represents the DynamoDB item structure for an element node
type elementItem struct {
	PK          string  `dynamodbav:"PK"`
	SK          string  `dynamodbav:"SK"`
	GSI1PK      string  `dynamodbav:"GSI1PK"`
	GSI1SK      string  `dynamodbav:"GSI1SK"`
	EntityType  string  `dynamodbav:"EntityType"`
	ElementID   string  `dynamodbav:"ElementID"`
	Kind        string  `dynamodbav:"Kind"`
	Name        string  `dynamodbav:"Name"`
	OwnerID     string  `dynamodbav:"OwnerID"`
	Intensity   float64 `dynamodbav:"Intensity,omitempty"`
	Context     string  `dynamodbav:"Context,omitempty"`
	Description string  `dynamodbav:"Description,omitempty"`
	Impact      string  `dynamodbav:"Impact,omitempty"`
	Text        string  `dynamodbav:"Text,omitempty"`
	Severity    string  `dynamodbav:"Severity,omitempty"`
	Status      string  `dynamodbav:"Status,omitempty"`
	Priority    string  `dynamodbav:"Priority,omitempty"`
	DueDate     string  `dynamodbav:"DueDate,omitempty"`
	CreatedAt   string  `dynamodbav:"CreatedAt"`
	UpdatedAt   string  `dynamodbav:"UpdatedAt"`
}

// occurrenceItem represents a HAS_<KIND> edge
type occurrenceItem struct {
	PK         string  `dynamodbav:"PK"`
	SK         string  `dynamodbav:"SK"`
	GSI1PK     string  `dynamodbav:"GSI1PK"`
	GSI1SK     string  `dynamodbav:"GSI1SK"`
	EntityType string  `dynamodbav:"EntityType"`
	SessionID  string  `dynamodbav:"SessionID"`
	ElementID  string  `dynamodbav:"ElementID"`
	OwnerID    string  `dynamodbav:"OwnerID"`
	Kind       string  `dynamodbav:"Kind"`
	Name       string  `dynamodbav:"Name"`
	Intensity  float64 `dynamodbav:"Intensity,omitempty"`
	Valence    float64 `dynamodbav:"Valence,omitempty"`
	Context    string  `dynamodbav:"Context,omitempty"`
	Status     string  `dynamodbav:"Status,omitempty"`
	Confidence float64 `dynamodbav:"Confidence,omitempty"`
	Timestamp  string  `dynamodbav:"Timestamp"`
	ModifiedBy string  `dynamodbav:"ModifiedBy,omitempty"`
}

// insightLinkItem represents a RELATES_TO_INSIGHT edge
type insightLinkItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	SourceID   string `dynamodbav:"SourceID"`
	TargetID   string `dynamodbav:"TargetID"`
	OwnerID    string `dynamodbav:"OwnerID"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func elementSK(kind graph.ElementKind, name string) string {
	return fmt.Sprintf("ELEM#%s#%s", strings.ToUpper(string(kind)), strings.ToLower(name))
}

// Upsert merges on (kind, normalized name, owner) via a single UpdateItem:
// if_not_exists pins the id and created_at on first write, every call
// refreshes updated_at and the kind-specific fields.
func (r *ElementRepository) Upsert(ctx context.Context, ownerID string, kind graph.ElementKind, name string, fields graph.ElementFields) (string, error) {
	name = graph.NormalizeName(name)
	if name == "" {
		return "", apperrors.ErrEmptyElementName()
	}

	newID := graph.NewID(kind.IDPrefix())
	now := time.Now().UTC().Format(time.RFC3339Nano)

	fieldAV, err := attributevalue.MarshalMap(map[string]interface{}{
		"Intensity":   fields.Intensity,
		"Context":     fields.Context,
		"Description": fields.Description,
		"Impact":      fields.Impact,
		"Text":        fields.Text,
		"Severity":    fields.Severity,
		"Status":      fields.Status,
		"Priority":    fields.Priority,
		"DueDate":     fields.DueDate,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "failed to marshal element fields")
	}

	update := "SET ElementID = if_not_exists(ElementID, :newId), " +
		"GSI1PK = if_not_exists(GSI1PK, :gsi1pk), " +
		"GSI1SK = if_not_exists(GSI1SK, :meta), " +
		"EntityType = :entityType, Kind = :kind, #name = :name, OwnerID = :owner, " +
		"CreatedAt = if_not_exists(CreatedAt, :now), UpdatedAt = :now"
	values := map[string]types.AttributeValue{
		":newId":      &types.AttributeValueMemberS{Value: newID},
		":gsi1pk":     &types.AttributeValueMemberS{Value: fmt.Sprintf("ELEMENTID#%s", newID)},
		":meta":       &types.AttributeValueMemberS{Value: "METADATA"},
		":entityType": &types.AttributeValueMemberS{Value: "ELEMENT"},
		":kind":       &types.AttributeValueMemberS{Value: string(kind)},
		":name":       &types.AttributeValueMemberS{Value: name},
		":owner":      &types.AttributeValueMemberS{Value: ownerID},
		":now":        &types.AttributeValueMemberS{Value: now},
	}
	names := map[string]string{"#name": "Name"}
	i := 0
	for attr, av := range fieldAV {
		placeholder := fmt.Sprintf(":f%d", i)
		nameKey := fmt.Sprintf("#f%d", i)
		update += fmt.Sprintf(", %s = %s", nameKey, placeholder)
		names[nameKey] = attr
		values[placeholder] = av
		i++
	}

	var out *dynamodb.UpdateItemOutput
	err = r.store.do(ctx, "UpsertElement", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.store.TableName()),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
				"SK": &types.AttributeValueMemberS{Value: elementSK(kind, name)},
			},
			UpdateExpression:          aws.String(update),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ReturnValues:              types.ReturnValueAllNew,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	var item elementItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return "", apperrors.Wrap(err, "failed to unmarshal upserted element")
	}
	return item.ElementID, nil
}

// GetByID retrieves an element via the GSI1 id lookup
func (r *ElementRepository) GetByID(ctx context.Context, elementID string) (*graph.Element, error) {
	var out *dynamodb.QueryOutput
	err := r.store.do(ctx, "GetElement", func(ctx context.Context) error {
		var err error
		out, err = r.store.Client().Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.store.TableName()),
			IndexName:              aws.String(GSI1IndexName),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("ELEMENTID#%s", elementID)},
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
		return nil, apperrors.ErrElementNotFound(elementID)
	}

	var item elementItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal element")
	}
	return item.toDomain(), nil
}

func (item elementItem) toDomain() *graph.Element {
	parse := func(s string) time.Time {
		t, _ := time.Parse(time.RFC3339Nano, s)
		return t
	}
	return &graph.Element{
		ID:      item.ElementID,
		Kind:    graph.ElementKind(item.Kind),
		Name:    item.Name,
		OwnerID: item.OwnerID,
		Fields: graph.ElementFields{
			Intensity:   item.Intensity,
			Context:     item.Context,
			Description: item.Description,
			Impact:      item.Impact,
			Text:        item.Text,
			Severity:    item.Severity,
			Status:      item.Status,
			Priority:    item.Priority,
			DueDate:     item.DueDate,
		},
		CreatedAt: parse(item.CreatedAt),
		UpdatedAt: parse(item.UpdatedAt),
	}
}

// ListByOwner retrieves a user's elements, optionally one kind only
func (r *ElementRepository) ListByOwner(ctx context.Context, ownerID string, kind graph.ElementKind) ([]*graph.Element, error) {
	prefix := "ELEM#"
	if kind != "" {
		prefix = fmt.Sprintf("ELEM#%s#", strings.ToUpper(string(kind)))
	}

	items, err := r.queryPartitionPrefix(ctx, "ListElements", userPK(ownerID), prefix)
	if err != nil {
		return nil, err
	}

	elements := make([]*graph.Element, 0, len(items))
	for _, raw := range items {
		var item elementItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal element item", zap.Error(err))
			continue
		}
		elements = append(elements, item.toDomain())
	}
	return elements, nil
}

// AttachToSession writes the occurrence edge in a transaction that condition-
// checks the session node, so a missing session surfaces as NotFound.
func (r *ElementRepository) AttachToSession(ctx context.Context, occ graph.Occurrence) error {
	av, err := attributevalue.MarshalMap(occurrenceItem{
		PK:         fmt.Sprintf("SESSION#%s", occ.SessionID),
		SK:         fmt.Sprintf("OCC#%s#%s", strings.ToUpper(string(occ.Kind)), occ.ElementID),
		GSI1PK:     fmt.Sprintf("USEROCC#%s", occ.OwnerID),
		GSI1SK:     fmt.Sprintf("OCC#%s#%s", occ.SessionID, occ.ElementID),
		EntityType: "OCCURRENCE",
		SessionID:  occ.SessionID,
		ElementID:  occ.ElementID,
		OwnerID:    occ.OwnerID,
		Kind:       string(occ.Kind),
		Name:       occ.Name,
		Intensity:  occ.Intensity,
		Valence:    occ.Valence,
		Context:    occ.Context,
		Status:     occ.Status,
		Confidence: occ.Confidence,
		Timestamp:  occ.Timestamp.Format(time.RFC3339Nano),
		ModifiedBy: occ.ModifiedBy,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal occurrence")
	}

	err = r.store.do(ctx, "AttachToSession", func(ctx context.Context) error {
		_, err := r.store.Client().TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{ConditionCheck: &types.ConditionCheck{
					TableName: aws.String(r.store.TableName()),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: userPK(occ.OwnerID)},
						"SK": &types.AttributeValueMemberS{Value: sessionSK(occ.SessionID)},
					},
					ConditionExpression: aws.String("attribute_exists(PK)"),
				}},
				{Put: &types.Put{
					TableName: aws.String(r.store.TableName()),
					Item:      av,
				}},
			},
		})
		return err
	})
	if err != nil && isConditionalFailure(err) {
		return apperrors.ErrSessionNotFound(occ.SessionID)
	}
	return err
}

// OccurrencesByOwner loads a user's full occurrence history via GSI1
func (r *ElementRepository) OccurrencesByOwner(ctx context.Context, ownerID string) ([]graph.Occurrence, error) {
	items, err := r.queryIndexPartition(ctx, "OccurrencesByOwner", fmt.Sprintf("USEROCC#%s", ownerID))
	if err != nil {
		return nil, err
	}
	return r.toOccurrences(items), nil
}

// OccurrencesBySession returns the occurrence edges of one session
func (r *ElementRepository) OccurrencesBySession(ctx context.Context, sessionID string) ([]graph.Occurrence, error) {
	items, err := r.queryPartitionPrefix(ctx, "OccurrencesBySession", fmt.Sprintf("SESSION#%s", sessionID), "OCC#")
	if err != nil {
		return nil, err
	}
	return r.toOccurrences(items), nil
}

func (r *ElementRepository) toOccurrences(items []map[string]types.AttributeValue) []graph.Occurrence {
	occs := make([]graph.Occurrence, 0, len(items))
	for _, raw := range items {
		var item occurrenceItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal occurrence item", zap.Error(err))
			continue
		}
		ts, _ := time.Parse(time.RFC3339Nano, item.Timestamp)
		occs = append(occs, graph.Occurrence{
			SessionID:  item.SessionID,
			ElementID:  item.ElementID,
			OwnerID:    item.OwnerID,
			Kind:       graph.ElementKind(item.Kind),
			Name:       item.Name,
			Intensity:  item.Intensity,
			Valence:    item.Valence,
			Context:    item.Context,
			Status:     item.Status,
			Confidence: item.Confidence,
			Timestamp:  ts,
			ModifiedBy: item.ModifiedBy,
		})
	}
	return occs
}

// SaveInsightLink merges a RELATES_TO_INSIGHT edge
func (r *ElementRepository) SaveInsightLink(ctx context.Context, link graph.InsightLink) error {
	av, err := attributevalue.MarshalMap(insightLinkItem{
		PK:         fmt.Sprintf("INSIGHT#%s", link.SourceID),
		SK:         fmt.Sprintf("LINK#%s", link.TargetID),
		GSI1PK:     fmt.Sprintf("USERLINK#%s", link.OwnerID),
		GSI1SK:     fmt.Sprintf("LINK#%s#%s", link.SourceID, link.TargetID),
		EntityType: "RELATES_TO_INSIGHT",
		SourceID:   link.SourceID,
		TargetID:   link.TargetID,
		OwnerID:    link.OwnerID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal insight link")
	}
	return r.store.do(ctx, "SaveInsightLink", func(ctx context.Context) error {
		_, err := r.store.Client().PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(r.store.TableName()),
			Item:      av,
		})
		return err
	})
}

// InsightLinks returns every RELATES_TO_INSIGHT edge of a user via GSI1
func (r *ElementRepository) InsightLinks(ctx context.Context, ownerID string) ([]graph.InsightLink, error) {
	items, err := r.queryIndexPartition(ctx, "InsightLinks", fmt.Sprintf("USERLINK#%s", ownerID))
	if err != nil {
		return nil, err
	}

	links := make([]graph.InsightLink, 0, len(items))
	for _, raw := range items {
		var item insightLinkItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal insight link item", zap.Error(err))
			continue
		}
		created, _ := time.Parse(time.RFC3339Nano, item.CreatedAt)
		links = append(links, graph.InsightLink{
			SourceID:  item.SourceID,
			TargetID:  item.TargetID,
			OwnerID:   item.OwnerID,
			CreatedAt: created,
		})
	}
	return links, nil
}

// DeleteByOwner removes every element node of the user plus the edge
// partitions hanging off them (topic links, insight links). Occurrence edges
// live in session partitions and are removed by session deletion.
func (r *ElementRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	elements, err := r.ListByOwner(ctx, ownerID, "")
	if err != nil {
		return err
	}

	keys := make([]map[string]types.AttributeValue, 0, len(elements))
	for _, elem := range elements {
		keys = append(keys, map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(ownerID)},
			"SK": &types.AttributeValueMemberS{Value: elementSK(elem.Kind, elem.Name)},
		})

		// Topic link partition of this element.
		linkItems, err := r.queryPartitionPrefix(ctx, "ElementTopicLinks", fmt.Sprintf("ELEM#%s", elem.ID), "TOPIC#")
		if err != nil {
			return err
		}
		for _, item := range linkItems {
			keys = append(keys, map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]})
		}

		if elem.Kind == graph.KindInsight {
			linkItems, err := r.queryPartitionPrefix(ctx, "ElementInsightLinks", fmt.Sprintf("INSIGHT#%s", elem.ID), "LINK#")
			if err != nil {
				return err
			}
			for _, item := range linkItems {
				keys = append(keys, map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]})
			}
		}
	}

	return r.batchDelete(ctx, keys)
}

func (r *ElementRepository) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	return r.store.do(ctx, "BatchDeleteElements", func(ctx context.Context) error {
		for start := 0; start < len(keys); start += 25 {
			end := start + 25
			if end > len(keys) {
				end = len(keys)
			}
			writes := make([]types.WriteRequest, 0, end-start)
			for _, key := range keys[start:end] {
				writes = append(writes, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
			}
			if _, err := r.store.Client().BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.store.TableName(): writes},
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// queryPartitionPrefix pages one partition filtered by SK prefix.
func (r *ElementRepository) queryPartitionPrefix(ctx context.Context, op, pk, prefix string) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("PK").Equal(expression.Value(pk)).
			And(expression.Key("SK").BeginsWith(prefix))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build query expression")
	}

	var items []map[string]types.AttributeValue
	err = r.store.do(ctx, op, func(ctx context.Context) error {
		var startKey map[string]types.AttributeValue
		for {
			out, err := r.store.Client().Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(r.store.TableName()),
				KeyConditionExpression:    expr.KeyCondition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ExclusiveStartKey:         startKey,
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

// queryIndexPartition pages one GSI1 partition.
func (r *ElementRepository) queryIndexPartition(ctx context.Context, op, gsi1pk string) ([]map[string]types.AttributeValue, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("GSI1PK").Equal(expression.Value(gsi1pk))).
		Build()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build query expression")
	}

	var items []map[string]types.AttributeValue
	err = r.store.do(ctx, op, func(ctx context.Context) error {
		var startKey map[string]types.AttributeValue
		for {
			out, err := r.store.Client().Query(ctx, &dynamodb.QueryInput{
				TableName:                 aws.String(r.store.TableName()),
				IndexName:                 aws.String(GSI1IndexName),
				KeyConditionExpression:    expr.KeyCondition(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				ExclusiveStartKey:         startKey,
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
