package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
)

// DefaultTaxonomyBucket receives topics the heuristic matcher cannot place.
const DefaultTaxonomyBucket = "Personal Development"

// Heuristic classification confidences. Exact and default-bucket matches are
// certain by definition; substring containment is approximate.
const (
	exactMatchConfidence = 1.0
	mainMatchConfidence  = 0.8
	subMatchConfidence   = 0.6
)

// TopicService merges topics, links them to elements and classifies them into
// the taxonomy. The matcher is substring-based and approximate, not
// authoritative; a stronger matcher can replace it behind the same contract.
type TopicService struct {
	topics        ports.TopicRepository
	cache         ports.Cache
	defaultBucket string
	logger        *zap.Logger
}

// taxonomyCacheKey caches the taxonomy tree, which changes rarely but is read
// on every classification.
const (
	taxonomyCacheKey = "taxonomies"
	taxonomyCacheTTL = 300
)

// NewTopicService creates a new topic service. The cache is optional.
func NewTopicService(topics ports.TopicRepository, cache ports.Cache, logger *zap.Logger) *TopicService {
	return &TopicService{
		topics:        topics,
		cache:         cache,
		defaultBucket: DefaultTaxonomyBucket,
		logger:        logger,
	}
}

// LinkTopic merges the topic by name, merges the RELATED_TO edge and
// classifies the topic. Classification failure is logged, not propagated:
// the link itself is the durable part.
func (t *TopicService) LinkTopic(ctx context.Context, ownerID, elementID, topicName string, relevance float64) error {
	name := graph.NormalizeName(topicName)
	if name == "" {
		return nil
	}

	topic, err := t.topics.Merge(ctx, name)
	if err != nil {
		return err
	}

	link := graph.TopicLink{
		ElementID: elementID,
		OwnerID:   ownerID,
		TopicName: topic.Name,
		Relevance: graph.Clamp01(relevance),
		CreatedAt: time.Now().UTC(),
	}
	if err := t.topics.Link(ctx, link); err != nil {
		return err
	}

	if _, err := t.Classify(ctx, topic.Name, ""); err != nil {
		t.logger.Warn("Topic classification failed",
			zap.String("topic", topic.Name),
			zap.Error(err),
		)
	}
	return nil
}

// Classify places a topic into the taxonomy. With an explicit taxonomyName it
// links directly at confidence 1.0. Without one it matches heuristically:
// exact name match wins; otherwise substring containment, preferring
// top-level entries over sub-entries; otherwise the default bucket.
func (t *TopicService) Classify(ctx context.Context, topicName, taxonomyName string) (*graph.Classification, error) {
	if existing, err := t.topics.Classification(ctx, topicName); err == nil && existing != nil {
		return existing, nil
	}

	var c graph.Classification
	if taxonomyName != "" {
		c = graph.Classification{
			TopicName:    topicName,
			TaxonomyName: taxonomyName,
			Confidence:   exactMatchConfidence,
		}
	} else {
		taxonomies, err := t.Taxonomies(ctx)
		if err != nil {
			return nil, err
		}
		c = t.match(topicName, taxonomies)
	}
	c.CreatedAt = time.Now().UTC()
	c.Confidence = graph.Clamp01(c.Confidence)

	if err := t.topics.Classify(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *TopicService) match(topicName string, taxonomies []graph.Taxonomy) graph.Classification {
	lower := strings.ToLower(topicName)

	for _, tax := range taxonomies {
		if strings.EqualFold(tax.Name, topicName) {
			return graph.Classification{TopicName: topicName, TaxonomyName: tax.Name, Confidence: exactMatchConfidence}
		}
	}

	// Substring containment in either direction, top-level entries first.
	var mainHit, subHit *graph.Taxonomy
	for i := range taxonomies {
		tax := taxonomies[i]
		taxLower := strings.ToLower(tax.Name)
		if !strings.Contains(lower, taxLower) && !strings.Contains(taxLower, lower) {
			continue
		}
		if tax.Level == graph.TaxonomyMain && mainHit == nil {
			mainHit = &tax
		} else if tax.Level == graph.TaxonomySub && subHit == nil {
			subHit = &tax
		}
	}
	if mainHit != nil {
		return graph.Classification{TopicName: topicName, TaxonomyName: mainHit.Name, Confidence: mainMatchConfidence}
	}
	if subHit != nil {
		return graph.Classification{TopicName: topicName, TaxonomyName: subHit.Name, Confidence: subMatchConfidence}
	}

	return graph.Classification{TopicName: topicName, TaxonomyName: t.defaultBucket, Confidence: exactMatchConfidence}
}

// UserTopic summarizes one topic's usage by a user.
type UserTopic struct {
	Name         string    `json:"name"`
	ElementCount int       `json:"element_count"`
	LastUsed     time.Time `json:"last_used"`
}

// UserTopics lists the topics linked from a user's elements, most used first.
func (t *TopicService) UserTopics(ctx context.Context, ownerID string) ([]UserTopic, error) {
	links, err := t.topics.LinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*UserTopic)
	for _, link := range links {
		ut, ok := byName[link.TopicName]
		if !ok {
			ut = &UserTopic{Name: link.TopicName}
			byName[link.TopicName] = ut
		}
		ut.ElementCount++
		if link.CreatedAt.After(ut.LastUsed) {
			ut.LastUsed = link.CreatedAt
		}
	}

	out := make([]UserTopic, 0, len(byName))
	for _, ut := range byName {
		out = append(out, *ut)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ElementCount != out[j].ElementCount {
			return out[i].ElementCount > out[j].ElementCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Taxonomies returns the taxonomy tree entries, cached for a few minutes.
func (t *TopicService) Taxonomies(ctx context.Context) ([]graph.Taxonomy, error) {
	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, taxonomyCacheKey); ok {
			if taxonomies, ok := cached.([]graph.Taxonomy); ok {
				return taxonomies, nil
			}
		}
	}

	taxonomies, err := t.topics.ListTaxonomies(ctx)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		if err := t.cache.Set(ctx, taxonomyCacheKey, taxonomies, taxonomyCacheTTL); err != nil {
			t.logger.Warn("Failed to cache taxonomies", zap.Error(err))
		}
	}
	return taxonomies, nil
}
