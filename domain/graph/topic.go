package graph

import "time"

// Topic is a globally shared label. Identity is the normalized name, not the
// id, so concurrent creation across users converges on one node.
type Topic struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultTopicRelevance is used when the extractor supplies no relevance.
const DefaultTopicRelevance = 0.8

// TopicLink is a RELATED_TO edge from an element to a topic.
type TopicLink struct {
	ElementID string    `json:"element_id"`
	OwnerID   string    `json:"owner_id"`
	TopicName string    `json:"topic_name"`
	Relevance float64   `json:"relevance"`
	CreatedAt time.Time `json:"created_at"`
}

// Taxonomy levels.
const (
	TaxonomyMain = "main"
	TaxonomySub  = "sub"
)

// Taxonomy is one entry of the topic taxonomy tree.
type Taxonomy struct {
	Name        string `json:"name"`
	Level       string `json:"level"`
	ParentName  string `json:"parent_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Classification is a CLASSIFIED_AS edge from a topic into the taxonomy.
type Classification struct {
	TopicName    string    `json:"topic_name"`
	TaxonomyName string    `json:"taxonomy_name"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"created_at"`
}

// InsightLink is a RELATES_TO_INSIGHT edge between two insight elements,
// pointing from the earlier insight to the later one it led to. The
// auto-linker writes these during ingestion; the cascade pipeline reads them.
type InsightLink struct {
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
