package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
)

// Auto-linking limits. Insight corpora per user are small, so a full scan per
// new insight is fine.
const (
	linkSimilarityThreshold = 0.3
	maxLinksPerInsight      = 10
)

// InsightLinker connects a newly ingested insight to the user's earlier
// insights by text similarity, producing the RELATES_TO_INSIGHT edges the
// cascade analysis walks. Links point old -> new: the earlier insight leads
// to the later one.
type InsightLinker struct {
	elements ports.ElementRepository
	logger   *zap.Logger
}

// NewInsightLinker creates a new insight linker
func NewInsightLinker(elements ports.ElementRepository, logger *zap.Logger) *InsightLinker {
	return &InsightLinker{elements: elements, logger: logger}
}

// LinkNewInsight compares the new insight against the user's existing ones
// and saves a link for each sufficiently similar pair. Returns the IDs of the
// linked source insights.
func (s *InsightLinker) LinkNewInsight(ctx context.Context, ownerID, insightID string, text string, topics []string) ([]string, error) {
	if ownerID == "" || insightID == "" {
		return nil, nil
	}

	existing, err := s.elements.ListByOwner(ctx, ownerID, graph.KindInsight)
	if err != nil {
		return nil, err
	}
	if len(existing) <= 1 {
		return nil, nil
	}

	sourceWords := extractWords(text)
	for _, topic := range topics {
		for w := range extractWords(topic) {
			sourceWords[w] = true
		}
	}
	if len(sourceWords) == 0 {
		return nil, nil
	}

	type candidate struct {
		insight    *graph.Element
		similarity float64
	}

	candidates := make([]candidate, 0, len(existing))
	for _, target := range existing {
		if target.ID == insightID {
			continue
		}
		similarity := wordOverlap(sourceWords, extractWords(target.Name+" "+target.Fields.Text+" "+target.Fields.Context))
		if similarity > linkSimilarityThreshold {
			candidates = append(candidates, candidate{insight: target, similarity: similarity})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].insight.ID < candidates[j].insight.ID
	})
	if len(candidates) > maxLinksPerInsight {
		candidates = candidates[:maxLinksPerInsight]
	}

	var linked []string
	for _, c := range candidates {
		link := graph.InsightLink{
			SourceID: c.insight.ID,
			TargetID: insightID,
			OwnerID:  ownerID,
		}
		if err := s.elements.SaveInsightLink(ctx, link); err != nil {
			s.logger.Warn("Failed to save insight link",
				zap.String("source", c.insight.ID),
				zap.String("target", insightID),
				zap.Error(err),
			)
			continue
		}
		linked = append(linked, c.insight.ID)

		s.logger.Debug("Insight link created",
			zap.String("source", c.insight.ID),
			zap.String("target", insightID),
			zap.Float64("similarity", c.similarity),
		)
	}
	return linked, nil
}

// wordOverlap scores how much of the source vocabulary the target contains.
func wordOverlap(source, target map[string]bool) float64 {
	if len(source) == 0 || len(target) == 0 {
		return 0
	}
	matches := 0
	for w := range source {
		if target[w] {
			matches++
		}
	}
	similarity := float64(matches) / float64(len(source))
	if similarity > 1.0 {
		similarity = 1.0
	}
	return similarity
}

// extractWords tokenizes text into lowercase words for fast lookup
func extractWords(text string) map[string]bool {
	words := make(map[string]bool)

	text = strings.ToLower(text)
	tokens := strings.Fields(text)

	for _, token := range tokens {
		cleaned := strings.Trim(token, ".,!?;:\"'()[]{}#@$%^&*+=<>/\\|`~")
		if len(cleaned) > 0 {
			words[cleaned] = true
		}
	}

	return words
}
