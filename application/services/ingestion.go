package services

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/application/ports"
	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

// ExtractorRecord is one flat element record produced by the external
// extractor. Only the fields matching the record's kind are read.
type ExtractorRecord struct {
	Name        string     `json:"name" validate:"required"`
	Intensity   float64    `json:"intensity,omitempty" validate:"gte=0,lte=10"`
	Valence     float64    `json:"valence,omitempty" validate:"gte=-1,lte=1"`
	Context     string     `json:"context,omitempty"`
	Description string     `json:"description,omitempty"`
	Impact      string     `json:"impact,omitempty"`
	Text        string     `json:"text,omitempty"`
	Severity    string     `json:"severity,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     string     `json:"due_date,omitempty"`
	Confidence  float64    `json:"confidence,omitempty" validate:"gte=0,lte=1"`
	Topic       string     `json:"topic,omitempty"`
	Topics      []string   `json:"topics,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// AllTopics merges the single topic and topic-list fields.
func (r ExtractorRecord) AllTopics() []string {
	topics := make([]string, 0, len(r.Topics)+1)
	if r.Topic != "" {
		topics = append(topics, r.Topic)
	}
	topics = append(topics, r.Topics...)
	return topics
}

// ElementBatch is the extractor's output for one session, keyed by kind.
type ElementBatch struct {
	Emotions    []ExtractorRecord `json:"emotions,omitempty"`
	Beliefs     []ExtractorRecord `json:"beliefs,omitempty"`
	Insights    []ExtractorRecord `json:"insights,omitempty"`
	Challenges  []ExtractorRecord `json:"challenges,omitempty"`
	ActionItems []ExtractorRecord `json:"action_items,omitempty"`
}

// ByKind returns the records grouped per kind in ingestion order.
func (b ElementBatch) ByKind() map[graph.ElementKind][]ExtractorRecord {
	return map[graph.ElementKind][]ExtractorRecord{
		graph.KindEmotion:    b.Emotions,
		graph.KindBelief:     b.Beliefs,
		graph.KindInsight:    b.Insights,
		graph.KindChallenge:  b.Challenges,
		graph.KindActionItem: b.ActionItems,
	}
}

// Size returns the total number of records in the batch.
func (b ElementBatch) Size() int {
	return len(b.Emotions) + len(b.Beliefs) + len(b.Insights) + len(b.Challenges) + len(b.ActionItems)
}

// IngestionService persists an extracted element batch into the graph:
// upsert the element node, attach the occurrence edge, link topics, then
// advance the session's analysis status. Element-level failures are
// best-effort: logged, accumulated and reported, never aborting the batch.
type IngestionService struct {
	sessions ports.SessionRepository
	elements ports.ElementRepository
	topics   *TopicService
	linker   *InsightLinker
	validate *validator.Validate
	logger   *zap.Logger
}

// NewIngestionService creates a new ingestion service. The linker is
// optional; without it insights are stored unlinked.
func NewIngestionService(
	sessions ports.SessionRepository,
	elements ports.ElementRepository,
	topics *TopicService,
	linker *InsightLinker,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		sessions: sessions,
		elements: elements,
		topics:   topics,
		linker:   linker,
		validate: validator.New(),
		logger:   logger,
	}
}

// Ingest writes the batch for one session. This is the only writer of the
// session's analysis_status. A second call on an already-completed session is
// rejected unless reanalyze is set, since re-ingestion would double the
// occurrence edges.
//
// Failure policy: if the store becomes unavailable before anything was
// written, the error propagates and analysis_status stays untouched so the
// caller can retry. Otherwise each failing element is skipped and collected;
// a non-nil *PartialIngestionError reports them after the status update.
func (s *IngestionService) Ingest(ctx context.Context, ownerID, sessionID string, batch ElementBatch, reanalyze bool) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.OwnerID != ownerID {
		return errors.ErrSessionNotFound(sessionID)
	}
	if session.AnalysisStatus == graph.AnalysisCompleted && !reanalyze {
		return errors.ErrSessionAlreadyAnalyzed(sessionID)
	}

	var (
		failed  []errors.FailedElement
		written int
	)

	for _, kind := range graph.Kinds() {
		for _, record := range batch.ByKind()[kind] {
			if err := s.ingestOne(ctx, session, kind, record); err != nil {
				if errors.IsUnavailable(err) && written == 0 {
					// Nothing persisted yet: fatal, retryable as a whole.
					return err
				}
				s.logger.Warn("Element ingestion failed, continuing with batch",
					zap.String("session_id", sessionID),
					zap.String("kind", string(kind)),
					zap.String("name", record.Name),
					zap.Error(err),
				)
				failed = append(failed, errors.FailedElement{
					Kind:   string(kind),
					Name:   record.Name,
					Reason: err.Error(),
				})
				continue
			}
			written++
		}
	}

	status := graph.AnalysisCompleted
	if batch.Size() > 0 && written == 0 {
		status = graph.AnalysisFailed
	}
	now := time.Now().UTC()
	if err := s.sessions.MarkAnalyzed(ctx, ownerID, sessionID, status, now); err != nil {
		return err
	}

	s.logger.Info("Session batch ingested",
		zap.String("session_id", sessionID),
		zap.Int("written", written),
		zap.Int("failed", len(failed)),
		zap.String("analysis_status", string(status)),
	)

	if len(failed) > 0 {
		return errors.NewPartialIngestionError(sessionID, failed)
	}
	return nil
}

func (s *IngestionService) ingestOne(ctx context.Context, session *graph.Session, kind graph.ElementKind, record ExtractorRecord) error {
	if err := s.validate.Struct(record); err != nil {
		return errors.NewValidationError(err.Error())
	}
	name := graph.NormalizeName(record.Name)
	if name == "" {
		return errors.ErrEmptyElementName()
	}

	elementID, err := s.elements.Upsert(ctx, session.OwnerID, kind, name, fieldsFromRecord(kind, record))
	if err != nil {
		return err
	}

	ts := session.Date
	if record.Timestamp != nil {
		ts = *record.Timestamp
	}
	occ := graph.Occurrence{
		SessionID:  session.ID,
		ElementID:  elementID,
		OwnerID:    session.OwnerID,
		Kind:       kind,
		Name:       name,
		Intensity:  record.Intensity,
		Valence:    record.Valence,
		Context:    record.Context,
		Status:     record.Status,
		Confidence: graph.Clamp01(record.Confidence),
		Timestamp:  ts.UTC(),
		ModifiedBy: "ingestion",
	}
	if err := s.elements.AttachToSession(ctx, occ); err != nil {
		return err
	}

	for _, topic := range record.AllTopics() {
		if err := s.topics.LinkTopic(ctx, session.OwnerID, elementID, topic, graph.DefaultTopicRelevance); err != nil {
			return err
		}
	}

	// Auto-link insights into the cascade graph. Best effort: the insight
	// itself is already durable.
	if kind == graph.KindInsight && s.linker != nil {
		text := name + " " + record.Text + " " + record.Context
		if _, err := s.linker.LinkNewInsight(ctx, session.OwnerID, elementID, text, record.AllTopics()); err != nil {
			s.logger.Warn("Insight auto-linking failed",
				zap.String("insight_id", elementID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func fieldsFromRecord(kind graph.ElementKind, r ExtractorRecord) graph.ElementFields {
	switch kind {
	case graph.KindEmotion:
		return graph.ElementFields{Intensity: r.Intensity, Context: r.Context}
	case graph.KindBelief:
		return graph.ElementFields{Description: r.Description, Impact: r.Impact}
	case graph.KindInsight:
		return graph.ElementFields{Text: r.Text, Context: r.Context}
	case graph.KindChallenge:
		return graph.ElementFields{Impact: r.Impact, Severity: r.Severity, Status: r.Status}
	case graph.KindActionItem:
		return graph.ElementFields{Description: r.Description, Priority: r.Priority, DueDate: r.DueDate, Status: r.Status}
	default:
		return graph.ElementFields{}
	}
}
