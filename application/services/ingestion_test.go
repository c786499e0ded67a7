package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
	"github.com/imanima/InsightJourney-backend-sub000/pkg/errors"
)

type ingestionFixture struct {
	store    *memStore
	sessions *memSessions
	elements *memElements
	service  *IngestionService
	session  *graph.Session
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()
	store := newMemStore()
	sessions := &memSessions{s: store}
	elements := &memElements{s: store}
	topics := NewTopicService(&memTopics{s: store}, nil, zap.NewNop())
	linker := NewInsightLinker(elements, zap.NewNop())
	service := NewIngestionService(sessions, elements, topics, linker, zap.NewNop())

	seq := NewSessionSequencer(sessions, &memLocker{}, zap.NewNop())
	sess, err := seq.CreateSession(context.Background(), "u1", graph.NewSessionFields{Title: "Session 1"})
	require.NoError(t, err)

	return &ingestionFixture{store: store, sessions: sessions, elements: elements, service: service, session: sess}
}

func TestIngestWritesElementsAndCompletes(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	batch := ElementBatch{
		Emotions: []ExtractorRecord{
			{Name: "anxiety", Intensity: 7.5, Topic: "work"},
		},
		Insights: []ExtractorRecord{
			{Name: "boundaries matter", Text: "saying no at work protects my energy"},
		},
		ActionItems: []ExtractorRecord{
			{Name: "schedule walk", Status: graph.ActionNotStarted, Priority: "high"},
		},
	}

	require.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, batch, false))

	stored := f.store.sessions[f.session.ID]
	assert.Equal(t, graph.AnalysisCompleted, stored.AnalysisStatus)
	require.NotNil(t, stored.AnalysisTimestamp)

	occs, err := f.elements.OccurrencesBySession(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Len(t, occs, 3)

	// The emotion's topic was merged, linked and classified.
	assert.Contains(t, f.store.topics, "work")
	require.Contains(t, f.store.classifications, "work")
	assert.Equal(t, DefaultTaxonomyBucket, f.store.classifications["work"].TaxonomyName)
}

func TestIngestMergesRepeatedElement(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	batch := ElementBatch{Emotions: []ExtractorRecord{{Name: "Anxiety", Intensity: 7}}}
	require.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, batch, false))

	batch = ElementBatch{Emotions: []ExtractorRecord{{Name: "anxiety", Intensity: 4}}}
	require.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, batch, true))

	elems, err := f.elements.ListByOwner(ctx, "u1", graph.KindEmotion)
	require.NoError(t, err)
	require.Len(t, elems, 1, "same named emotion merges into one node")
	assert.Equal(t, 4.0, elems[0].Fields.Intensity, "fields refresh on re-upsert")

	occs, err := f.elements.OccurrencesBySession(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Len(t, occs, 2, "each ingestion adds its own occurrence edge")
}

func TestIngestPartialFailure(t *testing.T) {
	f := newIngestionFixture(t)
	f.elements.failUpsert = "doom spiral"
	ctx := context.Background()

	batch := ElementBatch{
		Emotions: []ExtractorRecord{
			{Name: "calm", Intensity: 3},
			{Name: "doom spiral", Intensity: 9},
		},
	}

	err := f.service.Ingest(ctx, "u1", f.session.ID, batch, false)
	require.Error(t, err)
	partial := errors.GetPartialIngestion(err)
	require.NotNil(t, partial, "expected a partial ingestion error, got %v", err)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "doom spiral", partial.Failed[0].Name)
	assert.Equal(t, string(graph.KindEmotion), partial.Failed[0].Kind)

	// The surviving element is stored and the session still completes.
	occs, _ := f.elements.OccurrencesBySession(ctx, f.session.ID)
	assert.Len(t, occs, 1)
	assert.Equal(t, graph.AnalysisCompleted, f.store.sessions[f.session.ID].AnalysisStatus)
}

func TestIngestAllFailedMarksFailed(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	batch := ElementBatch{Emotions: []ExtractorRecord{{Name: "   "}}}

	err := f.service.Ingest(ctx, "u1", f.session.ID, batch, false)
	require.Error(t, err)
	require.NotNil(t, errors.GetPartialIngestion(err))
	assert.Equal(t, graph.AnalysisFailed, f.store.sessions[f.session.ID].AnalysisStatus)
}

func TestIngestEmptyBatchCompletes(t *testing.T) {
	f := newIngestionFixture(t)

	require.NoError(t, f.service.Ingest(context.Background(), "u1", f.session.ID, ElementBatch{}, false))
	assert.Equal(t, graph.AnalysisCompleted, f.store.sessions[f.session.ID].AnalysisStatus)
}

func TestIngestRejectsSecondRunWithoutReanalyze(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, ElementBatch{}, false))

	err := f.service.Ingest(ctx, "u1", f.session.ID, ElementBatch{}, false)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	assert.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, ElementBatch{}, true))
}

func TestIngestStoreUnavailableBeforeFirstWrite(t *testing.T) {
	f := newIngestionFixture(t)
	f.elements.failUpsert = "anxiety"
	f.elements.upsertErr = errors.NewStoreUnavailableError("UpsertElement", nil)
	ctx := context.Background()

	batch := ElementBatch{
		Emotions: []ExtractorRecord{
			{Name: "anxiety", Intensity: 7},
			{Name: "calm", Intensity: 2},
		},
	}

	err := f.service.Ingest(ctx, "u1", f.session.ID, batch, false)
	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err), "fatal store error propagates whole")
	assert.Equal(t, graph.AnalysisPending, f.store.sessions[f.session.ID].AnalysisStatus,
		"analysis status untouched so the caller can retry")
}

func TestIngestChecksSessionOwner(t *testing.T) {
	f := newIngestionFixture(t)

	err := f.service.Ingest(context.Background(), "intruder", f.session.ID, ElementBatch{}, false)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestIngestAutoLinksSimilarInsights(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()

	first := ElementBatch{Insights: []ExtractorRecord{
		{Name: "work stress", Text: "my work stress comes from unclear boundaries"},
	}}
	require.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, first, false))

	second := ElementBatch{Insights: []ExtractorRecord{
		{Name: "boundaries at work", Text: "setting boundaries reduces my stress"},
	}}
	require.NoError(t, f.service.Ingest(ctx, "u1", f.session.ID, second, true))

	links, err := f.elements.InsightLinks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, links, 1)

	source, err := f.elements.GetByID(ctx, links[0].SourceID)
	require.NoError(t, err)
	assert.Equal(t, "work stress", source.Name, "the link points from the earlier insight to the new one")
}
