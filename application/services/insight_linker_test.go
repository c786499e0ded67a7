package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imanima/InsightJourney-backend-sub000/domain/graph"
)

func seedInsight(t *testing.T, elements *memElements, name, text string) string {
	t.Helper()
	id, err := elements.Upsert(context.Background(), "u1", graph.KindInsight, name, graph.ElementFields{Text: text})
	require.NoError(t, err)
	return id
}

func TestLinkNewInsightBySimilarity(t *testing.T) {
	store := newMemStore()
	elements := &memElements{s: store}
	linker := NewInsightLinker(elements, zap.NewNop())
	ctx := context.Background()

	similar := seedInsight(t, elements, "morning routine", "a steady morning routine lowers my anxiety")
	seedInsight(t, elements, "sibling rivalry", "old rivalry with my brother shapes how I compete")
	newID := seedInsight(t, elements, "routine and anxiety", "my anxiety drops when the routine is steady")

	linked, err := linker.LinkNewInsight(ctx, "u1", newID, "routine and anxiety my anxiety drops when the routine is steady", nil)
	require.NoError(t, err)
	require.Equal(t, []string{similar}, linked, "only the similar insight links")

	links, err := elements.InsightLinks(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, similar, links[0].SourceID)
	assert.Equal(t, newID, links[0].TargetID)
}

func TestLinkNewInsightNoExistingInsights(t *testing.T) {
	store := newMemStore()
	elements := &memElements{s: store}
	linker := NewInsightLinker(elements, zap.NewNop())

	id := seedInsight(t, elements, "first insight", "nothing to link against")

	linked, err := linker.LinkNewInsight(context.Background(), "u1", id, "nothing to link against", nil)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestLinkNewInsightCapsLinkCount(t *testing.T) {
	store := newMemStore()
	elements := &memElements{s: store}
	linker := NewInsightLinker(elements, zap.NewNop())

	for i := 0; i < 15; i++ {
		seedInsight(t, elements, fmt.Sprintf("insight %02d", i), "sleep quality drives my mood")
	}
	newID := seedInsight(t, elements, "the pattern", "sleep quality drives my mood")

	linked, err := linker.LinkNewInsight(context.Background(), "u1", newID, "sleep quality drives my mood", nil)
	require.NoError(t, err)
	assert.Len(t, linked, maxLinksPerInsight)
}

func TestLinkNewInsightTopicsCountTowardOverlap(t *testing.T) {
	store := newMemStore()
	elements := &memElements{s: store}
	linker := NewInsightLinker(elements, zap.NewNop())

	target := seedInsight(t, elements, "work", "work")
	seedInsight(t, elements, "unrelated", "completely different subject entirely")
	newID := seedInsight(t, elements, "progress", "")

	linked, err := linker.LinkNewInsight(context.Background(), "u1", newID, "progress", []string{"work"})
	require.NoError(t, err)
	assert.Contains(t, linked, target)
}

func TestWordOverlap(t *testing.T) {
	source := extractWords("Anxiety spikes before meetings!")
	target := extractWords("meetings trigger my anxiety")

	// 2 of 4 source words appear in the target.
	assert.InDelta(t, 0.5, wordOverlap(source, target), 1e-9)
	assert.Zero(t, wordOverlap(nil, target))
	assert.Zero(t, wordOverlap(source, nil))
}

func TestExtractWordsStripsPunctuation(t *testing.T) {
	words := extractWords("Hello, (world)! #growth")
	assert.True(t, words["hello"])
	assert.True(t, words["world"])
	assert.True(t, words["growth"])
	assert.Len(t, words, 3)
}
