package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextEmpty(t *testing.T) {
	chunks := ChunkText("", 1000, 200)
	assert.Empty(t, chunks)
}

func TestChunkTextSingleSentence(t *testing.T) {
	chunks := ChunkText("This is a short sentence.", 1000, 200)
	require.Len(t, chunks, 1)

	assert.Equal(t, "This is a short sentence.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].TotalChunks)
	assert.Equal(t, 0, chunks[0].StartOffset)
}

func TestChunkTextNoTerminator(t *testing.T) {
	// Text without sentence punctuation still produces one chunk.
	chunks := ChunkText("no punctuation here at all", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "no punctuation here at all", chunks[0].Content)
}

func TestChunkTextSplitsAtBudget(t *testing.T) {
	sentence := strings.Repeat("word ", 19) + "word."
	text := strings.Repeat(sentence, 10)

	chunks := ChunkText(text, 200, 50)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, len(chunks), c.TotalChunks)
		assert.NotEmpty(t, c.Content)
		assert.Equal(t, c.Content, strings.TrimSpace(c.Content))
	}
}

func TestChunkTextOversizedSentence(t *testing.T) {
	// A single sentence longer than the budget is emitted whole.
	long := strings.Repeat("a", 500) + "."
	chunks := ChunkText("Short one."+long, 100, 20)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Short one.", chunks[0].Content)
	assert.Equal(t, long, chunks[1].Content)
}

func TestChunkTextOverlapRetreatsStart(t *testing.T) {
	first := strings.Repeat("x", 90) + "."
	second := strings.Repeat("y", 90) + "."
	chunks := ChunkText(first+second, 100, 20)

	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].StartOffset)
	// Second chunk's declared start retreats by the overlap.
	assert.Equal(t, len(first)-20, chunks[1].StartOffset)
}

func TestChunkTextDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)
	a := ChunkText(text, 300, 60)
	b := ChunkText(text, 300, 60)
	assert.Equal(t, a, b)
}

func TestChunkTextDefaults(t *testing.T) {
	text := "One. Two. Three."
	assert.Equal(t, ChunkText(text, 0, -1), ChunkText(text, DefaultChunkSize, DefaultChunkOverlap))
}
