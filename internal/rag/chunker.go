// Package rag implements the knowledge-retrieval pipeline: document
// chunking, embedding generation and vector similarity lookup.
package rag

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the character budget per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the declared-offset retreat between chunks.
	DefaultChunkOverlap = 200
)

// Chunk is a bounded-length slice of document text prepared for embedding.
// Chunks are ephemeral: produced and consumed within one ingestion run.
type Chunk struct {
	Content     string
	Index       int
	TotalChunks int
	StartOffset int
	EndOffset   int
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

// splitSentences splits text into sentence-like units terminated by
// '.', '!' or '?'. Text with no terminator comes back as a single unit.
func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	if matches == nil {
		matches = []string{text}
	}
	sentences := make([]string, len(matches))
	for i, s := range matches {
		sentences[i] = strings.TrimSpace(s)
	}
	return sentences
}

// ChunkText splits text into overlapping, bounded-size chunks. Sentences
// are greedily accumulated until adding the next one would exceed
// chunkSize; the next chunk's start offset retreats by overlap characters
// for retrieval continuity. A single sentence longer than chunkSize is
// emitted whole, never truncated. Output is fully determined by the
// inputs.
func ChunkText(text string, chunkSize, overlap int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}

	var chunks []Chunk
	sentences := splitSentences(text)

	var current string
	start := 0

	for _, sentence := range sentences {
		if len(current)+len(sentence) <= chunkSize {
			current += sentence
			continue
		}

		if current != "" {
			chunks = append(chunks, Chunk{
				Content:     strings.TrimSpace(current),
				Index:       len(chunks),
				StartOffset: start,
				EndOffset:   start + len(current),
			})
		}

		start += len(current) - overlap
		current = sentence
	}

	if current != "" {
		chunks = append(chunks, Chunk{
			Content:     strings.TrimSpace(current),
			Index:       len(chunks),
			StartOffset: start,
			EndOffset:   start + len(current),
		})
	}

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}

	return chunks
}
