package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/cricketbot/models"
)

func testDoc(content string) models.RawDocument {
	return models.RawDocument{
		Title:     "Cricket",
		Summary:   "Cricket is a bat-and-ball game.",
		SourceURL: "https://en.wikipedia.org/wiki/Cricket",
		Content:   content,
	}
}

func chunkContents(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func TestChunkDocument_LookBackOverlap(t *testing.T) {
	chunks := ChunkDocument(testDoc("abcdefghij"), 1, 4, 1)

	assert.Equal(t, []string{"abcd", "defgh", "hij"}, chunkContents(chunks))
	for i, c := range chunks {
		assert.Equal(t, i+1, c.ChunkIndex)
		assert.Equal(t, 1, c.DocIndex)
		assert.Equal(t, "Cricket", c.Metadata.Title)
		assert.Equal(t, "https://en.wikipedia.org/wiki/Cricket", c.Metadata.SourceURL)
	}
}

func TestChunkDocument_ShortTextIsOneChunk(t *testing.T) {
	chunks := ChunkDocument(testDoc("tiny"), 3, 800, 100)

	require.Len(t, chunks, 1)
	assert.Equal(t, "tiny", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].ChunkIndex)
	assert.Equal(t, 3, chunks[0].DocIndex)
}

func TestChunkDocument_ExactMultiple(t *testing.T) {
	chunks := ChunkDocument(testDoc("abcdefgh"), 1, 4, 2)
	assert.Equal(t, []string{"abcd", "cdefgh"}, chunkContents(chunks))
}

func TestChunkDocument_EmptyText(t *testing.T) {
	assert.Empty(t, ChunkDocument(testDoc(""), 1, 4, 1))
}

func TestChunkDocument_NonPositiveSize(t *testing.T) {
	assert.Nil(t, ChunkDocument(testDoc("abc"), 1, 0, 0))
}

func TestChunkDocument_NegativeOverlapIsZero(t *testing.T) {
	chunks := ChunkDocument(testDoc("abcdefghij"), 1, 4, -3)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunkContents(chunks))
}

func TestChunkDocument_OverlapNotSmallerThanSize(t *testing.T) {
	// The step stays at chunkSize, so the loop terminates and the look-back
	// is clamped at the start of the text.
	chunks := ChunkDocument(testDoc("abcdefghij"), 1, 3, 5)
	assert.Equal(t, []string{"abc", "abcdef", "bcdefghi", "efghij"}, chunkContents(chunks))
}

func TestChunkDocument_Properties(t *testing.T) {
	text := strings.Repeat("The Ashes is a Test cricket series. ", 97)
	cases := []struct{ size, overlap int }{
		{800, 100}, {100, 0}, {64, 63}, {1, 0}, {len(text), 10},
	}
	for _, tc := range cases {
		chunks := ChunkDocument(testDoc(text), 1, tc.size, tc.overlap)

		want := (len(text) + tc.size - 1) / tc.size
		require.Len(t, chunks, want, "size=%d overlap=%d", tc.size, tc.overlap)
		assert.Len(t, chunks[0].Content, min(tc.size, len(text)))

		prevStart := -1
		for i, c := range chunks {
			assert.LessOrEqual(t, len(c.Content), tc.size+tc.overlap)
			start := 0
			if i > 0 {
				start = max(i*tc.size-tc.overlap, 0)
			}
			assert.Equal(t, text[start:min(i*tc.size+tc.size, len(text))], c.Content)
			assert.GreaterOrEqual(t, start, prevStart)
			prevStart = start
		}
		// The last chunk always ends at the end of the text.
		assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1].Content))
	}
}
