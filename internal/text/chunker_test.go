package text

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkTexts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// reconstruct concatenates the part of each chunk not already covered by its predecessor.
func reconstruct(chunks []Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		if c.End() > covered {
			start := c.Offset
			if covered > start {
				start = covered
			}
			b.WriteString(c.Text[start-c.Offset:])
			covered = c.End()
		}
	}
	return b.String()
}

const resume = `# Jane Doe

Senior platform engineer with ten years of experience building cloud infrastructure.

## Experience

### Acme Corp (2021-Present)
- Led migration of 40 services to Kubernetes.
- Built the internal developer portal.

### Globex (2017-2021)
- Designed a streaming ingestion pipeline processing 2B events per day.
- Mentored four junior engineers.

## Skills
Go, Python, Terraform, AWS, GCP, PostgreSQL, Kafka, observability, incident response.

## Education
MSc Computer Science, Université de Montréal.`

func TestChunkText(t *testing.T) {
	t.Run("Empty Document", func(t *testing.T) {
		chunks, err := ChunkText("", 100, 10, nil)
		assert.NoError(t, err)
		assert.Empty(t, chunks)

		chunks, err = ChunkText("  \n\n\t ", 100, 10, nil)
		assert.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Short Document Is One Chunk", func(t *testing.T) {
		chunks, err := ChunkText("Hello world.", 100, 10, nil)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "Hello world.", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].ID)
		assert.Equal(t, 0, chunks[0].Offset)
	})

	t.Run("Dot Separator", func(t *testing.T) {
		chunks, err := ChunkText("A. B. C.", 4, 1, []string{"."})
		require.NoError(t, err)
		assert.Equal(t, []string{"A. B", ". C."}, chunkTexts(chunks))
		assert.Equal(t, "A. B. C.", reconstruct(chunks))
	})

	t.Run("Overlapping Words", func(t *testing.T) {
		chunks, err := ChunkText("aa bb cc dd ee", 8, 3, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"aa bb cc", " cc dd", " dd ee"}, chunkTexts(chunks))
		assert.Equal(t, "aa bb cc dd ee", reconstruct(chunks))
	})

	t.Run("Prefers Paragraph Breaks", func(t *testing.T) {
		doc := "First paragraph here.\n\nSecond paragraph here."
		chunks, err := ChunkText(doc, 30, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"First paragraph here.", "\n\nSecond paragraph here."}, chunkTexts(chunks))
	})

	t.Run("Falls Back To Characters", func(t *testing.T) {
		chunks, err := ChunkText("abcdefghij", 4, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunkTexts(chunks))
	})

	t.Run("Counts Characters Not Bytes", func(t *testing.T) {
		chunks, err := ChunkText("éééééé", 3, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ééé", "ééé"}, chunkTexts(chunks))
	})

	t.Run("Invalid Sizing", func(t *testing.T) {
		_, err := ChunkText("text", 10, 10, nil)
		assert.ErrorIs(t, err, ErrInvalidSizing)

		_, err = ChunkText("text", 0, 0, nil)
		assert.ErrorIs(t, err, ErrInvalidSizing)

		_, err = ChunkText("text", 10, -1, nil)
		assert.ErrorIs(t, err, ErrInvalidSizing)
	})
}

func TestSplitter_CoverageProperties(t *testing.T) {
	sizings := []struct{ size, overlap int }{
		{500, 150},
		{120, 40},
		{64, 0},
		{40, 39},
		{10, 3},
		{1, 0},
	}

	for _, sz := range sizings {
		s, err := NewSplitter(sz.size, sz.overlap, nil)
		require.NoError(t, err)

		chunks := s.Split(resume)
		require.NotEmpty(t, chunks)

		assert.Equal(t, 0, chunks[0].Offset)
		assert.Equal(t, len(resume), chunks[len(chunks)-1].End())
		assert.Equal(t, resume, reconstruct(chunks), "size=%d overlap=%d", sz.size, sz.overlap)

		for i, c := range chunks {
			assert.Equal(t, i, c.ID)
			assert.Equal(t, i, c.Order)
			assert.Equal(t, resume[c.Offset:c.End()], c.Text)
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), sz.size)

			if i == 0 {
				continue
			}
			prev := chunks[i-1]
			assert.Greater(t, c.Offset, prev.Offset, "chunks must advance")
			assert.LessOrEqual(t, c.Offset, prev.End(), "chunks must not leave gaps")
			shared := resume[c.Offset:prev.End()]
			assert.LessOrEqual(t, utf8.RuneCountInString(shared), sz.overlap)
		}
	}
}

func TestSplitter_Deterministic(t *testing.T) {
	s, err := NewSplitter(80, 20, nil)
	require.NoError(t, err)

	first := s.Split(resume)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Split(resume))
	}
}

func TestNewSplitter_DefaultSeparators(t *testing.T) {
	s, err := NewSplitter(10, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSeparators, s.Separators)
}

func TestPickSeparator(t *testing.T) {
	sep, rest := pickSeparator("a\nb", DefaultSeparators)
	assert.Equal(t, "\n", sep)
	assert.Equal(t, []string{" ", ""}, rest)

	sep, rest = pickSeparator("abc", []string{".", ";"})
	assert.Equal(t, ";", sep)
	assert.Nil(t, rest)
}
