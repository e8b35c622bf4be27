package text

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var ErrInvalidSizing = errors.New("chunk overlap must be non-negative and smaller than chunk size")

// DefaultSeparators is the priority order used for markdown documents:
// paragraph break, line break, space, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk is a contiguous slice of the source document.
// Text is always source[Offset : Offset+len(Text)].
type Chunk struct {
	ID     int
	Text   string
	Order  int
	Offset int
}

// End is the byte offset just past the chunk in the source document.
func (c Chunk) End() int {
	return c.Offset + len(c.Text)
}

type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

func NewSplitter(chunkSize, overlap int, separators []string) (*Splitter, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidSizing
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap, Separators: separators}, nil
}

// ChunkText splits source with the given sizing. Lengths are counted in characters.
func ChunkText(source string, chunkSize, overlap int, separators []string) ([]Chunk, error) {
	s, err := NewSplitter(chunkSize, overlap, separators)
	if err != nil {
		return nil, err
	}
	return s.Split(source), nil
}

// span is a half-open byte range into the source.
type span struct {
	start, end int
	chars      int
}

func newSpan(source string, start, end int) span {
	return span{start: start, end: end, chars: utf8.RuneCountInString(source[start:end])}
}

// Split returns the ordered chunks for source. Blank documents yield no chunks.
// Every chunk is at most ChunkSize characters and consecutive chunks share up
// to Overlap characters, so the chunks jointly cover the whole document.
func (s *Splitter) Split(source string) []Chunk {
	if strings.TrimSpace(source) == "" {
		return nil
	}

	spans := s.splitSpan(source, newSpan(source, 0, len(source)), s.Separators)

	chunks := make([]Chunk, 0, len(spans))
	for i, sp := range spans {
		chunks = append(chunks, Chunk{
			ID:     i,
			Text:   source[sp.start:sp.end],
			Order:  i,
			Offset: sp.start,
		})
	}
	return chunks
}

func (s *Splitter) splitSpan(source string, whole span, separators []string) []span {
	sep, rest := pickSeparator(source[whole.start:whole.end], separators)
	pieces := splitOn(source, whole, sep)

	var out []span
	var small []span
	flush := func() {
		if len(small) > 0 {
			out = append(out, s.merge(small)...)
			small = nil
		}
	}

	for _, p := range pieces {
		if p.chars < s.ChunkSize {
			small = append(small, p)
			continue
		}
		flush()
		if len(rest) == 0 || p.chars == s.ChunkSize {
			out = append(out, p)
			continue
		}
		out = append(out, s.splitSpan(source, p, rest)...)
	}
	flush()
	return out
}

// merge packs adjacent pieces into chunks no larger than ChunkSize, carrying
// trailing pieces worth at most Overlap characters into the next chunk.
func (s *Splitter) merge(pieces []span) []span {
	var out []span
	var window []span
	total := 0

	for _, p := range pieces {
		if total+p.chars > s.ChunkSize && len(window) > 0 {
			out = append(out, joinSpans(window))
			for len(window) > 0 && (total > s.Overlap || total+p.chars > s.ChunkSize) {
				total -= window[0].chars
				window = window[1:]
			}
		}
		window = append(window, p)
		total += p.chars
	}
	if len(window) > 0 {
		out = append(out, joinSpans(window))
	}
	return out
}

func joinSpans(window []span) span {
	j := span{start: window[0].start, end: window[len(window)-1].end}
	for _, w := range window {
		j.chars += w.chars
	}
	return j
}

// pickSeparator returns the first separator present in text and the
// lower-priority ones after it. With no match the last separator is used.
func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	if len(separators) == 0 {
		return "", nil
	}
	return separators[len(separators)-1], nil
}

// splitOn cuts whole before every occurrence of sep, keeping the separator at
// the head of the following piece. An empty sep splits into single characters.
func splitOn(source string, whole span, sep string) []span {
	text := source[whole.start:whole.end]
	var pieces []span

	if sep == "" {
		for i := 0; i < len(text); {
			_, size := utf8.DecodeRuneInString(text[i:])
			start := whole.start + i
			pieces = append(pieces, span{start: start, end: start + size, chars: 1})
			i += size
		}
		return pieces
	}

	prev := 0
	for i := 0; i < len(text); {
		idx := strings.Index(text[i:], sep)
		if idx < 0 {
			break
		}
		pos := i + idx
		if pos > prev {
			pieces = append(pieces, newSpan(source, whole.start+prev, whole.start+pos))
			prev = pos
		}
		i = pos + len(sep)
	}
	pieces = append(pieces, newSpan(source, whole.start+prev, whole.end))
	return pieces
}
