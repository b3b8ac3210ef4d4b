package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts long text into overlapping chunks, preferring sentence
// boundaries. Boundaries are searched backwards from the size target; a
// boundary that would leave a chunk under MinChunk is ignored and the
// chunk is cut at the target instead.
type Splitter struct {
	TargetSize int // runes per chunk
	Overlap    int // runes carried into the next chunk
	MinChunk   int // smallest acceptable boundary-cut chunk
}

func NewSplitter(targetSize, overlap int) *Splitter {
	if targetSize <= 0 {
		targetSize = 4000
	}
	if overlap < 0 || overlap >= targetSize {
		overlap = 600
	}
	return &Splitter{TargetSize: targetSize, Overlap: overlap, MinChunk: 1500}
}

func (s *Splitter) Split(text string) []string {
	collapsed := collapseWhitespace(text)
	runes := []rune(collapsed)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.TargetSize {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.TargetSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := end
		if b := lastSentenceBreak(runes, start, end); b > start+s.minChunk() {
			cut = b
		}
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - s.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

func (s *Splitter) minChunk() int {
	if s.MinChunk > 0 && s.MinChunk < s.TargetSize {
		return s.MinChunk
	}
	return s.TargetSize / 2
}

// lastSentenceBreak finds the rune index just after the last ". " boundary
// in runes[start:end], or -1.
func lastSentenceBreak(runes []rune, start, end int) int {
	for i := end - 2; i > start; i-- {
		if runes[i] == '.' && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}
	return -1
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
