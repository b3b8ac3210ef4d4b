package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(4000, 600)
	chunks := s.Split("Un texto breve. Nada que partir.")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(4000, 600)
	if chunks := s.Split("   \n\t "); chunks != nil {
		t.Fatalf("expected no chunks, got %v", chunks)
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	sentence := "Esta es una frase de relleno con contenido jurídico suficiente para el corte. "
	text := strings.Repeat(sentence, 100) // ~7900 runes

	s := NewSplitter(4000, 600)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(chunk, ".") {
			t.Fatalf("chunk %d does not end at a sentence boundary: %q", i, chunk[len(chunk)-40:])
		}
	}
}

func TestSplitChunksOverlap(t *testing.T) {
	sentence := "Cada frase añade contexto normativo adicional al documento completo. "
	text := strings.Repeat(sentence, 120)

	s := NewSplitter(4000, 600)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The tail of each chunk reappears at the head of the next.
	tail := chunks[0][len(chunks[0])-200:]
	if !strings.Contains(chunks[1], tail[:100]) {
		t.Fatal("consecutive chunks do not overlap")
	}
}

func TestSplitAlwaysMakesProgress(t *testing.T) {
	// Pathological input without any sentence boundary.
	text := strings.Repeat("palabra ", 2000)

	s := NewSplitter(1000, 900)
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	if total < len(strings.TrimSpace(text))/2 {
		t.Fatalf("chunks lost too much content: %d of %d", total, len(text))
	}
}
