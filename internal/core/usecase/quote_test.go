package usecase

import (
	"strings"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	in := "El  responsable\n\tdel tratamiento “garantizará”   la seguridad."
	want := `El responsable del tratamiento "garantizará" la seguridad.`
	if got := canonicalize(in); got != want {
		t.Fatalf("canonicalize:\n got %q\nwant %q", got, want)
	}
}

func TestFindSpanExactRoundTrip(t *testing.T) {
	source := "Título preliminar.\n\nArtículo 1.  El delegado de protección de datos será designado atendiendo a sus cualidades profesionales y, en particular, a sus conocimientos especializados del Derecho.\n"
	quote := "El delegado de protección de datos será designado atendiendo a sus cualidades profesionales"

	span := findSpanExact(source, quote)
	if span == nil {
		t.Fatal("expected span")
	}
	if span.Start < 0 || span.End > len(source) || span.Start >= span.End {
		t.Fatalf("invalid span %+v for source of %d bytes", span, len(source))
	}
	if canonicalize(source[span.Start:span.End]) != canonicalize(quote) {
		t.Fatalf("round-trip failed: %q", source[span.Start:span.End])
	}
}

func TestFindSpanExactSurvivesFormattingDifferences(t *testing.T) {
	source := "Los datos   serán\n“exactos” y, si fuera necesario, actualizados."
	quote := `Los datos serán "exactos" y, si fuera necesario, actualizados.`

	span := findSpanExact(source, quote)
	if span == nil {
		t.Fatal("expected span across whitespace and quote-style differences")
	}
	if canonicalize(source[span.Start:span.End]) != canonicalize(quote) {
		t.Fatalf("round-trip failed: %q", source[span.Start:span.End])
	}
}

func TestFindSpanExactMissing(t *testing.T) {
	if span := findSpanExact("texto fuente cualquiera", "cita que no existe"); span != nil {
		t.Fatalf("expected nil span, got %+v", span)
	}
}

func TestSplitSentencesKeepsPunctuation(t *testing.T) {
	got := splitSentences("Primera frase. Segunda frase; tercera parte: y el final")
	want := []string{"Primera frase.", "Segunda frase;", "tercera parte:", "y el final"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences: %v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestFindBestQuotePicksOverlappingSentence(t *testing.T) {
	source := "El procedimiento caducará a los tres meses. " +
		"El delegado de protección de datos será designado atendiendo a sus cualidades profesionales. " +
		"Los plazos se computarán en días hábiles."
	query := "delegado protección datos cualidades profesionales"

	quote := findBestQuote(source, query, DefaultQuoteConfig())
	if !strings.Contains(quote, "delegado de protección de datos") {
		t.Fatalf("unexpected quote: %q", quote)
	}
	if span := findSpanExact(source, quote); span == nil {
		t.Fatal("best quote must be literally present in the source")
	}
}

func TestFindBestQuoteFallsBackToLongestSentence(t *testing.T) {
	source := "Frase corta. Esta es la frase más larga del documento con diferencia y sin solape alguno."
	quote := findBestQuote(source, "xyzzy", QuoteConfig{MinLenShort: 10, MinLenLong: 10, ShortSourceThreshold: 800})
	if !strings.Contains(quote, "más larga del documento") {
		t.Fatalf("expected longest-sentence fallback, got %q", quote)
	}
}

func TestFindBestQuoteDiscardsShortSentences(t *testing.T) {
	source := "Delegado datos designado. " +
		"El responsable del tratamiento designará un delegado de protección de datos atendiendo a sus cualidades. " +
		"Otra frase sobre un asunto distinto y sin relación con la consulta planteada."
	cfg := QuoteConfig{Adaptive: false, MinLenShort: 60, MinLenLong: 60}

	quote := findBestQuote(source, "delegado datos designado", cfg)
	if strings.Contains(quote, "Delegado datos designado.") {
		t.Fatalf("sentence under the minimum length must be discarded, got %q", quote)
	}
	if !strings.Contains(quote, "designará un delegado de protección de datos") {
		t.Fatalf("expected the qualifying overlapping sentence, got %q", quote)
	}
	if strings.Contains(quote, "Otra frase") {
		t.Fatalf("quote must be a single sentence, got %q", quote)
	}
}

func TestAdaptiveMinLength(t *testing.T) {
	cfg := DefaultQuoteConfig()
	if got := cfg.minLen(500); got != cfg.MinLenShort {
		t.Fatalf("short source: got %d", got)
	}
	if got := cfg.minLen(5000); got != cfg.MinLenLong {
		t.Fatalf("long source: got %d", got)
	}
	relaxed := cfg.Relaxed()
	if got := relaxed.minLen(5000); got != cfg.MinLenShort {
		t.Fatalf("relaxed long source: got %d", got)
	}
}

func TestOptionOverlapSupport(t *testing.T) {
	quote := "El delegado de protección de datos será designado atendiendo a sus cualidades profesionales."

	if !optionOverlapSupport(quote, "Es designado atendiendo a sus cualidades profesionales.", 0.08) {
		t.Fatal("expected support for overlapping option")
	}
	if optionOverlapSupport(quote, "Corresponde exclusivamente al Consejo Europeo decidirlo.", 0.08) {
		t.Fatal("expected no support for unrelated option")
	}
	if !optionOverlapSupport(quote, "1 y 2", 0.08) {
		t.Fatal("option with no content words must pass vacuously")
	}
	if !optionOverlapSupport(quote, "¿Y?", 0.08) {
		t.Fatal("option with no content words must pass vacuously")
	}
}
