package usecase

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// QuoteConfig tunes literal quote extraction.
type QuoteConfig struct {
	Adaptive             bool // pick min length from source size
	MinLenShort          int  // min quote length for short sources
	MinLenLong           int  // min quote length for long sources
	ShortSourceThreshold int  // canonical source length (chars) under which a source counts as short
}

// DefaultQuoteConfig returns the production extraction settings.
func DefaultQuoteConfig() QuoteConfig {
	return QuoteConfig{
		Adaptive:             true,
		MinLenShort:          60,
		MinLenLong:           90,
		ShortSourceThreshold: 800,
	}
}

// Relaxed returns the settings for the permissive retry pass: the short
// minimum applies everywhere.
func (c QuoteConfig) Relaxed() QuoteConfig {
	c.Adaptive = false
	c.MinLenLong = c.MinLenShort
	return c
}

func (c QuoteConfig) minLen(sourceLen int) int {
	if c.Adaptive && sourceLen < c.ShortSourceThreshold {
		return c.MinLenShort
	}
	return c.MinLenLong
}

// canonicalize collapses whitespace runs to single spaces and normalizes
// curly quotes, so that literal matching survives formatting differences
// between sources and model output.
func canonicalize(s string) string {
	canon, _, _ := canonicalWithMap(s)
	return canon
}

// canonicalWithMap canonicalizes s and returns, per canonical byte, the
// byte offset in s of the rune that produced it (starts) and the offset
// just past that rune (ends). Spans located in canonical space map back to
// half-open byte offsets in the original text through these tables.
func canonicalWithMap(s string) (string, []int, []int) {
	var b strings.Builder
	var starts, ends []int

	appendRune := func(r rune, origStart, origEnd int) {
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		b.Write(buf[:n])
		for i := 0; i < n; i++ {
			starts = append(starts, origStart)
			ends = append(ends, origEnd)
		}
	}

	inSpace := false
	spaceStart := 0
	for i, r := range s {
		size := utf8.RuneLen(r)
		if unicode.IsSpace(r) {
			if !inSpace {
				inSpace = true
				spaceStart = i
			}
			continue
		}
		if inSpace {
			appendRune(' ', spaceStart, i)
			inSpace = false
		}
		appendRune(normalizeQuoteRune(r), i, i+size)
	}

	canon := b.String()
	// Trim the edges in canonical space, keeping the maps aligned.
	begin := 0
	end := len(canon)
	for begin < end && canon[begin] == ' ' {
		begin++
	}
	for end > begin && canon[end-1] == ' ' {
		end--
	}
	return canon[begin:end], starts[begin:end], ends[begin:end]
}

func normalizeQuoteRune(r rune) rune {
	switch r {
	case '“', '”', '„', '«', '»':
		return '"'
	case '‘', '’':
		return '\''
	}
	return r
}

// findSpanExact locates quote inside context as half-open byte offsets into
// the ORIGINAL context, matching in canonical space. Returns nil when the
// quote does not occur literally.
func findSpanExact(context, quote string) *domain.Span {
	canonCtx, starts, ends := canonicalWithMap(context)
	canonQuote := canonicalize(quote)
	if canonQuote == "" || canonCtx == "" {
		return nil
	}
	pos := strings.Index(canonCtx, canonQuote)
	if pos < 0 {
		return nil
	}
	return &domain.Span{
		Start: starts[pos],
		End:   ends[pos+len(canonQuote)-1],
	}
}

var sentenceEndRe = regexp.MustCompile(`[.;:]\s+`)

// splitSentences splits canonical text after sentence-ending punctuation,
// keeping the punctuation attached to the left part.
func splitSentences(canon string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(canon, -1) {
		// loc[0] is the punctuation byte; keep it with the sentence.
		sent := strings.TrimSpace(canon[last : loc[0]+1])
		if sent != "" {
			out = append(out, sent)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(canon[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

var contentWordRe = regexp.MustCompile(`[\p{L}\p{N}]{4,}`)

// contentWords extracts the lowercase word set (length >= 4) used for
// lexical overlap scoring.
func contentWords(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range contentWordRe.FindAllString(strings.ToLower(s), -1) {
		out[w] = struct{}{}
	}
	return out
}

// findBestQuote returns a literal passage of source best supporting query:
// among sentences of at least minLen, the one with highest Jaccard overlap
// against the query's word set. Shorter sentences are discarded before
// scoring; when no qualifying sentence overlaps at all, the single longest
// sentence is used. Returns "" only for an effectively empty source.
func findBestQuote(source, query string, cfg QuoteConfig) string {
	canon := canonicalize(source)
	if canon == "" {
		return ""
	}
	minLen := cfg.minLen(len([]rune(canon)))

	sentences := splitSentences(canon)
	if len(sentences) == 0 {
		return ""
	}

	queryWords := contentWords(query)
	bestIdx := -1
	bestScore := 0.0
	longestIdx := 0
	for i, sent := range sentences {
		if len([]rune(sent)) > len([]rune(sentences[longestIdx])) {
			longestIdx = i
		}
		if len([]rune(sent)) < minLen {
			continue
		}
		words := contentWords(sent)
		if len(words) == 0 {
			continue
		}
		inter := 0
		for w := range words {
			if _, ok := queryWords[w]; ok {
				inter++
			}
		}
		union := len(words) + len(queryWords) - inter
		if union == 0 {
			continue
		}
		score := float64(inter) / float64(union)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		bestIdx = longestIdx
	}
	return sentences[bestIdx]
}

// optionOverlapSupport checks that the quote lexically supports the option:
// the share of the option's content words present in the quote must reach
// minRatio. Options without content words ("1 y 2") pass vacuously, since
// there is nothing to contradict.
func optionOverlapSupport(quote, option string, minRatio float64) bool {
	optionWords := contentWords(option)
	if len(optionWords) == 0 {
		return true
	}
	quoteWords := contentWords(quote)
	inter := 0
	for w := range optionWords {
		if _, ok := quoteWords[w]; ok {
			inter++
		}
	}
	return float64(inter)/float64(len(optionWords)) >= minRatio
}
