package domain

// Mode is the question polarity: pick the correct option or the incorrect
// one. The values are emitted verbatim in result records.
type Mode string

const (
	ModeCorrect   Mode = "correcta"
	ModeIncorrect Mode = "incorrecta"
)

// Span locates a quote inside the original source text as half-open byte
// offsets: text[Start:End] is the quoted passage.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SourceType names where the winning evidence came from.
type SourceType string

const (
	SourceTypeArticle   SourceType = "txt"
	SourceTypePDFLaw    SourceType = "pdf_ley"
	SourceTypePDFTopics SourceType = "pdf_temas"
	SourceTypeNone      SourceType = "sin_cita"
)

// Source attributes an answer to its evidence. Payload is nil for
// SourceTypeNone.
type Source struct {
	Type    SourceType `json:"tipo"`
	Payload *Payload   `json:"payload,omitempty"`
}

// SolverResult is the outcome of one cascade run over a single option.
//
// HasQuote=true with Span=nil is a real state: a literal quote was produced
// but could not be located exactly in the source (unverified citation).
type SolverResult struct {
	Justification string  `json:"justificacion"`
	Confidence    float64 `json:"confianza"`
	Source        Source  `json:"fuente"`
	HasQuote      bool    `json:"tiene_cita"`
	Span          *Span   `json:"span"`
	LawID         string  `json:"ley_id"`
	LawName       string  `json:"ley_nombre"`
	Mode          Mode    `json:"modo"`
}

// Selection is an anti-bias decision over a full question: the chosen
// letter, the cascade result backing it, the per-letter vote tally and the
// mean confidence across the winning passes.
type Selection struct {
	Letter           string         `json:"opcion_elegida"`
	Result           *SolverResult  `json:"resultado"`
	Votes            map[string]int `json:"anti_bias_votes,omitempty"`
	RobustConfidence float64        `json:"confianza_robusta,omitempty"`
}

// ResultRecord is one line of the batch JSONL output (and the row shape of
// the optional Postgres store).
type ResultRecord struct {
	File             string         `json:"archivo"`
	Chosen           string         `json:"opcion_elegida"`
	Justification    string         `json:"justificacion"`
	Source           Source         `json:"fuente"`
	Confidence       float64        `json:"confianza"`
	HasQuote         bool           `json:"tiene_cita"`
	Span             *Span          `json:"span"`
	LawID            string         `json:"ley_id"`
	LawName          string         `json:"ley_nombre"`
	Mode             Mode           `json:"modo"`
	Votes            map[string]int `json:"anti_bias_votes,omitempty"`
	RobustConfidence float64        `json:"confianza_robusta,omitempty"`
}
