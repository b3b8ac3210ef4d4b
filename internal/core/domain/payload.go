package domain

// SourceKind discriminates the payload union. Every payload is exactly one
// of the two variants; reading its text is total over this set.
type SourceKind string

const (
	SourceArticle SourceKind = "article"
	SourcePDF     SourceKind = "pdf"
)

// Payload is the metadata stored alongside every vector point. It is a
// tagged union: Kind selects which of Article/PDF is populated.
type Payload struct {
	Kind        SourceKind      `json:"source_kind"`
	LawID       string          `json:"law_id"`
	LawName     string          `json:"law_name,omitempty"`
	SourcePath  string          `json:"source_path"`
	ContentHash string          `json:"content_hash"`
	VersionTag  string          `json:"version_tag"`
	Article     *ArticlePayload `json:"article,omitempty"`
	PDF         *PDFPayload     `json:"pdf,omitempty"`
}

// ArticlePayload describes a structural piece of a law whose full text lives
// in the source file on disk.
type ArticlePayload struct {
	PieceKind PieceKind `json:"piece_kind"`
	Number    *int      `json:"number,omitempty"`
	Suffix    string    `json:"suffix,omitempty"`
	Ordinal   string    `json:"ordinal,omitempty"`
}

// PDFPayload describes one chunk of an extracted PDF; the chunk text is
// carried inline because the PDF is not re-read at query time.
type PDFPayload struct {
	Position int    `json:"position"`
	Text     string `json:"text_chunk"`
}

// InlineText returns the text carried inside the payload itself and whether
// there is any. Article payloads carry none; their text is read from
// SourcePath by a TextSource.
func (p Payload) InlineText() (string, bool) {
	if p.Kind == SourcePDF && p.PDF != nil {
		return p.PDF.Text, true
	}
	return "", false
}

// Hit is a retrieval result: a payload plus the score assigned by the stage
// that produced it (cosine similarity, or 1.0 for exact-reference lookups).
type Hit struct {
	Score      float64
	Collection string
	Payload    Payload
}
