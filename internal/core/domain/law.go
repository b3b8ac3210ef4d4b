package domain

// Law is one entry of the law catalog. ID is the short code used in
// collection names and payloads ("lo.3-2018"); Name is the display name
// shortlisting embeds.
type Law struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// PieceKind identifies a structural unit of a law. Values are the corpus
// vocabulary and appear verbatim in payloads and filters.
type PieceKind string

const (
	PieceArticle              PieceKind = "articulo"
	PieceProvisionAdditional  PieceKind = "disposicion_adicional"
	PieceProvisionTransitory  PieceKind = "disposicion_transitoria"
	PieceProvisionFinal       PieceKind = "disposicion_final"
	PieceProvisionDerogatory  PieceKind = "disposicion_derogatoria"
	PieceAnnex                PieceKind = "anexo"
	PieceTitle                PieceKind = "titulo"
	PieceChapter              PieceKind = "capitulo"
	PieceSection              PieceKind = "seccion"
	PiecePreamble             PieceKind = "preambulo"
	PieceExpositionOfMotives  PieceKind = "exposicion_motivos"
)

// Reference is the result of running the reference detector over a text.
// The zero value means "nothing detected". Number is nil when the piece has
// no numeric ordinal (e.g. "disposición adicional única", where Ordinal is
// set instead).
type Reference struct {
	PieceKind PieceKind
	Number    *int
	Suffix    string // Latin ordinal suffix: "bis", "ter", ...
	Ordinal   string // word ordinal for single provisions: "unica"
	LawID     string
}

// HasPiece reports whether the detector found an addressable piece, i.e.
// something an exact-reference lookup can filter on.
func (r Reference) HasPiece() bool {
	return r.PieceKind != "" && (r.Number != nil || r.Ordinal != "")
}

// IntPtr is a small helper for building references and payloads.
func IntPtr(n int) *int { return &n }
