package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// RefDetector finds explicit references to law pieces ("artículo 12 bis",
// "disposición adicional tercera", "anexo II") and to catalog laws inside
// free text. Detection is pure: the same input always yields the same
// Reference.
type RefDetector struct {
	laws []domain.Law
}

func NewRefDetector(laws []domain.Law) *RefDetector {
	return &RefDetector{laws: laws}
}

var (
	articleRe   = regexp.MustCompile(`art(?:[íi]culo|\.)\s+(\d+)\s*(bis|ter|quater|quinquies|sexies|septies|octies|nonies|decies)?\b`)
	provisionRe = regexp.MustCompile(`disposici[óo]n\s+(adicional|transitoria|final|derogatoria)\s+([a-záéíóúñ]+|\d+)`)
	annexRe     = regexp.MustCompile(`anexo\s+([ivxlcdm]+|\d+)\b`)
)

// wordOrdinals maps the feminine word ordinals used for provisions.
var wordOrdinals = map[string]int{
	"primera": 1, "segunda": 2, "tercera": 3, "cuarta": 4, "quinta": 5,
	"sexta": 6, "séptima": 7, "septima": 7, "octava": 8, "novena": 9,
	"décima": 10, "decima": 10,
}

var romanNumerals = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5, "vi": 6, "vii": 7,
	"viii": 8, "ix": 9, "x": 10, "xi": 11, "xii": 12, "xiii": 13,
	"xiv": 14, "xv": 15,
}

// Detect scans text for a piece reference and a law mention. Either half
// may be absent; the zero Reference means nothing was found.
func (d *RefDetector) Detect(text string) domain.Reference {
	t := strings.ToLower(text)
	ref := d.detectPiece(t)
	ref.LawID = d.detectLaw(t)
	return ref
}

func (d *RefDetector) detectPiece(t string) domain.Reference {
	if m := articleRe.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return domain.Reference{
			PieceKind: domain.PieceArticle,
			Number:    domain.IntPtr(n),
			Suffix:    m[2],
		}
	}

	if m := provisionRe.FindStringSubmatch(t); m != nil {
		ref := domain.Reference{PieceKind: provisionKind(m[1])}
		ord := m[2]
		switch {
		case ord == "única" || ord == "unica":
			ref.Ordinal = "unica"
		default:
			if n, ok := wordOrdinals[ord]; ok {
				ref.Number = domain.IntPtr(n)
			} else if n, err := strconv.Atoi(ord); err == nil {
				ref.Number = domain.IntPtr(n)
			} else {
				return domain.Reference{}
			}
		}
		return ref
	}

	if m := annexRe.FindStringSubmatch(t); m != nil {
		if n, ok := romanNumerals[m[1]]; ok {
			return domain.Reference{PieceKind: domain.PieceAnnex, Number: domain.IntPtr(n)}
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return domain.Reference{PieceKind: domain.PieceAnnex, Number: domain.IntPtr(n)}
		}
	}

	return domain.Reference{}
}

func provisionKind(word string) domain.PieceKind {
	switch word {
	case "adicional":
		return domain.PieceProvisionAdditional
	case "transitoria":
		return domain.PieceProvisionTransitory
	case "final":
		return domain.PieceProvisionFinal
	case "derogatoria":
		return domain.PieceProvisionDerogatory
	}
	return ""
}

// detectLaw resolves a law mention against the catalog: first by short code
// substring, then by display-name substring, both in catalog order.
func (d *RefDetector) detectLaw(t string) string {
	for _, law := range d.laws {
		if law.ID != "" && strings.Contains(t, strings.ToLower(law.ID)) {
			return law.ID
		}
	}
	for _, law := range d.laws {
		name := strings.ToLower(strings.TrimSpace(law.Name))
		if name != "" && strings.Contains(t, name) {
			return law.ID
		}
	}
	// "lo.3-2018" is cited in prose as "3/2018".
	for _, law := range d.laws {
		if v := slashVariant(law.ID); v != "" && strings.Contains(t, v) {
			return law.ID
		}
	}
	return ""
}

func slashVariant(id string) string {
	dot := strings.LastIndex(id, ".")
	if dot < 0 {
		return ""
	}
	rest := id[dot+1:]
	if !strings.Contains(rest, "-") {
		return ""
	}
	return strings.Replace(rest, "-", "/", 1)
}
