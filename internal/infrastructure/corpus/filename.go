package corpus

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// Article corpus files encode their structural piece in the filename:
//
//	articulo-12.txt            articulo-12-bis.txt
//	disposicion-adicional-3.txt disposicion-transitoria-unica.txt
//	anexo-iv.txt               anexo-2-b.txt
//	titulo-iii.txt  capitulo-2.txt  seccion-1.txt
//	preambulo.txt   exposicion-de-motivos.txt
var (
	articleFileRe   = regexp.MustCompile(`^articulo-(\d+)(?:-(bis|ter|quater|quinquies|sexies|septies|octies|nonies|decies))?$`)
	provisionFileRe = regexp.MustCompile(`^disposicion-(adicional|transitoria|final|derogatoria)-(unica|\d+)$`)
	annexFileRe     = regexp.MustCompile(`^anexo-([ivxlcdm]+|\d+)(?:-([a-z]))?$`)
	divisionFileRe  = regexp.MustCompile(`^(titulo|capitulo|seccion)-([ivxlcdm]+|\d+)$`)
)

var divisionKinds = map[string]domain.PieceKind{
	"titulo":   domain.PieceTitle,
	"capitulo": domain.PieceChapter,
	"seccion":  domain.PieceSection,
}

// ParsePieceFilename maps an article file name (without directory, with or
// without .txt) to its structural piece.
func ParsePieceFilename(name string) (domain.Reference, error) {
	base := strings.ToLower(strings.TrimSuffix(name, ".txt"))

	switch base {
	case "preambulo":
		return domain.Reference{PieceKind: domain.PiecePreamble}, nil
	case "exposicion-de-motivos", "exposicion-motivos":
		return domain.Reference{PieceKind: domain.PieceExpositionOfMotives}, nil
	}

	if m := articleFileRe.FindStringSubmatch(base); m != nil {
		n, _ := strconv.Atoi(m[1])
		return domain.Reference{PieceKind: domain.PieceArticle, Number: domain.IntPtr(n), Suffix: m[2]}, nil
	}

	if m := provisionFileRe.FindStringSubmatch(base); m != nil {
		ref := domain.Reference{PieceKind: provisionFileKind(m[1])}
		if m[2] == "unica" {
			ref.Ordinal = "unica"
		} else {
			n, _ := strconv.Atoi(m[2])
			ref.Number = domain.IntPtr(n)
		}
		return ref, nil
	}

	if m := annexFileRe.FindStringSubmatch(base); m != nil {
		ref := domain.Reference{PieceKind: domain.PieceAnnex, Suffix: m[2]}
		if n, err := strconv.Atoi(m[1]); err == nil {
			ref.Number = domain.IntPtr(n)
		} else if n, ok := parseRoman(m[1]); ok {
			ref.Number = domain.IntPtr(n)
		} else {
			return domain.Reference{}, fmt.Errorf("unrecognized annex ordinal %q", m[1])
		}
		return ref, nil
	}

	if m := divisionFileRe.FindStringSubmatch(base); m != nil {
		ref := domain.Reference{PieceKind: divisionKinds[m[1]]}
		if n, err := strconv.Atoi(m[2]); err == nil {
			ref.Number = domain.IntPtr(n)
		} else if n, ok := parseRoman(m[2]); ok {
			ref.Number = domain.IntPtr(n)
		} else {
			return domain.Reference{}, fmt.Errorf("unrecognized division ordinal %q", m[2])
		}
		return ref, nil
	}

	return domain.Reference{}, fmt.Errorf("unrecognized piece filename %q", name)
}

func provisionFileKind(word string) domain.PieceKind {
	switch word {
	case "adicional":
		return domain.PieceProvisionAdditional
	case "transitoria":
		return domain.PieceProvisionTransitory
	case "final":
		return domain.PieceProvisionFinal
	default:
		return domain.PieceProvisionDerogatory
	}
}

var romanValues = map[byte]int{'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100, 'd': 500, 'm': 1000}

func parseRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total := 0
	prev := 0
	for i := len(s) - 1; i >= 0; i-- {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	return total, true
}
