package usecase

import (
	"testing"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

var testLaws = []domain.Law{
	{ID: "lo.3-2018", Name: "Ley Orgánica de Protección de Datos"},
	{ID: "l.39-2015", Name: "Ley del Procedimiento Administrativo Común"},
	{ID: "r.e.2016-679", Name: "Reglamento General de Protección de Datos"},
}

func TestDetectArticle(t *testing.T) {
	d := NewRefDetector(testLaws)

	ref := d.Detect("Según el artículo 12 bis de la lo.3-2018, el plazo es de un mes.")
	if ref.PieceKind != domain.PieceArticle {
		t.Fatalf("expected articulo, got %q", ref.PieceKind)
	}
	if ref.Number == nil || *ref.Number != 12 {
		t.Fatalf("expected number 12, got %v", ref.Number)
	}
	if ref.Suffix != "bis" {
		t.Fatalf("expected suffix bis, got %q", ref.Suffix)
	}
	if ref.LawID != "lo.3-2018" {
		t.Fatalf("expected lo.3-2018, got %q", ref.LawID)
	}
	if !ref.HasPiece() {
		t.Fatal("expected HasPiece")
	}
}

func TestDetectAbbreviatedArticleWithoutSuffix(t *testing.T) {
	d := NewRefDetector(testLaws)
	ref := d.Detect("conforme al art. 47 de la norma")
	if ref.PieceKind != domain.PieceArticle || ref.Number == nil || *ref.Number != 47 {
		t.Fatalf("unexpected reference: %+v", ref)
	}
	if ref.Suffix != "" {
		t.Fatalf("expected no suffix, got %q", ref.Suffix)
	}
}

func TestDetectProvision(t *testing.T) {
	d := NewRefDetector(testLaws)

	ref := d.Detect("la disposición adicional tercera establece")
	if ref.PieceKind != domain.PieceProvisionAdditional {
		t.Fatalf("expected disposicion_adicional, got %q", ref.PieceKind)
	}
	if ref.Number == nil || *ref.Number != 3 {
		t.Fatalf("expected number 3, got %v", ref.Number)
	}

	ref = d.Detect("véase la disposición transitoria única")
	if ref.PieceKind != domain.PieceProvisionTransitory || ref.Ordinal != "unica" {
		t.Fatalf("unexpected reference: %+v", ref)
	}
	if ref.Number != nil {
		t.Fatalf("unica must not carry a number, got %v", *ref.Number)
	}
}

func TestDetectAnnexRoman(t *testing.T) {
	d := NewRefDetector(testLaws)
	ref := d.Detect("tal y como recoge el anexo iv del reglamento")
	if ref.PieceKind != domain.PieceAnnex || ref.Number == nil || *ref.Number != 4 {
		t.Fatalf("unexpected reference: %+v", ref)
	}
}

func TestDetectLawByNameAndSlashVariant(t *testing.T) {
	d := NewRefDetector(testLaws)

	if got := d.Detect("según la ley del procedimiento administrativo común").LawID; got != "l.39-2015" {
		t.Fatalf("name match failed: %q", got)
	}
	if got := d.Detect("el plazo previsto en la Ley 39/2015 es de tres meses").LawID; got != "l.39-2015" {
		t.Fatalf("slash variant match failed: %q", got)
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	d := NewRefDetector(testLaws)
	text := "El artículo 22 ter de la lo.3-2018 regula los sistemas de videovigilancia."
	first := d.Detect(text)
	for i := 0; i < 5; i++ {
		got := d.Detect(text)
		same := got.PieceKind == first.PieceKind &&
			got.Suffix == first.Suffix &&
			got.Ordinal == first.Ordinal &&
			got.LawID == first.LawID &&
			(got.Number == nil) == (first.Number == nil) &&
			(got.Number == nil || *got.Number == *first.Number)
		if !same {
			t.Fatalf("detection not idempotent: %+v vs %+v", got, first)
		}
	}
}

func TestDetectNothing(t *testing.T) {
	d := NewRefDetector(testLaws)
	ref := d.Detect("una frase sin referencias normativas")
	if ref != (domain.Reference{}) {
		t.Fatalf("expected zero reference, got %+v", ref)
	}
}
