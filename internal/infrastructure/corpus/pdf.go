package corpus

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/msanchezp/lexrag/internal/core/domain"
	"github.com/msanchezp/lexrag/internal/core/ports"
)

func (s *Source) LoadPDFs(_ context.Context, laws []domain.Law) ([]ports.PDFDocument, error) {
	dir := s.pdfDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pdf dir: %w", err)
	}

	knownIDs := make(map[string]bool, len(laws))
	for _, law := range laws {
		knownIDs[law.ID] = true
	}

	var docs []ports.PDFDocument
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		text, err := ExtractPDFText(path)
		if err != nil {
			s.log.Warn("pdf_extract_failed", "file", entry.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			s.log.Warn("pdf_without_text", "file", entry.Name())
			continue
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		docs = append(docs, ports.PDFDocument{
			LawID:   ClassifyPDF(entry.Name(), text, knownIDs),
			Text:    text,
			Path:    path,
			RelPath: entry.Name(),
			Hash:    hashBytes(raw),
		})
	}
	return docs, nil
}

// ExtractPDFText pulls the native text layer out of a PDF. Scanned PDFs
// without a text layer come back empty; OCR is a separate pipeline.
func ExtractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return string(raw), nil
}

var lawCitationRe = regexp.MustCompile(`(?i)(ley\s+org[áa]nica|reglamento\s*\(ue\)|ley)\s*(?:n[ºo.]*\s*)?(\d+)\s*/\s*(\d{4})`)

// ClassifyPDF decides which law a PDF belongs to, or "" for the shared
// topics pool. "LEY-<id>.pdf" filenames are authoritative; other LEY-*
// files fall back to the first law citation in the text, with the prefix
// deciding the id scheme ("orgánica" -> lo., EU regulation -> r.e.,
// default l.). Everything else is topic notes.
func ClassifyPDF(filename, text string, knownIDs map[string]bool) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	upper := strings.ToUpper(base)
	if !strings.HasPrefix(upper, "LEY-") {
		return ""
	}

	if id := strings.ToLower(base[len("LEY-"):]); knownIDs[id] {
		return id
	}

	head := text
	if len(head) > 4000 {
		head = head[:4000]
	}
	if m := lawCitationRe.FindStringSubmatch(head); m != nil {
		prefix := "l."
		kind := strings.ToLower(m[1])
		switch {
		case strings.Contains(kind, "org"):
			prefix = "lo."
		case strings.Contains(kind, "reglamento"):
			prefix = "r.e."
		}
		if id := fmt.Sprintf("%s%s-%s", prefix, m[2], m[3]); knownIDs[id] {
			return id
		}
	}
	return ""
}
