package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

func writeReports(dir string, validate bool, sum *Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if len(sum.Failures) > 0 {
		if err := writeFailureReports(dir, sum.Failures); err != nil {
			return err
		}
	}
	if validate {
		return writeValidationReports(dir, sum)
	}
	return nil
}

func writeFailureReports(dir string, failures []Failure) error {
	raw, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return fmt.Errorf("encode failures: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fallos.json"), raw, 0o644); err != nil {
		return fmt.Errorf("write failures json: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "fallos.csv"))
	if err != nil {
		return fmt.Errorf("create failures csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"archivo", "motivo"})
	for _, fail := range failures {
		w.Write([]string{fail.File, fail.Reason})
	}
	w.Flush()
	return w.Error()
}

var validationHeader = []string{
	"archivo", "correcta", "opcion_elegida", "coincide", "confianza",
	"cita_etiqueta", "cita_modelo", "motivos",
}

func writeValidationReports(dir string, sum *Summary) error {
	raw, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("encode validation summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "validacion.json"), raw, 0o644); err != nil {
		return fmt.Errorf("write validation json: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "validacion.csv"))
	if err != nil {
		return fmt.Errorf("create validation csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write(validationHeader)
	for _, row := range sum.Rows {
		w.Write(validationRecord(row))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	return writeValidationWorkbook(filepath.Join(dir, "validacion.xlsx"), sum)
}

func validationRecord(row ValidationRow) []string {
	return []string{
		row.File,
		row.Gold,
		row.Chosen,
		strconv.FormatBool(row.Agree),
		strconv.FormatFloat(row.Confidence, 'f', 4, 64),
		strconv.FormatBool(row.LabelHasQuote),
		strconv.FormatBool(row.ModelHasQuote),
		strings.Join(row.Reasons, "|"),
	}
}

// writeValidationWorkbook emits the audit as a two-sheet workbook: the
// per-question rows plus an aggregate summary.
func writeValidationWorkbook(path string, sum *Summary) error {
	wb := excelize.NewFile()
	defer wb.Close()

	const rowsSheet = "Preguntas"
	wb.SetSheetName(wb.GetSheetName(0), rowsSheet)

	for col, name := range validationHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		wb.SetCellValue(rowsSheet, cell, name)
	}
	for i, row := range sum.Rows {
		values := []any{
			row.File, row.Gold, row.Chosen, row.Agree, row.Confidence,
			row.LabelHasQuote, row.ModelHasQuote, strings.Join(row.Reasons, "|"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			wb.SetCellValue(rowsSheet, cell, v)
		}
	}

	const summarySheet = "Resumen"
	if _, err := wb.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]any{
		{"total", sum.Total},
		{"respondidas", sum.Answered},
		{"fallidas", sum.Failed},
		{"coincidencias", sum.Agreements},
		{"precision", sum.Accuracy},
		{"marcadas", sum.Flagged},
	}
	for i, pair := range summary {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		wb.SetCellValue(summarySheet, keyCell, pair[0])
		wb.SetCellValue(summarySheet, valCell, pair[1])
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
