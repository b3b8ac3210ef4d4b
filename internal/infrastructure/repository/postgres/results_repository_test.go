package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

func TestSaveResultInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultsRepository(db)
	rec := &domain.ResultRecord{
		File:       "pregunta-001.txt",
		Chosen:     "B",
		Mode:       domain.ModeCorrect,
		Confidence: 0.91,
		HasQuote:   true,
		LawID:      "lo.3-2018",
		Source:     domain.Source{Type: domain.SourceTypeArticle},
	}

	mock.ExpectExec("INSERT INTO solver_results").
		WithArgs("pregunta-001.txt", "B", "correcta", 0.91, 0.0, true, "lo.3-2018", "txt", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveResult(context.Background(), rec); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveResultNullsEmptyLawID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultsRepository(db)
	rec := &domain.ResultRecord{
		File:   "pregunta-002.txt",
		Chosen: "A",
		Mode:   domain.ModeIncorrect,
		Source: domain.Source{Type: domain.SourceTypeNone},
	}

	mock.ExpectExec("INSERT INTO solver_results").
		WithArgs("pregunta-002.txt", "A", "incorrecta", 0.0, 0.0, false, nil, "sin_cita", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveResult(context.Background(), rec); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRunsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewResultsRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(int64(0x1e8a6)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS solver_results").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
