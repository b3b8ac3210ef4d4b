package usecase

import (
	"context"
	"math/rand"
	"testing"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

func antiBiasQuestion() domain.Question {
	option := "Según el artículo 12 de la Ley 3/2018, es designado atendiendo a sus cualidades profesionales."
	return domain.Question{
		Statement: "Respecto al delegado de protección de datos:",
		Options: map[string]string{
			"A": option,
			"B": option,
			"C": option,
			"D": option,
		},
		Mode: domain.ModeCorrect,
	}
}

func TestSelectAntiBiasVotesAndBudget(t *testing.T) {
	fx := newSolverFixture(t, DefaultSolverConfig())
	selector := NewSelector(fx.solver, 3, rand.New(rand.NewSource(7)), nil)

	sel, err := selector.Select(context.Background(), antiBiasQuestion())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	total := 0
	for _, v := range sel.Votes {
		total += v
	}
	if total != 3 {
		t.Fatalf("votes must sum to the number of passes, got %v", sel.Votes)
	}
	if sel.Letter == "" || sel.Result == nil || !sel.Result.HasQuote {
		t.Fatalf("expected a grounded winner, got %+v", sel)
	}
	if sel.RobustConfidence < 0.84 {
		t.Fatalf("robust confidence below strategy floor: %v", sel.RobustConfidence)
	}

	// Every option grounds on the first attempt: 3 passes x 4 options plus
	// the final recompute of the winner.
	if fx.observer.calls != 13 {
		t.Fatalf("expected 13 cascade invocations, got %d", fx.observer.calls)
	}
}

func TestSelectIsDeterministicForFixedSeed(t *testing.T) {
	q := antiBiasQuestion()

	run := func() *domain.Selection {
		fx := newSolverFixture(t, DefaultSolverConfig())
		selector := NewSelector(fx.solver, 3, rand.New(rand.NewSource(42)), nil)
		sel, err := selector.Select(context.Background(), q)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		return sel
	}

	first := run()
	second := run()
	if first.Letter != second.Letter {
		t.Fatalf("selection not deterministic: %q vs %q", first.Letter, second.Letter)
	}
	for letter, votes := range first.Votes {
		if second.Votes[letter] != votes {
			t.Fatalf("vote tallies differ: %v vs %v", first.Votes, second.Votes)
		}
	}
}

func TestSelectSinglePassKeepsLetterOrder(t *testing.T) {
	fx := newSolverFixture(t, DefaultSolverConfig())
	selector := NewSelector(fx.solver, 1, nil, nil)

	sel, err := selector.Select(context.Background(), antiBiasQuestion())
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Letter != "A" {
		t.Fatalf("equal evidence in a single pass must keep letter order, got %q", sel.Letter)
	}
	if sel.Votes != nil {
		t.Fatalf("single pass must not emit a vote map, got %v", sel.Votes)
	}
}

func TestSelectIncorrectaPicksLeastSupportedOption(t *testing.T) {
	fx := newSolverFixture(t, DefaultSolverConfig())
	selector := NewSelector(fx.solver, 1, nil, nil)

	// A grounds on artículo 12; B finds no evidence anywhere. Asked for the
	// incorrect option, the selector must pick the unsupported one.
	q := domain.Question{
		Statement: "Señale la opción incorrecta respecto al delegado de protección de datos:",
		Options: map[string]string{
			"A": "Según el artículo 12 de la Ley 3/2018, es designado atendiendo a sus cualidades profesionales.",
			"B": "La Ley regula el régimen tarifario de las telecomunicaciones espaciales.",
		},
		Mode: domain.ModeIncorrect,
	}

	sel, err := selector.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if sel.Letter != "B" {
		t.Fatalf("incorrecta mode must pick the least supported option, got %q", sel.Letter)
	}
}

func TestSelectRetriesRelaxedOnUngroundedResult(t *testing.T) {
	fx := newSolverFixture(t, DefaultSolverConfig())
	fx.store.scrollHits = map[string][]domain.Hit{}

	selector := NewSelector(fx.solver, 1, nil, nil)
	q := domain.Question{
		Statement: "Pregunta sin corpus:",
		Options:   map[string]string{"A": "Uno.", "B": "Dos."},
		Mode:      domain.ModeCorrect,
	}

	sel, err := selector.Select(context.Background(), q)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	// Ungrounded first attempt triggers the relaxed retry for each option:
	// 2 options x 2 attempts, plus the final recompute.
	if fx.observer.calls != 5 {
		t.Fatalf("expected 5 cascade invocations, got %d", fx.observer.calls)
	}
	if sel.Result == nil || sel.Result.HasQuote {
		t.Fatalf("expected ungrounded fallback result, got %+v", sel.Result)
	}
}
