package usecase

import (
	"context"
	"log/slog"
	"math/rand"

	"github.com/msanchezp/lexrag/internal/core/domain"
)

// Selector decides a full question. With Passes > 1 it runs the anti-bias
// protocol: each pass evaluates the options in an independently shuffled
// order, votes for the best-scoring option, and the letter with most votes
// wins; ties break by whichever letter first won a pass. The random source
// is injected, so a fixed seed makes the whole selection deterministic.
type Selector struct {
	solver *Solver
	passes int
	rng    *rand.Rand
	log    *slog.Logger
}

// NewSelector builds a selector. passes <= 1 disables anti-bias voting and
// evaluates options once in letter order; rng may be nil in that case.
func NewSelector(solver *Solver, passes int, rng *rand.Rand, log *slog.Logger) *Selector {
	if passes < 1 {
		passes = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Selector{solver: solver, passes: passes, rng: rng, log: log}
}

// optionScore orders candidate answers: grounded beats ungrounded, primary
// corpus (articles) beats PDF evidence, then confidence decides.
type optionScore struct {
	hasQuote  bool
	isArticle bool
	conf      float64
}

func (a optionScore) betterThan(b optionScore) bool {
	if a.hasQuote != b.hasQuote {
		return a.hasQuote
	}
	if a.isArticle != b.isArticle {
		return a.isArticle
	}
	return a.conf > b.conf
}

// wins reports whether a beats b for the question's polarity: correcta
// looks for the best-supported option, incorrecta for the least supported
// one.
func wins(a, b optionScore, mode domain.Mode) bool {
	if mode == domain.ModeIncorrect {
		return b.betterThan(a)
	}
	return a.betterThan(b)
}

func scoreOf(res *domain.SolverResult) optionScore {
	if res == nil {
		return optionScore{}
	}
	return optionScore{
		hasQuote:  res.HasQuote,
		isArticle: res.Source.Type == domain.SourceTypeArticle,
		conf:      res.Confidence,
	}
}

// Select implements ports.OptionSelector.
func (s *Selector) Select(ctx context.Context, q domain.Question) (*domain.Selection, error) {
	letters := q.Letters()

	votes := make(map[string]int)
	firstWin := make(map[string]int)
	winConf := make(map[string][]float64)

	for pass := 0; pass < s.passes; pass++ {
		order := append([]string(nil), letters...)
		if s.rng != nil && s.passes > 1 {
			s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var bestLetter string
		var best optionScore
		var bestRes *domain.SolverResult
		for _, letter := range order {
			res := s.solveOnce(ctx, q.Statement, q.Options[letter], q.Mode)
			score := scoreOf(res)
			if bestLetter == "" || wins(score, best, q.Mode) {
				bestLetter, best, bestRes = letter, score, res
			}
		}
		if bestLetter == "" {
			continue
		}
		votes[bestLetter]++
		if _, seen := firstWin[bestLetter]; !seen {
			firstWin[bestLetter] = pass
		}
		if bestRes != nil {
			winConf[bestLetter] = append(winConf[bestLetter], bestRes.Confidence)
		}
	}

	winner := ""
	for _, letter := range letters {
		if winner == "" && votes[letter] > 0 {
			winner = letter
		}
		if votes[letter] > votes[winner] ||
			(votes[letter] == votes[winner] && firstWin[letter] < firstWin[winner]) {
			winner = letter
		}
	}
	if winner == "" {
		return nil, domain.WrapError(domain.ErrNoEvidence, "select option", errNoPassDecided)
	}

	robust := 0.0
	if confs := winConf[winner]; len(confs) > 0 {
		for _, c := range confs {
			robust += c
		}
		robust /= float64(len(confs))
	}

	// Recompute the winner's result with default options so the emitted
	// justification never comes from a relaxed retry.
	final, err := s.solver.Solve(ctx, q.Statement, q.Options[winner], q.Mode)
	if err != nil {
		s.log.Warn("final_recompute_failed", "letter", winner, "error", err)
		final = nil
	}

	sel := &domain.Selection{
		Letter:           winner,
		Result:           final,
		RobustConfidence: robust,
	}
	if s.passes > 1 {
		sel.Votes = votes
	}
	return sel, nil
}

// solveOnce runs the cascade for one option; a failed or ungrounded
// attempt is retried once with relaxed options. Errors degrade to a nil
// result (zero score) instead of failing the pass.
func (s *Selector) solveOnce(ctx context.Context, statement, option string, mode domain.Mode) *domain.SolverResult {
	res, err := s.solver.Solve(ctx, statement, option, mode)
	if err == nil && res != nil && res.HasQuote {
		return res
	}
	if err != nil {
		s.log.Debug("option_solve_failed", "error", err)
	}

	relaxed, rerr := s.solver.SolveWithOptions(ctx, statement, option, mode, s.solver.Options().Relaxed())
	if rerr != nil {
		s.log.Debug("relaxed_solve_failed", "error", rerr)
		return res
	}
	if res == nil || scoreOf(relaxed).betterThan(scoreOf(res)) {
		return relaxed
	}
	return res
}

var errNoPassDecided = errNoPasses{}

type errNoPasses struct{}

func (errNoPasses) Error() string { return "no pass produced a decision" }
