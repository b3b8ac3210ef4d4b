package usecase

// LawGuard filters ranked candidates by expected law. It can only reorder
// preference, never produce an empty choice from a non-empty candidate
// list: when every candidate fails the guard, the fallback is either the
// best-ranked candidate regardless of law (FallbackBest) or an explicitly
// flagged cross-law pick the caller may refuse to quote from.
type LawGuard struct {
	Enabled      bool
	FallbackBest bool
}

// Allows reports whether a candidate attributed to lawID passes the guard
// for expectedLaw. With no expectation, or with the guard disabled,
// everything passes.
func (g LawGuard) Allows(expectedLaw, lawID string) bool {
	if !g.Enabled || expectedLaw == "" {
		return true
	}
	return lawID == expectedLaw
}

// Fallback picks the candidate to use when quote extraction needs a single
// pick from ranked candidates: the first in rank order passing the guard,
// else the best-ranked one. The boolean is false only when the cross-law
// fallback was taken AND FallbackBest is off, signalling the caller to
// treat the pick as attribution-only. A non-empty order always yields a
// valid index.
func (g LawGuard) Fallback(order []rankedCandidate, lawIDs []string, expectedLaw string) (int, bool) {
	if len(order) == 0 {
		return -1, false
	}
	for _, cand := range order {
		if g.Allows(expectedLaw, lawIDs[cand.index]) {
			return cand.index, true
		}
	}
	return order[0].index, g.FallbackBest
}
