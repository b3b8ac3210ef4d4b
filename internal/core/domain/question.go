package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Question is a parsed multiple-choice question file.
type Question struct {
	Statement string
	Options   map[string]string // letter -> option text
	Gold      string            // optional expected letter, "" when absent
	Mode      Mode
}

var (
	optionLineRe = regexp.MustCompile(`^\s*([A-Da-d])[\).\-]\s*(.+)$`)
	goldLineRe   = regexp.MustCompile(`(?i)^\s*(?:correcta|respuesta)\s*:\s*([A-Da-d])\s*$`)
	modeLineRe   = regexp.MustCompile(`(?i)^\s*modo\s*:\s*(correcta|incorrecta)\s*$`)
)

// incorrectCues flag questions that ask for the wrong option when no
// explicit mode line is present.
var incorrectCues = []string{
	"señala la incorrecta",
	"señale la incorrecta",
	"indica la incorrecta",
	"indique la incorrecta",
	"no es correcta",
	"no es cierta",
	"es falsa",
	"excepto",
	"salvo",
}

// ParseQuestion parses the raw text of a question file: a statement block,
// options labelled A)–D) (continuation lines are appended to the previous
// option), and optional "Correcta:" and "Modo:" trailer lines. It returns
// ErrInvalidFormat when there is no statement or fewer than two options.
func ParseQuestion(raw string) (Question, error) {
	q := Question{Options: make(map[string]string), Mode: ModeCorrect}

	var statement []string
	current := ""
	explicitMode := false

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := goldLineRe.FindStringSubmatch(trimmed); m != nil {
			q.Gold = strings.ToUpper(m[1])
			continue
		}
		if m := modeLineRe.FindStringSubmatch(trimmed); m != nil {
			q.Mode = Mode(strings.ToLower(m[1]))
			explicitMode = true
			continue
		}
		if m := optionLineRe.FindStringSubmatch(trimmed); m != nil {
			current = strings.ToUpper(m[1])
			q.Options[current] = strings.TrimSpace(m[2])
			continue
		}
		if current != "" {
			q.Options[current] += " " + trimmed
			continue
		}
		statement = append(statement, trimmed)
	}

	q.Statement = strings.Join(statement, " ")
	if q.Statement == "" {
		return Question{}, WrapError(ErrInvalidFormat, "parse question", fmt.Errorf("empty statement"))
	}
	if len(q.Options) < 2 {
		return Question{}, WrapError(ErrInvalidFormat, "parse question", fmt.Errorf("found %d options, need at least 2", len(q.Options)))
	}

	if !explicitMode && inferIncorrectMode(q.Statement) {
		q.Mode = ModeIncorrect
	}
	return q, nil
}

func inferIncorrectMode(statement string) bool {
	s := strings.ToLower(statement)
	for _, cue := range incorrectCues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

// Letters returns the option letters present, in A..D order.
func (q Question) Letters() []string {
	letters := make([]string, 0, len(q.Options))
	for l := range q.Options {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}
