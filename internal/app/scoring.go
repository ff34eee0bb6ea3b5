package app

import (
	"strings"

	"chromamind-service/internal/domain"
)

// NormalizeAnswer reduces an answer to its first whitespace-delimited token.
// Every path that produces rawAnswers must go through this function; the
// engine compares normalized tokens and a mismatch fails silently as a zero
// contribution. Note the reduction is lossy when two options of one question
// share a first word; the shipped catalog keeps first tokens unique.
func NormalizeAnswer(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// NormalizeAnswers maps NormalizeAnswer over a slice.
func NormalizeAnswers(raw []string) []string {
	out := make([]string, len(raw))
	for i, a := range raw {
		out[i] = NormalizeAnswer(a)
	}
	return out
}

// Score accumulates option weights for an ordered answer sequence and picks
// the winning color. It is pure: no I/O, deterministic for a given catalog.
//
// Position i of answers is matched against catalog question i; positions
// beyond the catalog are ignored. An answer matches the option whose display
// text starts with the same token; no match contributes zero. The winner is
// the arg-max over domain.Categories in order, strict greater-than, so ties
// keep the earlier color.
func Score(answers []string, catalog domain.Catalog) (map[string]int, string) {
	breakdown := make(map[string]int, len(domain.Categories))
	for _, c := range domain.Categories {
		breakdown[c] = 0
	}

	for i, answer := range answers {
		if i >= len(catalog.Questions) {
			break
		}
		opt, ok := findOption(catalog.Questions[i], answer)
		if !ok {
			continue
		}
		for _, c := range domain.Categories {
			breakdown[c] += opt.Weights[c]
		}
	}

	assigned := domain.Categories[0]
	for _, c := range domain.Categories {
		if breakdown[c] > breakdown[assigned] {
			assigned = c
		}
	}
	return breakdown, assigned
}

func findOption(q domain.Question, token string) (domain.Option, bool) {
	if token == "" {
		return domain.Option{}, false
	}
	for _, opt := range q.Options {
		if NormalizeAnswer(opt.Text) == token {
			return opt, true
		}
	}
	return domain.Option{}, false
}
