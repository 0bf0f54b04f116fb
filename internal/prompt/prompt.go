// Package prompt implements the assembly engine: resolving a user's answers
// against a category's ordered question list, then filling the category's
// template lines. Everything here is pure (no database, no network), so the
// whole pipeline short of the generation call is unit-testable in isolation.
package prompt

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/promptforge/backend/internal/apperr"
	"github.com/promptforge/backend/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{(\d+)\}`)

// Question is one question in assembly order with the user's current
// unsubmitted answers. For options-type questions PromptTexts maps option id
// to the option's text_to_prompt.
type Question struct {
	ID          string
	Type        string
	IsRequired  bool
	OrderIndex  int
	Values      []string
	PromptTexts map[string]string
}

// Vector is the substitution vector: one slot per question order index,
// 1-based. Slot 0 is reserved and always empty, so template authors write
// {1} for the first question. A slot is "known" if some question occupies
// that index; a known slot may still hold no value.
type Vector struct {
	slots map[int]*string
}

func (v Vector) lookup(i int) (val *string, known bool) {
	val, known = v.slots[i]
	return val, known
}

// Resolve validates every answered question and builds the substitution
// vector (steps 1–2 of the assembly pipeline).
//
// Rules, in order:
//   - the required gate runs as its own pass over every question before any
//     value is validated: a required question with no values at all fails the
//     whole flow with RequiredFieldMissing regardless of the state of the
//     other questions;
//   - an options-type answer must be a syntactically valid option id and is
//     resolved to the option's prompt text, never its display text;
//   - a numeric answer must consist only of digit characters;
//   - a question with several values (multi-select) contributes no slot
//     value: only singular answers substitute into prompts.
func Resolve(questions []Question) (Vector, error) {
	for _, q := range questions {
		if q.IsRequired && len(q.Values) == 0 {
			return Vector{}, apperr.New(apperr.RequiredFieldMissing, "required fields not filled")
		}
	}

	v := Vector{slots: make(map[int]*string, len(questions)+1)}
	v.slots[0] = nil // reserved

	for _, q := range questions {
		v.slots[q.OrderIndex] = nil
		if len(q.Values) != 1 {
			continue
		}
		value := q.Values[0]

		switch q.Type {
		case models.QuestionOptions:
			if _, err := uuid.Parse(value); err != nil {
				return Vector{}, apperr.New(apperr.Validation, "optional questions must have uuid in answer")
			}
			text, ok := q.PromptTexts[value]
			if !ok {
				return Vector{}, apperr.New(apperr.Validation, "answer references unknown option")
			}
			v.slots[q.OrderIndex] = &text
		case models.QuestionNumeric:
			if !isNumeric(value) {
				return Vector{}, apperr.New(apperr.Validation, "answers to questions with numeric type must be numeric")
			}
			v.slots[q.OrderIndex] = &value
		default:
			v.slots[q.OrderIndex] = &value
		}
	}
	return v, nil
}

// Fill prunes and substitutes the template lines (steps 3–4).
//
// A line containing at least one {N} token whose referenced slots are all
// empty is dropped entirely, letting optional questions silently remove whole
// sentences. Lines with no tokens are always kept. Surviving lines are joined
// with newlines, then every token is replaced with its slot's value, using the
// empty string when the slot is empty, since the line survived on account of
// some other token. A token referencing an index no question occupies is a fatal
// template error.
func Fill(lines []string, v Vector) (string, error) {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		refs := placeholderRe.FindAllStringSubmatch(line, -1)
		if len(refs) == 0 {
			kept = append(kept, line)
			continue
		}
		live := false
		for _, m := range refs {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return "", apperr.New(apperr.InvalidPromptTemplate, "Invalid prompt")
			}
			val, known := v.lookup(n)
			if !known {
				return "", apperr.New(apperr.InvalidPromptTemplate, "Invalid prompt")
			}
			if val != nil {
				live = true
			}
		}
		if live {
			kept = append(kept, line)
		}
	}

	joined := strings.Join(kept, "\n")
	return placeholderRe.ReplaceAllStringFunc(joined, func(tok string) string {
		n, _ := strconv.Atoi(tok[1 : len(tok)-1])
		if val, known := v.lookup(n); known && val != nil {
			return *val
		}
		return ""
	}), nil
}

// Assemble runs Resolve and Fill in one call.
func Assemble(questions []Question, lines []string) (string, error) {
	v, err := Resolve(questions)
	if err != nil {
		return "", err
	}
	return Fill(lines, v)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
