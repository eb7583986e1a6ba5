package services

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var answerLowercaser = cases.Lower(language.Und)

// NormalizeAnswer lowercases an answer for comparison and storage.
// Lowercase only — no trimming or whitespace collapsing, matching how answers
// have always been compared. A submission with a stray trailing space is wrong.
func NormalizeAnswer(s string) string {
	return answerLowercaser.String(s)
}
