// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// stopWords are dropped from queries before measuring term overlap.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"from": true, "how": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "that": true, "the": true, "this": true,
	"to": true, "was": true, "what": true, "when": true, "where": true, "which": true,
	"who": true, "why": true, "will": true, "with": true, "about": true, "into": true,
	"vs": true, "versus": true, "than": true, "their": true, "there": true,
}

// Relevance returns 10 × the fraction of distinct query terms that occur
// in text, comparing English stems. A query with no content terms scores 0.
func Relevance(query, text string) float64 {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return 0
	}
	present := make(map[string]bool)
	for _, tok := range tokenize(text) {
		present[stem(tok)] = true
	}
	matched := 0
	for _, t := range terms {
		if present[t] {
			matched++
		}
	}
	return maxScore * float64(matched) / float64(len(terms))
}

// queryTerms returns the distinct stems of the non-stop-word query tokens.
func queryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tok := range tokenize(query) {
		if stopWords[tok] || (len(tok) < 2 && !isNumeric(tok)) {
			continue
		}
		s := stem(tok)
		if seen[s] {
			continue
		}
		seen[s] = true
		terms = append(terms, s)
	}
	return terms
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func stem(word string) string {
	s, err := snowball.Stem(word, "english", true)
	if err != nil || s == "" {
		return word
	}
	return s
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// actionCues are phrases that mark practical, applicable content.
var actionCues = []string{
	"how to", "guide", "steps", "step by step", "recommend", "best practice",
	"should", "implement", "tutorial", "checklist", "strategy", "framework", "plan",
}

const (
	dataPoints = 4
	cuePoints  = 2
)

// Actionability awards 4 points for quantitative data (digits, percent or
// currency signs) and 2 points per distinct action cue, capped at 10.
func Actionability(text string) float64 {
	lower := strings.ToLower(text)
	var total float64
	if strings.IndexFunc(lower, func(r rune) bool {
		return unicode.IsDigit(r) || r == '%' || r == '$' || r == '€' || r == '£'
	}) >= 0 {
		total += dataPoints
	}

	padded := " " + strings.Join(tokenize(lower), " ") + " "
	for _, cue := range actionCues {
		if strings.Contains(padded, " "+cue+" ") || strings.Contains(padded, " "+cue+"s ") {
			total += cuePoints
		}
	}
	if total > maxScore {
		return maxScore
	}
	return total
}
