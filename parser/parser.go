package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

// RatingFromLabel returns the first character of a star aria-label such as
// "5 estrellas", or the rating fallback when the label is empty.
func RatingFromLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return models.FallbackRating
	}
	r, _ := utf8.DecodeRuneInString(label)
	return string(r)
}

// NormalizeText trims the text and unifies line endings.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text)
}

// Snippet returns at most n runes of text on a single line, for logging.
func Snippet(text string, n int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
