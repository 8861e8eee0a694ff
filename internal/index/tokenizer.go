package index

import (
	"regexp"
	"strings"
)

// wordPattern matches runs of letters and digits across alphabets. \p{L}
// covers both Latin and Cyrillic, which the partner corpus mixes freely.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize lowercases the text and splits it into word tokens, stripping
// punctuation. Used for both indexing and queries so the two always agree.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// termFrequency counts token occurrences.
func termFrequency(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
