package retrieval

import (
	"math"
	"strings"
	"unicode/utf8"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"to": {}, "of": {}, "in": {}, "for": {}, "on": {}, "with": {}, "as": {}, "at": {}, "by": {}, "from": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {}, "be": {}, "been": {}, "being": {},
}

// Tokenize returns the lowercased runs of ASCII letters in text, stopwords removed.
// Digits, punctuation and non-ASCII letters separate tokens.
func Tokenize(text string) []string {
	var tokens []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := strings.ToLower(text[start:end])
		if _, stop := stopwords[tok]; !stop {
			tokens = append(tokens, tok)
		}
		start = -1
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

// TermFrequencies counts tokens and returns the counts with their L2 norm.
// An empty token list has norm 1 so cosine scores stay finite.
func TermFrequencies(tokens []string) (map[string]float64, float64) {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	var sum float64
	for _, v := range tf {
		sum += v * v
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	return tf, norm
}

// Cosine is the dot product of two term vectors divided by their norms.
func Cosine(q map[string]float64, qNorm float64, d map[string]float64, dNorm float64) float64 {
	var dot float64
	for t, v := range q {
		dot += v * d[t]
	}
	return dot / (qNorm * dNorm)
}

// ChunkText collapses whitespace and cuts the text into windows of size runes,
// each window starting overlap runes before the end of the previous one.
func ChunkText(text string, size, overlap int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); {
		end := min(len(runes), i+size)
		chunks = append(chunks, string(runes[i:end]))
		if end >= len(runes) {
			break
		}
		i = max(0, end-overlap)
	}
	return chunks
}
