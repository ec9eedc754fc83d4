// Package summarize builds short extractive summaries of article text.
package summarize

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxSentences is used when a non-positive sentence count is given.
	DefaultMaxSentences = 3

	// minLength is the shortest text worth summarizing, in bytes.
	minLength = 100
)

// Summarize returns up to maxSentences sentences of text, chosen by the mean
// normalized frequency of their significant words and kept in their original
// order. Short text, and text with no more than maxSentences sentences, is
// returned unchanged. It never panics.
func Summarize(text string, maxSentences int) (summary string) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	if len(text) < minLength {
		return text
	}

	defer func() {
		if r := recover(); r != nil {
			summary = Lead(text, maxSentences)
		}
	}()

	sentences := SplitSentences(text)
	if len(sentences) <= maxSentences {
		return text
	}

	freq := wordFrequency(sentences)
	if len(freq) == 0 {
		return Lead(text, maxSentences)
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		ranked[i] = scored{index: i, score: sentenceScore(s, freq)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	top := ranked[:maxSentences]
	sort.Slice(top, func(i, j int) bool { return top[i].index < top[j].index })

	parts := make([]string, len(top))
	for i, s := range top {
		parts[i] = sentences[s.index]
	}
	return strings.Join(parts, " ")
}

// Lead returns the first maxSentences sentences of text.
func Lead(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " ")
}

// SplitSentences splits whitespace-normalized text after '.', '!' or '?'
// when followed by a space or the end of the text.
func SplitSentences(text string) []string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(clean); i++ {
		switch clean[i] {
		case '.', '!', '?':
			if i+1 == len(clean) || clean[i+1] == ' ' {
				if s := strings.TrimSpace(clean[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(clean[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func wordFrequency(sentences []string) map[string]float64 {
	counts := make(map[string]float64)
	maxCount := 0.0
	for _, s := range sentences {
		for _, w := range words(s) {
			if len([]rune(w)) <= 2 || isStopword(w) {
				continue
			}
			counts[w]++
			if counts[w] > maxCount {
				maxCount = counts[w]
			}
		}
	}
	for w := range counts {
		counts[w] /= maxCount
	}
	return counts
}

func sentenceScore(sentence string, freq map[string]float64) float64 {
	var total float64
	n := 0
	for _, w := range words(sentence) {
		if weight, ok := freq[w]; ok {
			total += weight
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// words lowercases s, strips diacritics and splits it into alphanumeric tokens.
func words(s string) []string {
	// Chained transformers keep state, so each call builds its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
