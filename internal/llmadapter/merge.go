package llmadapter

import (
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`(?:[.!?])\s+`)

// mergeOverlap appends continuation onto prior, removing any sentences
// at the start of continuation that duplicate sentences at the end of
// prior. Models asked to "continue from your last complete sentence"
// frequently re-emit that sentence verbatim before continuing; this
// keeps the merged text from repeating it.
func mergeOverlap(prior, continuation string) string {
	priorSentences := splitSentences(prior)
	contSentences := splitSentences(continuation)
	if len(priorSentences) == 0 || len(contSentences) == 0 {
		return prior + continuation
	}

	overlap := 0
	maxCheck := min(len(priorSentences), len(contSentences))
	for n := maxCheck; n > 0; n-- {
		if sentencesEqual(priorSentences[len(priorSentences)-n:], contSentences[:n]) {
			overlap = n
			break
		}
	}

	remaining := contSentences[overlap:]
	if len(remaining) == 0 {
		return prior
	}

	// Cut the original continuation text after the overlapping sentences
	// so the rest keeps its own punctuation and spacing.
	rest := strings.TrimSpace(continuation)
	if overlap > 0 {
		bounds := sentenceBoundary.FindAllStringIndex(rest, -1)
		if overlap <= len(bounds) {
			rest = rest[bounds[overlap-1][1]:]
		} else {
			rest = strings.Join(remaining, " ")
		}
	}

	joiner := ""
	if !strings.HasSuffix(strings.TrimRight(prior, " \t"), "\n") {
		joiner = " "
	}
	return prior + joiner + rest
}

func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	parts := sentenceBoundary.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sentencesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(strings.ToLower(a[i])) != strings.TrimSpace(strings.ToLower(b[i])) {
			return false
		}
	}
	return true
}
