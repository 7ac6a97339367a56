package plan

import "regexp"

var (
	nonWord  = regexp.MustCompile(`[^\w]+`)
	wordRuns = regexp.MustCompile(`_+`)
)

// sanitizeID derives a task id from a target path: path separators and
// any non-word character become underscores, and runs of underscores
// collapse to one.
func sanitizeID(prefix, target string) string {
	cleaned := nonWord.ReplaceAllString(target, "_")
	cleaned = wordRuns.ReplaceAllString(cleaned, "_")
	return prefix + "_" + trim(cleaned)
}

func trim(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == '_' {
		start++
	}
	for end > start && s[end-1] == '_' {
		end--
	}
	return s[start:end]
}
