package analyze

import "strings"

// ParseVerdict extracts a boolean sensitivity verdict from the
// collaborator's free-text rationale.
//
// Heuristic: the verdict is affirmative when the first line of the
// rationale contains a "yes" token. The model is prompted to answer
// "Yes/No" first, but nothing guarantees structured output, so this
// stays a best-effort text scrape. Callers must treat the rationale as
// the authoritative record and the boolean as a convenience.
func ParseVerdict(rationale string) bool {
	firstLine, _, _ := strings.Cut(rationale, "\n")
	return strings.Contains(strings.ToLower(firstLine), "yes")
}
