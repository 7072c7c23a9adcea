package task

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTags trims, lowercases and deduplicates tags. The first occurrence
// wins and the input order is preserved; entries that end up empty are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := normalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func normalizeTag(tag string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(tag)))
}

// hasTag reports whether the task carries tag, ignoring case.
func hasTag(task *Task, tag string) bool {
	for _, existing := range task.Tags {
		if strings.EqualFold(existing, tag) {
			return true
		}
	}
	return false
}
