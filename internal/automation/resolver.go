package automation

import "strings"

// minContainmentLen guards the substring stage of resolution: candidate
// ids shorter than this match too promiscuously (a two-letter id is
// inside almost any garbage token) and are only matched exactly.
const minContainmentLen = 3

// resolveID maps a classifier-produced token onto one of the known ids.
// The cascade is exact match, case-insensitive match, then containment
// either way. An unresolvable token returns ("", false); it is never
// silently mapped to an arbitrary candidate.
func resolveID(token string, candidates []string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	for _, c := range candidates {
		if token == c {
			return c, true
		}
	}

	lower := strings.ToLower(token)
	for _, c := range candidates {
		if lower == strings.ToLower(c) {
			return c, true
		}
	}

	for _, c := range candidates {
		cl := strings.ToLower(c)
		if len([]rune(cl)) < minContainmentLen {
			continue
		}
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return c, true
		}
	}

	return "", false
}
