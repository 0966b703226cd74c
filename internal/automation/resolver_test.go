package automation

import "testing"

func TestResolveID(t *testing.T) {
	candidates := []string{"bebidas-refrigerantes", "padaria-paes", "ABC123"}

	tests := []struct {
		name   string
		token  string
		want   string
		wantOK bool
	}{
		{"exact match", "padaria-paes", "padaria-paes", true},
		{"case insensitive", "abc123", "ABC123", true},
		{"token inside candidate", "refrigerantes", "bebidas-refrigerantes", true},
		{"candidate inside token", "id: padaria-paes (pães)", "padaria-paes", true},
		{"whitespace trimmed", "  ABC123  ", "ABC123", true},
		{"no match", "hortifruti", "", false},
		{"empty token", "", "", false},
		{"whitespace only", "   ", "", false},
		{"short token contained in long candidate", "ab", "ABC123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolveID(tt.token, candidates)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("resolveID(%q) = (%q, %v), want (%q, %v)", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// Exact match wins before case folding: with both casings present, the
// literal one is returned.
func TestResolveIDExactBeatsCaseFold(t *testing.T) {
	got, ok := resolveID("abc123", []string{"ABC123", "abc123"})
	if !ok || got != "abc123" {
		t.Errorf("resolveID = (%q, %v), want (\"abc123\", true)", got, ok)
	}
}

// An unresolvable token must never fall back to an arbitrary candidate.
func TestResolveIDNeverGuesses(t *testing.T) {
	candidates := []string{"bebidas", "padaria"}
	if got, ok := resolveID("qq", candidates); ok {
		t.Errorf("resolveID(\"qq\") = (%q, true), want no match", got)
	}
	if got, ok := resolveID("hortifruti", candidates); ok {
		t.Errorf("resolveID(\"hortifruti\") = (%q, true), want no match", got)
	}
}

func TestResolveIDShortExactMatch(t *testing.T) {
	got, ok := resolveID("ab", []string{"ab", "abc"})
	if !ok || got != "ab" {
		t.Errorf("resolveID(\"ab\") = (%q, %v), want (\"ab\", true)", got, ok)
	}
}

// A candidate id shorter than the containment floor must never match as
// a substring of a longer token; only exact and case-folded matches
// reach it.
func TestResolveIDShortCandidateNotContained(t *testing.T) {
	candidates := []string{"tv", "bebidas"}
	if got, ok := resolveID("garbage-tv-token", candidates); ok {
		t.Errorf("resolveID(\"garbage-tv-token\") = (%q, true), want no match", got)
	}
	if got, ok := resolveID("TV", candidates); !ok || got != "tv" {
		t.Errorf("resolveID(\"TV\") = (%q, %v), want (\"tv\", true)", got, ok)
	}
}
