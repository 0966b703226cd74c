package automation

import (
	"reflect"
	"testing"
)

func TestExtractAnswersJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		size int
		want map[int]string
	}{
		{
			"plain object",
			`{"1": "bebidas", "2": "padaria"}`,
			2,
			map[int]string{1: "bebidas", 2: "padaria"},
		},
		{
			"fenced json",
			"```json\n{\"1\": \"bebidas\", \"2\": \"padaria\"}\n```",
			2,
			map[int]string{1: "bebidas", 2: "padaria"},
		},
		{
			"surrounding prose",
			"Claro! Aqui está a classificação:\n{\"1\": \"bebidas\"}\nEspero ter ajudado.",
			1,
			map[int]string{1: "bebidas"},
		},
		{
			"out of range keys discarded",
			`{"0": "x", "1": "bebidas", "7": "y"}`,
			2,
			map[int]string{1: "bebidas"},
		},
		{
			"empty values discarded",
			`{"1": "", "2": "padaria"}`,
			2,
			map[int]string{2: "padaria"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractAnswers(tt.raw, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractAnswers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractAnswersNumberedLines(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		size int
		want map[int]string
	}{
		{
			"dot style",
			"1. bebidas\n2. padaria",
			2,
			map[int]string{1: "bebidas", 2: "padaria"},
		},
		{
			"paren and colon styles",
			"1) bebidas\n2: padaria\n3 - acougue",
			3,
			map[int]string{1: "bebidas", 2: "padaria", 3: "acougue"},
		},
		{
			"out of range discarded",
			"1. bebidas\n9. padaria",
			2,
			map[int]string{1: "bebidas"},
		},
		{
			"blank lines ignored",
			"\n1. bebidas\n\n2. padaria\n",
			2,
			map[int]string{1: "bebidas", 2: "padaria"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractAnswers(tt.raw, tt.size)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractAnswers() = %v, want %v", got, tt.want)
			}
		})
	}
}

// JSON and numbered-line renditions of the same answers must resolve to
// identical assignments.
func TestExtractAnswersFormatsEquivalent(t *testing.T) {
	fromJSON := extractAnswers(`{"1": "bebidas", "2": "padaria", "3": "acougue"}`, 3)
	fromLines := extractAnswers("1. bebidas\n2. padaria\n3. acougue", 3)
	if !reflect.DeepEqual(fromJSON, fromLines) {
		t.Errorf("JSON %v != numbered lines %v", fromJSON, fromLines)
	}
}

func TestExtractAnswersPositional(t *testing.T) {
	got := extractAnswers("bebidas\npadaria\nacougue", 3)
	want := map[int]string{1: "bebidas", 2: "padaria", 3: "acougue"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractAnswers() = %v, want %v", got, want)
	}

	// Extra lines beyond the batch size are dropped.
	got = extractAnswers("bebidas\npadaria\nacougue", 2)
	want = map[int]string{1: "bebidas", 2: "padaria"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractAnswers() = %v, want %v", got, want)
	}
}

func TestExtractAnswersEmpty(t *testing.T) {
	if got := extractAnswers("", 3); len(got) != 0 {
		t.Errorf("extractAnswers(\"\") = %v, want empty", got)
	}
	if got := extractAnswers("   \n\n  ", 3); len(got) != 0 {
		t.Errorf("extractAnswers(whitespace) = %v, want empty", got)
	}
}

// A JSON object takes precedence over line-based strategies even when
// the text would also parse as lines.
func TestExtractAnswersJSONWins(t *testing.T) {
	raw := "{\"1\": \"bebidas\"}\nalguma linha extra"
	got := extractAnswers(raw, 2)
	want := map[int]string{1: "bebidas"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractAnswers() = %v, want %v", got, want)
	}
}
