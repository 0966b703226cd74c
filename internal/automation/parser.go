package automation

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Classifier answers for batch prompts come back in whatever shape the
// model felt like producing. extractAnswers tries, in order:
//
//  1. a JSON object mapping 1-based item numbers to tokens,
//  2. numbered lines ("1. token", "2) token", "3: token"),
//  3. bare lines taken positionally.
//
// The first strategy that yields at least one answer wins. Keys outside
// [1, size] are discarded.
func extractAnswers(raw string, size int) map[int]string {
	for _, parse := range []func(string, int) map[int]string{
		parseJSONObject,
		parseNumberedLines,
		parsePositionalLines,
	} {
		if answers := parse(raw, size); len(answers) > 0 {
			return answers
		}
	}
	return map[int]string{}
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// parseJSONObject finds the first JSON object in the text, tolerating
// markdown code fences and surrounding prose.
func parseJSONObject(raw string, size int) map[int]string {
	candidate := raw
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	}
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &obj); err != nil {
		return nil
	}

	answers := make(map[int]string)
	for key, val := range obj {
		idx, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || idx < 1 || idx > size {
			continue
		}
		if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
			answers[idx] = strings.TrimSpace(s)
		}
	}
	return answers
}

var numberedLineRe = regexp.MustCompile(`^\s*(\d+)\s*[\.\):\-]\s*(.+)$`)

// parseNumberedLines reads "N. token" style answers, one per line.
func parseNumberedLines(raw string, size int) map[int]string {
	answers := make(map[int]string)
	for _, line := range strings.Split(raw, "\n") {
		m := numberedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > size {
			continue
		}
		if token := strings.TrimSpace(m[2]); token != "" {
			answers[idx] = token
		}
	}
	return answers
}

// parsePositionalLines is the last resort: non-empty lines are taken in
// order as answers for items 1..size.
func parsePositionalLines(raw string, size int) map[int]string {
	answers := make(map[int]string)
	idx := 1
	for _, line := range strings.Split(raw, "\n") {
		token := strings.TrimSpace(line)
		if token == "" {
			continue
		}
		if idx > size {
			break
		}
		answers[idx] = token
		idx++
	}
	return answers
}
