package llm

import "strings"

// extractStrategy attempts to locate a JSON payload inside raw model
// output. The bool reports whether the strategy matched.
type extractStrategy func(text string) (string, bool)

// strategies are tried in order; the first match wins. Kept separate from
// JSON parsing so each heuristic is testable on its own.
var strategies = []extractStrategy{
	fencedBlock("json"),
	fencedBlock(""),
	trimToBrace,
}

// ExtractJSON returns a best-effort JSON text span from free-form model
// output. This is a heuristic, not a guarantee: callers must still handle
// parse failure, and an unparsable result means the whole operation failed,
// never an empty result.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	for _, strategy := range strategies {
		if payload, ok := strategy(text); ok {
			return strings.TrimSpace(payload)
		}
	}
	return text
}

// fencedBlock matches the first ``` block whose language tag equals tag.
// An empty tag matches any fence.
func fencedBlock(tag string) extractStrategy {
	return func(text string) (string, bool) {
		marker := "```" + tag
		start := strings.Index(text, marker)
		if start < 0 {
			return "", false
		}
		rest := text[start+len(marker):]
		// A tagless fence must not swallow a tagged one's language word;
		// content starts after the first newline when a tag-like word follows.
		if tag == "" {
			if nl := strings.Index(rest, "\n"); nl >= 0 && nl < 20 && !strings.ContainsAny(rest[:nl], "{[") {
				rest = rest[nl+1:]
			}
		}
		end := strings.Index(rest, "```")
		if end < 0 {
			return rest, true
		}
		return rest[:end], true
	}
}

// trimToBrace drops leading prose before the first opening brace. Text that
// already begins with a JSON object or array passes through untouched.
func trimToBrace(text string) (string, bool) {
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text, true
	}
	if start := strings.Index(text, "{"); start >= 0 {
		return text[start:], true
	}
	return "", false
}
