package salvage

import "strings"

// greedySpan returns text from the first open to the last close, inclusive.
func greedySpan(text string, open, close byte) (string, bool) {
	i := strings.IndexByte(text, open)
	if i < 0 {
		return "", false
	}
	j := strings.LastIndexByte(text, close)
	if j < i {
		return "", false
	}
	return text[i : j+1], true
}

// greedySpans returns the {...} and [...] greedy spans, the one whose opener
// appears first leading.
func greedySpans(text string) []string {
	obj, okObj := greedySpan(text, '{', '}')
	arr, okArr := greedySpan(text, '[', ']')

	switch {
	case okObj && okArr:
		if strings.IndexByte(text, '[') < strings.IndexByte(text, '{') {
			return []string{arr, obj}
		}
		return []string{obj, arr}
	case okObj:
		return []string{obj}
	case okArr:
		return []string{arr}
	}
	return nil
}

// objectCandidates lists balanced spans in opener order, then the greedy spans.
// A greedy [...] span is dropped when its opener follows the first '{', since
// it would start inside the embedded object.
func objectCandidates(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	tried := 0
	for i := 0; i < len(text) && tried < maxCandidates; i++ {
		if text[i] != '{' && text[i] != '[' {
			continue
		}
		tried++
		if end := matchingClose(text, i); end > 0 {
			add(text[i : end+1])
		}
	}

	if obj, ok := greedySpan(text, '{', '}'); ok {
		add(obj)
	}
	if arr, ok := greedySpan(text, '[', ']'); ok {
		firstObj := strings.IndexByte(text, '{')
		if firstObj < 0 || strings.IndexByte(text, '[') < firstObj {
			add(arr)
		}
	}
	return out
}

// matchingClose returns the index of the bracket closing the one at start, or
// -1. Brackets inside JSON strings are ignored.
func matchingClose(text string, start int) int {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
