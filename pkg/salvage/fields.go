package salvage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the JSON type a Field is extracted as.
type Kind int

const (
	String Kind = iota
	Number
	Array
)

// Field describes one key recovered by regular expression when no JSON
// structure survives. Missing fields take the zero value of their Kind.
type Field struct {
	Name string
	Kind Kind
}

func (f Field) pattern() *regexp.Regexp {
	name := regexp.QuoteMeta(f.Name)
	switch f.Kind {
	case Number:
		return regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*(-?\d+(?:\.\d+)?)`, name))
	case Array:
		return regexp.MustCompile(fmt.Sprintf(`(?s)"%s"\s*:\s*\[(.*?)\]`, name))
	default:
		return regexp.MustCompile(fmt.Sprintf(`"%s"\s*:\s*"((?:[^"\\]|\\.)*)"`, name))
	}
}

func (f Field) zero() any {
	switch f.Kind {
	case Number:
		return float64(0)
	case Array:
		return []any{}
	default:
		return ""
	}
}

func (f Field) decode(raw string) any {
	switch f.Kind {
	case Number:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return float64(0)
		}
		return n
	case Array:
		if v, ok := parseLoose("[" + raw + "]"); ok {
			if arr, ok := v.([]any); ok {
				return arr
			}
		}
		out := []any{}
		for _, part := range strings.Split(raw, ",") {
			part = strings.Trim(strings.TrimSpace(part), `"`)
			if part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		if s, err := strconv.Unquote(`"` + raw + `"`); err == nil {
			return s
		}
		return raw
	}
}

// extractFields builds an object from fields found anywhere in text. It
// returns how many fields were actually present.
func extractFields(text string, fields []Field) (map[string]any, int) {
	obj := make(map[string]any, len(fields))
	found := 0
	for _, f := range fields {
		m := f.pattern().FindStringSubmatch(text)
		if m == nil {
			obj[f.Name] = f.zero()
			continue
		}
		obj[f.Name] = f.decode(m[1])
		found++
	}
	return obj, found
}

// extractRecords splits text at each occurrence of the first field's key and
// extracts one object per chunk.
func extractRecords(text string, fields []Field, validate Validator) []map[string]any {
	key := regexp.MustCompile(fmt.Sprintf(`"%s"\s*:`, regexp.QuoteMeta(fields[0].Name)))
	starts := key.FindAllStringIndex(text, -1)

	out := []map[string]any{}
	for i, loc := range starts {
		end := len(text)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		obj, found := extractFields(text[loc[0]:end], fields)
		if found > 0 && validate(obj) {
			out = append(out, obj)
		}
	}
	return out
}
