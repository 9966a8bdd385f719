// Package salvage recovers structured JSON from free-form model output.
//
// Model responses often wrap JSON in prose or code fences, leave trailing
// commas, embed raw control characters, or emit several objects back to back
// without an enclosing array. Object and Items run an ordered chain of
// fallbacks and stop at the first one that yields data accepted by the
// caller's Validator:
//
//  1. direct: bracket-matched spans in order of their opener, then the widest
//     {...} span, each parsed strictly and then again after cleanup
//  2. wrapped: back-to-back objects wrapped in [...]
//  3. fragments: the text split on "}," with braces restored per fragment
//  4. fields: per-field regular expressions with zero-value defaults
//
// Every recovered object, whichever step produced it, must pass the Validator.
package salvage

import (
	"encoding/json"
	"regexp"
	"strings"

	aierr "Scribeline/pkg/errors"
)

// Validator accepts or rejects a recovered object.
type Validator func(obj map[string]any) bool

// Any accepts every object.
func Any(map[string]any) bool { return true }

// Step names the fallback that produced a result.
type Step string

const (
	StepDirect    Step = "direct"
	StepWrapped   Step = "wrapped"
	StepFragments Step = "fragments"
	StepFields    Step = "fields"
	StepNone      Step = "none"
)

// maxCandidates bounds how many opening brackets Object tries as span starts.
const maxCandidates = 64

var (
	trailingComma   = regexp.MustCompile(`,\s*([}\]])`)
	controlChars    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	adjacentObjects = regexp.MustCompile(`\}\s*,?\s*\{`)
	missingComma    = regexp.MustCompile(`\}\s*\{`)
	fragmentSplit   = regexp.MustCompile(`\}\s*,`)
	repeatedTitle   = regexp.MustCompile(`"title"\s*:`)
)

// Object recovers a single object accepted by validate. It returns a
// PARSE_FAILURE error when no step produces one.
func Object(text string, validate Validator, fields ...Field) (map[string]any, Step, error) {
	if validate == nil {
		validate = Any
	}

	for _, span := range objectCandidates(text) {
		if v, ok := parseLoose(span); ok {
			if obj, ok := firstAccepted(v, validate); ok {
				return obj, StepDirect, nil
			}
		}
	}

	if looksConcatenated(text) {
		if v, ok := parseWrapped(text); ok {
			if obj, ok := firstAccepted(v, validate); ok {
				return obj, StepWrapped, nil
			}
		}
	}

	if objs := parseFragments(text, validate); len(objs) > 0 {
		return objs[0], StepFragments, nil
	}

	if len(fields) > 0 {
		if obj, found := extractFields(text, fields); found > 0 && validate(obj) {
			return obj, StepFields, nil
		}
	}

	return nil, StepNone, aierr.ParseFailure("", "no valid JSON object could be recovered from model output", nil)
}

// Items recovers a list of objects accepted by validate. It never fails; when
// nothing can be recovered the result is empty.
func Items(text string, validate Validator, fields ...Field) ([]map[string]any, Step) {
	if validate == nil {
		validate = Any
	}

	for _, span := range greedySpans(text) {
		v, ok := parseLoose(span)
		if !ok {
			continue
		}
		items := acceptedItems(v, validate)
		if len(items) > 0 {
			return items, StepDirect
		}
		if isEmptyList(v) {
			return []map[string]any{}, StepDirect
		}
	}

	if looksConcatenated(text) {
		if v, ok := parseWrapped(text); ok {
			if items := acceptedItems(v, validate); len(items) > 0 {
				return items, StepWrapped
			}
		}
	}

	if objs := parseFragments(text, validate); len(objs) > 0 {
		return objs, StepFragments
	}

	if len(fields) > 0 {
		if items := extractRecords(text, fields, validate); len(items) > 0 {
			return items, StepFields
		}
	}

	return []map[string]any{}, StepNone
}

// Clean strips trailing commas before closing brackets, replaces control
// characters and collapses whitespace runs.
func Clean(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = controlChars.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// parseLoose tries a strict parse first so that well-formed input is returned
// unchanged, then retries after Clean.
func parseLoose(s string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, true
	}
	if err := json.Unmarshal([]byte(Clean(s)), &v); err == nil {
		return v, true
	}
	return nil, false
}

func looksConcatenated(text string) bool {
	return adjacentObjects.MatchString(text) || len(repeatedTitle.FindAllStringIndex(text, 2)) > 1
}

func parseWrapped(text string) (any, bool) {
	span, ok := greedySpan(text, '{', '}')
	if !ok {
		return nil, false
	}
	span = missingComma.ReplaceAllString(span, "},{")
	return parseLoose("[" + span + "]")
}

func parseFragments(text string, validate Validator) []map[string]any {
	region, ok := greedySpan(text, '{', '}')
	if !ok {
		return nil
	}

	parts := fragmentSplit.Split(region, -1)
	out := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "[, \t\r\n")
		p = strings.TrimRight(p, "], \t\r\n")
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "{") {
			p = "{" + p
		}
		if !strings.HasSuffix(p, "}") {
			p += "}"
		}

		v, ok := parseLoose(p)
		if !ok {
			continue
		}
		if obj, ok := v.(map[string]any); ok && validate(obj) {
			out = append(out, obj)
		}
	}
	return out
}

func firstAccepted(v any, validate Validator) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		if validate(t) {
			return t, true
		}
	case []any:
		for _, e := range t {
			if obj, ok := e.(map[string]any); ok && validate(obj) {
				return obj, true
			}
		}
	}
	return nil, false
}

// acceptedItems flattens v into validated objects. A top-level object that is
// not itself valid is searched for an array of objects, e.g. {"items": [...]}.
func acceptedItems(v any, validate Validator) []map[string]any {
	switch t := v.(type) {
	case []any:
		return filterObjects(t, validate)
	case map[string]any:
		if validate(t) {
			return []map[string]any{t}
		}
		for _, inner := range t {
			if arr, ok := inner.([]any); ok {
				if items := filterObjects(arr, validate); len(items) > 0 {
					return items
				}
			}
		}
	}
	return nil
}

func filterObjects(arr []any, validate Validator) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if obj, ok := e.(map[string]any); ok && validate(obj) {
			out = append(out, obj)
		}
	}
	return out
}

func isEmptyList(v any) bool {
	switch t := v.(type) {
	case []any:
		return len(t) == 0
	case map[string]any:
		if len(t) != 1 {
			return false
		}
		for _, inner := range t {
			arr, ok := inner.([]any)
			return ok && len(arr) == 0
		}
	}
	return false
}
