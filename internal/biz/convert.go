package biz

import (
	"encoding/json"
	"strconv"
	"strings"

	"Scribeline/pkg/salvage"
)

var (
	transcriptionFields = []salvage.Field{
		{Name: "originalLanguage", Kind: salvage.String},
		{Name: "summary", Kind: salvage.String},
		{Name: "segments", Kind: salvage.Array},
	}

	promptAnalysisFields = []salvage.Field{
		{Name: "summary", Kind: salvage.String},
		{Name: "key_findings", Kind: salvage.Array},
		{Name: "recommendations", Kind: salvage.Array},
		{Name: "specific_examples", Kind: salvage.Array},
	}

	actionItemFields = []salvage.Field{
		{Name: "title", Kind: salvage.String},
		{Name: "description", Kind: salvage.String},
		{Name: "priority", Kind: salvage.String},
		{Name: "deadline", Kind: salvage.String},
		{Name: "assignee", Kind: salvage.String},
		{Name: "context", Kind: salvage.String},
	}
)

func hasSegments(obj map[string]any) bool {
	_, ok := obj["segments"].([]any)
	return ok
}

func hasFindings(obj map[string]any) bool {
	if s, ok := obj["summary"].(string); ok && s != "" {
		return true
	}
	findings, ok := obj["key_findings"].([]any)
	return ok && len(findings) > 0
}

func hasTitle(obj map[string]any) bool {
	return strings.TrimSpace(str(obj["title"])) != ""
}

// parametersValidator accepts a "parameters" map or an object keyed directly by
// one of the enabled parameter ids.
func parametersValidator(params []Parameter) salvage.Validator {
	return func(obj map[string]any) bool {
		if _, ok := obj["parameters"].(map[string]any); ok {
			return true
		}
		for _, p := range params {
			if _, ok := obj[p.ID].(map[string]any); ok {
				return true
			}
		}
		return false
	}
}

// unrecoveredTranscription keeps the raw model output as a single segment.
func unrecoveredTranscription(text string) *Transcription {
	return &Transcription{
		OriginalLanguage: "unknown",
		Segments:         []Segment{{Speaker: "Speaker 1", Text: text}},
	}
}

func toTranscription(obj map[string]any) *Transcription {
	t := &Transcription{
		OriginalLanguage: str(obj["originalLanguage"]),
		Summary:          str(obj["summary"]),
		Segments:         []Segment{},
	}
	if t.OriginalLanguage == "" {
		t.OriginalLanguage = "unknown"
	}

	raw, _ := obj["segments"].([]any)
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				t.Segments = append(t.Segments, Segment{Speaker: "Speaker 1", Text: s})
			}
			continue
		}
		seg := Segment{
			Speaker:   str(m["speaker"]),
			Text:      str(m["text"]),
			StartTime: str(m["startTime"]),
			EndTime:   str(m["endTime"]),
			Tone:      str(m["tone"]),
			Sentiment: str(m["sentiment"]),
		}
		if seg.Text == "" {
			continue
		}
		if seg.Speaker == "" {
			seg.Speaker = "Speaker 1"
		}
		if c, ok := num(m["confidence"]); ok {
			seg.Confidence = &c
		}
		t.Segments = append(t.Segments, seg)
	}
	return t
}

// toParameterAnalysis lists every enabled parameter, clamps scores to 0..100 and
// fills a missing overall score with the mean.
func toParameterAnalysis(obj map[string]any, params []Parameter) *ParameterAnalysis {
	results, ok := obj["parameters"].(map[string]any)
	if !ok {
		results = obj
	}

	out := &ParameterAnalysis{Parameters: make(map[string]ParameterResult, len(params))}
	var total float64
	for _, p := range params {
		m, ok := results[p.ID].(map[string]any)
		if !ok && p.Name != "" {
			m, _ = results[p.Name].(map[string]any)
		}
		score, _ := num(m["score"])
		r := ParameterResult{
			Score:            clampScore(score),
			Summary:          str(m["summary"]),
			Strengths:        strList(m["strengths"]),
			Improvements:     strList(m["improvements"]),
			SpecificExamples: strList(m["specific_examples"]),
			Recommendations:  strList(m["recommendations"]),
		}
		out.Parameters[p.ID] = r
		total += r.Score
	}

	if overall, ok := num(obj["overallScore"]); ok {
		out.OverallScore = clampScore(overall)
	} else if len(params) > 0 {
		out.OverallScore = total / float64(len(params))
	}
	return out
}

func toPromptAnalysis(obj map[string]any) *PromptAnalysis {
	out := &PromptAnalysis{
		Summary:          str(obj["summary"]),
		KeyFindings:      strList(obj["key_findings"]),
		Scores:           map[string]float64{},
		Recommendations:  strList(obj["recommendations"]),
		SpecificExamples: strList(obj["specific_examples"]),
	}
	if scores, ok := obj["scores"].(map[string]any); ok {
		for k, v := range scores {
			if n, ok := num(v); ok {
				out.Scores[k] = n
			}
		}
	}
	return out
}

func toActionItems(objs []map[string]any) []ActionItem {
	items := make([]ActionItem, 0, len(objs))
	for _, m := range objs {
		items = append(items, ActionItem{
			Title:       strings.TrimSpace(str(m["title"])),
			Description: str(m["description"]),
			Priority:    normalizePriority(str(m["priority"])),
			Deadline:    str(m["deadline"]),
			Assignee:    str(m["assignee"]),
			Context:     str(m["context"]),
		})
	}
	return items
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "low", "minor":
		return PriorityLow
	case "high", "urgent", "critical":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

func clampScore(v float64) float64 {
	return min(max(v, 0), 100)
}

// str renders scalars as strings; anything else becomes "".
func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// num accepts JSON numbers and numeric strings such as "85" or "85%".
func num(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(t), "%"), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// strList never returns nil so that empty lists encode as [].
func strList(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s := strings.TrimSpace(str(e)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}
