package biz

// Segment is one speaker turn of a transcription.
type Segment struct {
	Speaker    string   `json:"speaker"`
	Text       string   `json:"text"`
	StartTime  string   `json:"startTime,omitempty"`
	EndTime    string   `json:"endTime,omitempty"`
	Tone       string   `json:"tone,omitempty"`
	Sentiment  string   `json:"sentiment,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Transcription is the result of Transcribe.
type Transcription struct {
	OriginalLanguage string    `json:"originalLanguage"`
	Segments         []Segment `json:"segments"`
	Summary          string    `json:"summary,omitempty"`
}

// Parameter is one scoring dimension for AnalyzeWithParameters.
type Parameter struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	Enabled     bool   `json:"enabled"`
}

// ParameterResult is the evaluation of one parameter.
type ParameterResult struct {
	Score            float64  `json:"score"`
	Summary          string   `json:"summary"`
	Strengths        []string `json:"strengths"`
	Improvements     []string `json:"improvements"`
	SpecificExamples []string `json:"specific_examples"`
	Recommendations  []string `json:"recommendations"`
}

// ParameterAnalysis is the result of AnalyzeWithParameters, keyed by parameter id.
type ParameterAnalysis struct {
	OverallScore float64                    `json:"overallScore"`
	Parameters   map[string]ParameterResult `json:"parameters"`
}

// PromptAnalysis is the result of AnalyzeWithPrompt.
type PromptAnalysis struct {
	Summary          string             `json:"summary"`
	KeyFindings      []string           `json:"key_findings"`
	Scores           map[string]float64 `json:"scores"`
	Recommendations  []string           `json:"recommendations"`
	SpecificExamples []string           `json:"specific_examples"`
}

// Action item priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ActionItem is one follow-up extracted from a transcript.
type ActionItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Context     string `json:"context"`
}

// LatencyStat summarises the latency history of one operation.
type LatencyStat struct {
	Name    string `json:"name"`
	Samples int    `json:"samples"`
	P90Ms   int64  `json:"p90_ms"`
	// EffectiveTimeoutMs is the current adaptive limit; zero for other strategies.
	EffectiveTimeoutMs int64 `json:"effective_timeout_ms,omitempty"`
}
