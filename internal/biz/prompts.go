package biz

import (
	"encoding/json"
	"fmt"
	"strings"
)

const transcribePrompt = `Transcribe this audio recording.
Identify each speaker and label them consistently ("Speaker 1", "Speaker 2", ...) unless they introduce themselves.
Respond with a single JSON object and nothing else:
{
  "originalLanguage": "<ISO 639-1 code of the spoken language>",
  "segments": [
    {"speaker": "...", "text": "...", "startTime": "mm:ss", "endTime": "mm:ss", "tone": "...", "sentiment": "positive|neutral|negative", "confidence": 0.0}
  ],
  "summary": "<two or three sentence summary>"
}`

const parameterPromptHeader = `You are evaluating a conversation transcript against the parameters below.
Score each parameter from 0 to 100 and justify the score with evidence from the transcript.

Parameters:
`

const parameterPromptFooter = `
Respond with a single JSON object and nothing else:
{
  "overallScore": <0-100>,
  "parameters": {
    "<parameter id>": {
      "score": <0-100>,
      "summary": "...",
      "strengths": ["..."],
      "improvements": ["..."],
      "specific_examples": ["..."],
      "recommendations": ["..."]
    }
  }
}

Transcript:
`

const customPromptFooter = `

Respond with a single JSON object and nothing else:
{
  "summary": "...",
  "key_findings": ["..."],
  "scores": {"<dimension>": <0-100>},
  "recommendations": ["..."],
  "specific_examples": ["..."]
}

Transcript:
`

const actionItemsPrompt = `Extract every action item agreed or implied in the transcript below.
Respond with a JSON array and nothing else. Each element:
{"title": "...", "description": "...", "priority": "low|medium|high", "deadline": "...", "assignee": "...", "context": "<quote or situation it came from>"}
Respond with [] when there are none.

Transcript:
`

func buildParameterPrompt(transcript string, params []Parameter) string {
	var b strings.Builder
	b.WriteString(parameterPromptHeader)
	for _, p := range params {
		fmt.Fprintf(&b, "- id: %s\n  name: %s\n", p.ID, p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, "  description: %s\n", p.Description)
		}
		if p.Prompt != "" {
			fmt.Fprintf(&b, "  instructions: %s\n", p.Prompt)
		}
	}
	b.WriteString(parameterPromptFooter)
	b.WriteString(transcript)
	return b.String()
}

func buildCustomPrompt(transcript, prompt string) string {
	return strings.TrimSpace(prompt) + customPromptFooter + transcript
}

func buildActionItemsPrompt(transcript string) string {
	return actionItemsPrompt + transcript
}

// flattenTranscript turns a transcription JSON document into "speaker: text"
// lines. Anything that is not such a document is returned unchanged.
func flattenTranscript(input string) string {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return input
	}

	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return input
	}
	if obj, ok := doc.(map[string]any); ok {
		doc = obj["segments"]
	}
	segments, ok := doc.([]any)
	if !ok {
		return input
	}

	lines := make([]string, 0, len(segments))
	for _, v := range segments {
		seg, ok := v.(map[string]any)
		if !ok {
			continue
		}
		text := str(seg["text"])
		if text == "" {
			continue
		}
		speaker := str(seg["speaker"])
		if speaker == "" {
			speaker = "Speaker"
		}
		lines = append(lines, speaker+": "+text)
	}
	if len(lines) == 0 {
		return input
	}
	return strings.Join(lines, "\n")
}
