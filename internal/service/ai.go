package service

import (
	"context"
	"encoding/json"
	"time"

	"Scribeline/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// TranscribeRequest carries base64 encoded audio.
type TranscribeRequest struct {
	Audio    []byte `json:"audio"`
	MimeType string `json:"mime_type"`
}

// AnalyzeParametersRequest scores a transcript against configured parameters.
type AnalyzeParametersRequest struct {
	Transcript string          `json:"transcript"`
	Parameters []biz.Parameter `json:"parameters"`
}

// AnalyzePromptRequest analyses a transcript with free-form instructions.
type AnalyzePromptRequest struct {
	Transcript string `json:"transcript"`
	Prompt     string `json:"prompt"`
}

// ActionItemsRequest accepts either a plain transcript or a transcription document.
type ActionItemsRequest struct {
	Transcript    string          `json:"transcript"`
	Transcription json.RawMessage `json:"transcription,omitempty"`
}

type ActionItemsReply struct {
	Items []biz.ActionItem `json:"items"`
}

type ChatRequest struct {
	Prompt string `json:"prompt"`
}

type ChatReply struct {
	Text string `json:"text"`
}

// CircuitStatus is the public view of one circuit.
type CircuitStatus struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	FailureCount int        `json:"failure_count"`
	SuccessCount int        `json:"success_count"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

type CircuitsReply struct {
	Circuits    []CircuitStatus `json:"circuits"`
	Credentials int             `json:"credentials"`
}

type LatencyReply struct {
	Operations []biz.LatencyStat `json:"operations"`
}

// AIService exposes the orchestrator over HTTP.
type AIService struct {
	uc     *biz.AIUsecase
	logger *log.Helper
}

// NewAIService creates a new AIService instance.
func NewAIService(uc *biz.AIUsecase, logger log.Logger) *AIService {
	return &AIService{
		uc:     uc,
		logger: log.NewHelper(logger),
	}
}

// Transcribe converts audio into speaker segments.
func (s *AIService) Transcribe(ctx context.Context, req *TranscribeRequest) (*biz.Transcription, error) {
	s.logger.Debugw("msg", "Transcribe called", "mime_type", req.MimeType, "bytes", len(req.Audio))

	out, err := s.uc.Transcribe(ctx, req.Audio, req.MimeType)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// AnalyzeParameters scores a transcript against every enabled parameter.
func (s *AIService) AnalyzeParameters(ctx context.Context, req *AnalyzeParametersRequest) (*biz.ParameterAnalysis, error) {
	s.logger.Debugw("msg", "AnalyzeParameters called", "parameters", len(req.Parameters))

	out, err := s.uc.AnalyzeWithParameters(ctx, req.Transcript, req.Parameters)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// AnalyzePrompt analyses a transcript with free-form instructions.
func (s *AIService) AnalyzePrompt(ctx context.Context, req *AnalyzePromptRequest) (*biz.PromptAnalysis, error) {
	s.logger.Debugw("msg", "AnalyzePrompt called", "prompt_len", len(req.Prompt))

	out, err := s.uc.AnalyzeWithPrompt(ctx, req.Transcript, req.Prompt)
	if err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// ExtractActionItems lists follow-ups. A transcription document takes
// precedence over the plain transcript.
func (s *AIService) ExtractActionItems(ctx context.Context, req *ActionItemsRequest) (*ActionItemsReply, error) {
	input := req.Transcript
	if len(req.Transcription) > 0 && string(req.Transcription) != "null" {
		input = string(req.Transcription)
	}

	items, err := s.uc.ExtractActionItems(ctx, input)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ActionItemsReply{Items: items}, nil
}

// Chat sends a free-form prompt.
func (s *AIService) Chat(ctx context.Context, req *ChatRequest) (*ChatReply, error) {
	text, err := s.uc.Chat(ctx, req.Prompt)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ChatReply{Text: text}, nil
}

// ListCircuits reports the circuit of every operation.
func (s *AIService) ListCircuits(_ context.Context) (*CircuitsReply, error) {
	snapshots := s.uc.CircuitStates()
	reply := &CircuitsReply{
		Circuits:    make([]CircuitStatus, 0, len(snapshots)),
		Credentials: s.uc.CredentialCount(),
	}
	for _, snap := range snapshots {
		cs := CircuitStatus{
			Name:         snap.Name,
			State:        snap.State.String(),
			FailureCount: snap.FailureCount,
			SuccessCount: snap.SuccessCount,
		}
		if !snap.LastFailure.IsZero() {
			t := snap.LastFailure
			cs.LastFailure = &t
		}
		reply.Circuits = append(reply.Circuits, cs)
	}
	return reply, nil
}

// LatencyStats reports the latency history of every operation.
func (s *AIService) LatencyStats(_ context.Context) (*LatencyReply, error) {
	return &LatencyReply{Operations: s.uc.LatencyStats()}, nil
}
