package service

import (
	"context"

	_ "github.com/go-kratos/kratos/v2/encoding/json"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// Operation names attached to each route; middleware reads them from the transport.
const (
	OperationAITranscribe         = "/scribeline.v1.AIService/Transcribe"
	OperationAIAnalyzeParameters  = "/scribeline.v1.AIService/AnalyzeParameters"
	OperationAIAnalyzePrompt      = "/scribeline.v1.AIService/AnalyzePrompt"
	OperationAIExtractActionItems = "/scribeline.v1.AIService/ExtractActionItems"
	OperationAIChat               = "/scribeline.v1.AIService/Chat"
	OperationAIListCircuits       = "/scribeline.v1.AIService/ListCircuits"
	OperationAILatencyStats       = "/scribeline.v1.AIService/LatencyStats"
)

// RegisterAIServiceHTTPServer mounts the AI routes on s.
func RegisterAIServiceHTTPServer(s *http.Server, srv *AIService) {
	r := s.Route("/")
	r.POST("/v1/transcribe", bodyHandler(OperationAITranscribe, srv.Transcribe))
	r.POST("/v1/analyze/parameters", bodyHandler(OperationAIAnalyzeParameters, srv.AnalyzeParameters))
	r.POST("/v1/analyze/prompt", bodyHandler(OperationAIAnalyzePrompt, srv.AnalyzePrompt))
	r.POST("/v1/action-items", bodyHandler(OperationAIExtractActionItems, srv.ExtractActionItems))
	r.POST("/v1/chat", bodyHandler(OperationAIChat, srv.Chat))
	r.GET("/v1/circuits", queryHandler(OperationAIListCircuits, srv.ListCircuits))
	r.GET("/v1/latency", queryHandler(OperationAILatencyStats, srv.LatencyStats))
}

// bodyHandler decodes the request body into Req and runs fn through the
// server middleware chain.
func bodyHandler[Req, Reply any](operation string, fn func(context.Context, *Req) (Reply, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in Req
		if err := ctx.Bind(&in); err != nil {
			return err
		}
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return fn(ctx, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

func queryHandler[Reply any](operation string, fn func(context.Context) (Reply, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return fn(ctx)
		})
		out, err := h(ctx, nil)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}
