// Package biz contains business logic layer implementations.
// It orchestrates calls to the generation service behind retries, circuit
// breakers and timeouts, and turns model output into structured results.
package biz

import (
	"Scribeline/internal/data"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewAIUsecase,
	// Import data layer providers
	data.NewGeminiTransport,
	data.NewResultCache,
	data.NewCallLogger,
	data.NewLogCircuitNotifier,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(Transport), new(*data.GeminiTransport)),
	wire.Bind(new(ResultCache), new(*data.ResultCache)),
	wire.Bind(new(CallRecorder), new(*data.CallLogger)),
	wire.Bind(new(CircuitNotifier), new(*data.LogCircuitNotifier)),
)
