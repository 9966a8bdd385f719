// Package service adapts the orchestrator to the transport layer.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(NewAIService)
