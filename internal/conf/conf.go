package conf

import "time"

// Bootstrap is the root configuration.
type Bootstrap struct {
	Server *Server
	Data   *Data
	AI     *AI
	Log    *Log
}

// Server holds listener settings.
type Server struct {
	Http *Server_HTTP
	Grpc *Server_GRPC
}

// Server_HTTP configures the HTTP listener.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Server_GRPC configures the gRPC listener.
type Server_GRPC struct {
	Network string
	Addr    string
	Timeout time.Duration
	// KeepaliveTime is how often the server pings idle clients.
	KeepaliveTime time.Duration
}

// Data holds storage settings. Every store is optional.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
	Cache    *Data_Cache
}

// Data_Database configures the call log database. An empty Source disables it.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis configures the L2 result cache. An empty Addr disables it.
type Data_Redis struct {
	Network      string
	Addr         string
	Password     string
	DB           int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Data_Cache configures the result cache.
type Data_Cache struct {
	Enabled bool
	// LocalSize is the L1 entry limit.
	LocalSize int
	LocalTTL  time.Duration
	RedisTTL  time.Duration
}

// AI configures the orchestrator and its transport.
type AI struct {
	// Credentials is the raw credential list; non-string and blank entries are dropped later.
	Credentials    []any
	Model          string
	BaseURL        string
	ProxyURL       string
	RequestTimeout time.Duration
	Breaker        *AI_Breaker
	Retry          *AI_Retry
	History        *AI_History
	Timeouts       map[string]*AI_Timeout
}

// AI_Breaker configures the per-operation circuit breakers.
type AI_Breaker struct {
	FailureThreshold int
	Cooldown         time.Duration
	SuccessThreshold int
}

// AI_Retry configures backoff delays.
type AI_Retry struct {
	// MaxAttempts caps attempts per call; zero means one attempt per credential.
	MaxAttempts   int
	RateLimitBase time.Duration
	RateLimitMax  time.Duration
	TimeoutDelay  time.Duration
	UnknownDelay  time.Duration
}

// AI_History configures the latency history behind adaptive timeouts.
type AI_History struct {
	Window   int
	MaxNames int
}

// AI_Timeout is a per-operation timeout budget.
type AI_Timeout struct {
	// Strategy is one of none, fixed, extendable, progressive, adaptive.
	Strategy      string
	Timeout       time.Duration
	Max           time.Duration
	Interval      time.Duration
	MaxMultiplier int
}

// Log configures the zap logger.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// Operation names used as circuit, history and timeout keys.
const (
	OpTranscribe        = "transcribe"
	OpAnalyzeParameters = "analyze_parameters"
	OpAnalyzePrompt     = "analyze_prompt"
	OpActionItems       = "action_items"
	OpChat              = "chat"
)

// Operations lists every orchestrated operation.
var Operations = []string{OpTranscribe, OpAnalyzeParameters, OpAnalyzePrompt, OpActionItems, OpChat}

// Timeout strategy names.
const (
	StrategyNone        = "none"
	StrategyFixed       = "fixed"
	StrategyExtendable  = "extendable"
	StrategyProgressive = "progressive"
	StrategyAdaptive    = "adaptive"
)
