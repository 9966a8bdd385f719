// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with SCRIBELINE_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// Credentials may be supplied as a YAML list under ai.credentials or as a
// comma-separated SCRIBELINE_AI_CREDENTIALS / GEMINI_API_KEYS variable.
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCRIBELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("ai.credentials", "SCRIBELINE_AI_CREDENTIALS", "GEMINI_API_KEYS")
	_ = v.BindEnv("ai.proxy_url", "SCRIBELINE_AI_PROXY_URL", "GEMINI_PROXY_URL")
	_ = v.BindEnv("data.database.source", "SCRIBELINE_DATA_DATABASE_SOURCE", "MYSQL_DSN")
	_ = v.BindEnv("data.redis.addr", "SCRIBELINE_DATA_REDIS_ADDR")
	_ = v.BindEnv("log.env", "SCRIBELINE_ENV")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
			Grpc: &Server_GRPC{
				Network:       v.GetString("server.grpc.network"),
				Addr:          v.GetString("server.grpc.addr"),
				Timeout:       v.GetDuration("server.grpc.timeout"),
				KeepaliveTime: v.GetDuration("server.grpc.keepalive_time"),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				Password:     v.GetString("data.redis.password"),
				DB:           v.GetInt("data.redis.db"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
			Cache: &Data_Cache{
				Enabled:   v.GetBool("data.cache.enabled"),
				LocalSize: v.GetInt("data.cache.local_size"),
				LocalTTL:  v.GetDuration("data.cache.local_ttl"),
				RedisTTL:  v.GetDuration("data.cache.redis_ttl"),
			},
		},
		AI: &AI{
			Credentials:    credentials(v.Get("ai.credentials")),
			Model:          v.GetString("ai.model"),
			BaseURL:        v.GetString("ai.base_url"),
			ProxyURL:       v.GetString("ai.proxy_url"),
			RequestTimeout: v.GetDuration("ai.request_timeout"),
			Breaker: &AI_Breaker{
				FailureThreshold: v.GetInt("ai.breaker.failure_threshold"),
				Cooldown:         v.GetDuration("ai.breaker.cooldown"),
				SuccessThreshold: v.GetInt("ai.breaker.success_threshold"),
			},
			Retry: &AI_Retry{
				MaxAttempts:   v.GetInt("ai.retry.max_attempts"),
				RateLimitBase: v.GetDuration("ai.retry.rate_limit_base"),
				RateLimitMax:  v.GetDuration("ai.retry.rate_limit_max"),
				TimeoutDelay:  v.GetDuration("ai.retry.timeout_delay"),
				UnknownDelay:  v.GetDuration("ai.retry.unknown_delay"),
			},
			History: &AI_History{
				Window:   v.GetInt("ai.history.window"),
				MaxNames: v.GetInt("ai.history.max_names"),
			},
			Timeouts: make(map[string]*AI_Timeout, len(Operations)),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	for _, op := range Operations {
		prefix := "ai.timeouts." + op + "."
		bc.AI.Timeouts[op] = &AI_Timeout{
			Strategy:      strings.ToLower(v.GetString(prefix + "strategy")),
			Timeout:       v.GetDuration(prefix + "timeout"),
			Max:           v.GetDuration(prefix + "max"),
			Interval:      v.GetDuration(prefix + "interval"),
			MaxMultiplier: v.GetInt(prefix + "max_multiplier"),
		}
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// credentials normalises the raw credential setting into a list. A string is
// split on commas; list entries are kept as-is so the pool can drop bad ones.
func credentials(raw any) []any {
	switch t := raw.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		parts := strings.Split(t, ",")
		out := make([]any, len(parts))
		for i, s := range parts {
			out[i] = s
		}
		return out
	default:
		return []any{t}
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8000")
	v.SetDefault("server.http.timeout", 10*time.Minute)

	v.SetDefault("server.grpc.network", "tcp")
	v.SetDefault("server.grpc.addr", ":9000")
	v.SetDefault("server.grpc.timeout", 10*time.Minute)
	v.SetDefault("server.grpc.keepalive_time", 2*time.Minute)

	// Data defaults; database and redis stay disabled until a source/addr is set
	v.SetDefault("data.database.driver", "mysql")
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)
	v.SetDefault("data.cache.enabled", false)
	v.SetDefault("data.cache.local_size", 512)
	v.SetDefault("data.cache.local_ttl", 10*time.Minute)
	v.SetDefault("data.cache.redis_ttl", 24*time.Hour)

	// AI defaults
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("ai.request_timeout", 10*time.Minute)

	v.SetDefault("ai.breaker.failure_threshold", 5)
	v.SetDefault("ai.breaker.cooldown", 5*time.Minute)
	v.SetDefault("ai.breaker.success_threshold", 2)

	v.SetDefault("ai.retry.max_attempts", 0)
	v.SetDefault("ai.retry.rate_limit_base", time.Second)
	v.SetDefault("ai.retry.rate_limit_max", 10*time.Second)
	v.SetDefault("ai.retry.timeout_delay", 2*time.Second)
	v.SetDefault("ai.retry.unknown_delay", time.Second)

	v.SetDefault("ai.history.window", 50)
	v.SetDefault("ai.history.max_names", 1024)

	v.SetDefault("ai.timeouts.transcribe.strategy", StrategyProgressive)
	v.SetDefault("ai.timeouts.transcribe.timeout", 5*time.Minute)
	v.SetDefault("ai.timeouts.transcribe.interval", 30*time.Second)

	v.SetDefault("ai.timeouts.analyze_parameters.strategy", StrategyAdaptive)
	v.SetDefault("ai.timeouts.analyze_parameters.timeout", 90*time.Second)
	v.SetDefault("ai.timeouts.analyze_parameters.max_multiplier", 5)

	v.SetDefault("ai.timeouts.analyze_prompt.strategy", StrategyExtendable)
	v.SetDefault("ai.timeouts.analyze_prompt.timeout", 60*time.Second)
	v.SetDefault("ai.timeouts.analyze_prompt.max", 3*time.Minute)

	v.SetDefault("ai.timeouts.action_items.strategy", StrategyAdaptive)
	v.SetDefault("ai.timeouts.action_items.timeout", 60*time.Second)
	v.SetDefault("ai.timeouts.action_items.max_multiplier", 5)

	v.SetDefault("ai.timeouts.chat.strategy", StrategyFixed)
	v.SetDefault("ai.timeouts.chat.timeout", 30*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

var logLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "error": {}, "dpanic": {}, "panic": {}, "fatal": {},
}

// Validate checks the configuration and returns one error listing every
// invalid field. Missing credentials are not an error here; calls fail with
// a CONFIGURATION error instead.
func Validate(bc *Bootstrap) error {
	var invalid []string

	if bc.AI == nil {
		invalid = append(invalid, "ai (section missing)")
	} else {
		if bc.AI.Model == "" {
			invalid = append(invalid, "ai.model (empty)")
		}
		if b := bc.AI.Breaker; b == nil || b.FailureThreshold < 1 || b.SuccessThreshold < 1 || b.Cooldown <= 0 {
			invalid = append(invalid, "ai.breaker (thresholds and cooldown must be positive)")
		}
		if r := bc.AI.Retry; r == nil || r.MaxAttempts < 0 {
			invalid = append(invalid, "ai.retry.max_attempts (must not be negative)")
		}
		for _, op := range Operations {
			invalid = append(invalid, validateTimeout(op, bc.AI.Timeouts[op])...)
		}
	}

	if bc.Log == nil {
		invalid = append(invalid, "log (section missing)")
	} else if _, ok := logLevels[strings.ToLower(bc.Log.Level)]; !ok {
		invalid = append(invalid, fmt.Sprintf("log.level (unknown level %q)", bc.Log.Level))
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalid, ", "))
	}

	return nil
}

func validateTimeout(op string, t *AI_Timeout) []string {
	key := "ai.timeouts." + op
	if t == nil {
		return []string{key + " (missing)"}
	}

	var invalid []string
	switch t.Strategy {
	case StrategyNone:
		return nil
	case StrategyFixed, StrategyProgressive, StrategyAdaptive:
	case StrategyExtendable:
		if t.Max < t.Timeout {
			invalid = append(invalid, key+".max (must be at least timeout)")
		}
	default:
		return []string{fmt.Sprintf("%s.strategy (unknown strategy %q)", key, t.Strategy)}
	}

	if t.Timeout <= 0 {
		invalid = append(invalid, key+".timeout (must be positive)")
	}
	return invalid
}
