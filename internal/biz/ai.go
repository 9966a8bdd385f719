package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"Scribeline/internal/conf"
	"Scribeline/internal/model"
	"Scribeline/pkg/breaker"
	aierr "Scribeline/pkg/errors"
	"Scribeline/pkg/gemini"
	"Scribeline/pkg/keypool"
	pkglog "Scribeline/pkg/log"
	"Scribeline/pkg/retry"
	"Scribeline/pkg/salvage"
	"Scribeline/pkg/timeout"

	"github.com/coder/quartz"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// Purpose prefixes of orchestrated failures.
const (
	purposeTranscribe        = "Audio transcription failed"
	purposeAnalyzeParameters = "Parameter analysis failed"
	purposeAnalyzePrompt     = "Custom analysis failed"
	purposeActionItems       = "Action item extraction failed"
	purposeChat              = "Chat failed"
)

// AIUsecase composes the credential pool, retry controller, circuit breakers
// and timeout strategies around the generation transport. It owns all of that
// state; two instances share nothing.
type AIUsecase struct {
	pool        *keypool.Pool
	transport   Transport
	retrier     *retry.Controller
	breakers    *breaker.Registry
	history     *timeout.History
	strategies  map[string]timeout.Strategy
	maxAttempts int
	cooldown    time.Duration
	probes      int

	cache    ResultCache
	recorder CallRecorder
	notifier CircuitNotifier

	clock  quartz.Clock
	logger *pkglog.LogHelper
}

// NewAIUsecase creates the orchestrator from the ai configuration section.
func NewAIUsecase(c *conf.AI, transport Transport, cache ResultCache, recorder CallRecorder, notifier CircuitNotifier, logger log.Logger) *AIUsecase {
	return newAIUsecase(c, transport, cache, recorder, notifier, logger, quartz.NewReal())
}

func newAIUsecase(c *conf.AI, transport Transport, cache ResultCache, recorder CallRecorder, notifier CircuitNotifier, logger log.Logger, clock quartz.Clock) *AIUsecase {
	if c == nil {
		c = &conf.AI{}
	}

	uc := &AIUsecase{
		pool:       keypool.FromValues(c.Credentials),
		transport:  transport,
		strategies: make(map[string]timeout.Strategy, len(conf.Operations)),
		cooldown:   breaker.DefaultCooldown,
		probes:     breaker.DefaultSuccessThreshold,
		cache:      cache,
		recorder:   recorder,
		notifier:   notifier,
		clock:      clock,
		logger:     pkglog.NewLogHelper(logger),
	}

	window, maxNames := timeout.DefaultWindow, timeout.DefaultMaxNames
	if c.History != nil {
		window, maxNames = c.History.Window, c.History.MaxNames
	}
	uc.history = timeout.NewHistory(window, maxNames)

	for _, op := range conf.Operations {
		uc.strategies[op] = newStrategy(op, c.Timeouts[op], uc.history, clock, logger)
	}

	policy := retry.DefaultPolicy()
	if r := c.Retry; r != nil {
		uc.maxAttempts = r.MaxAttempts
		policy = retry.Policy{
			RateLimitBase: r.RateLimitBase,
			RateLimitMax:  r.RateLimitMax,
			TimeoutDelay:  r.TimeoutDelay,
			UnknownDelay:  r.UnknownDelay,
		}
	}
	uc.retrier = retry.NewController(
		retry.WithPolicy(policy),
		retry.WithClock(clock),
		retry.WithLogger(logger),
		retry.WithObserver(uc.observeAttempt),
	)

	breakerOpts := []breaker.Option{
		breaker.WithClock(clock),
		breaker.WithLogger(logger),
		breaker.WithFailurePredicate(countsAsFailure),
		breaker.WithStateChange(uc.onTransition),
	}
	if b := c.Breaker; b != nil {
		breakerOpts = append(breakerOpts,
			breaker.WithFailureThreshold(b.FailureThreshold),
			breaker.WithCooldown(b.Cooldown),
			breaker.WithSuccessThreshold(b.SuccessThreshold),
		)
		if b.Cooldown > 0 {
			uc.cooldown = b.Cooldown
		}
		if b.SuccessThreshold > 0 {
			uc.probes = b.SuccessThreshold
		}
	}
	uc.breakers = breaker.New(breakerOpts...)

	return uc
}

// countsAsFailure keeps abandoned calls and rejected requests from tripping a circuit.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return !aierr.IsCategory(err, aierr.CategoryInvalidRequest)
}

// call describes one orchestrated operation.
type call[T any] struct {
	op      string
	purpose string
	req     *gemini.Request
	// cacheKey is empty for results that must not be cached.
	cacheKey string
	parse    func(text string) (T, salvage.Step, error)
}

// execute runs c through cache, retry, breaker, credential rotation, timeout and parser.
func execute[T any](ctx context.Context, uc *AIUsecase, c call[T]) (T, error) {
	var zero T
	start := uc.clock.Now()
	rec := &model.CallRecord{
		ID:        uuid.NewString(),
		RequestID: pkglog.GetRequestID(ctx),
		Operation: c.op,
		Model:     uc.transport.Model(),
		CreatedAt: start,
	}

	if c.cacheKey != "" && uc.cache != nil {
		var cached T
		if err := uc.cache.Get(ctx, c.cacheKey, &cached); err == nil {
			CacheLookups.WithLabelValues(c.op, "hit").Inc()
			uc.logger.Cache("result cache hit", "operation", c.op)
			rec.CacheHit = true
			uc.finish(ctx, rec, start, 0, nil)
			return cached, nil
		}
		CacheLookups.WithLabelValues(c.op, "miss").Inc()
	}

	if _, err := uc.pool.Current(); err != nil {
		wrapped := aierr.Wrap(err, c.op, c.purpose)
		uc.finish(ctx, rec, start, 0, wrapped)
		return zero, wrapped
	}

	attempts := 0
	text, err := retry.Do(ctx, uc.retrier, c.op, uc.attemptLimit(), func(ctx context.Context, a retry.Attempt) (string, error) {
		attempts = a.Number
		return breaker.Call(ctx, uc.breakers, c.op, func(ctx context.Context) (string, error) {
			key, err := uc.pool.Next()
			if err != nil {
				return "", err
			}
			return timeout.Run(ctx, uc.strategies[c.op], c.op, func(ctx context.Context) (string, error) {
				resp, err := uc.transport.Generate(ctx, key, c.req)
				if err != nil {
					return "", err
				}
				return resp.Text, nil
			})
		})
	})
	if err != nil {
		wrapped := aierr.Wrap(err, c.op, c.purpose)
		uc.finish(ctx, rec, start, attempts, wrapped)
		return zero, wrapped
	}

	v, step, err := c.parse(text)
	rec.ParseStep = string(step)
	if step != "" {
		ParseSteps.WithLabelValues(c.op, string(step)).Inc()
	}
	if err != nil {
		wrapped := aierr.Wrap(err, c.op, c.purpose)
		wrapped.Attempts = attempts
		uc.finish(ctx, rec, start, attempts, wrapped)
		return zero, wrapped
	}
	if step != "" && step != salvage.StepDirect {
		uc.logger.Parse("recovered model output with fallback", "operation", c.op, "step", string(step))
	}

	if c.cacheKey != "" && uc.cache != nil && step != salvage.StepNone {
		if err := uc.cache.Set(ctx, c.cacheKey, v); err != nil {
			uc.logger.Cache("result cache write failed", "operation", c.op, "error", err.Error())
		}
	}

	uc.finish(ctx, rec, start, attempts, nil)
	return v, nil
}

func (uc *AIUsecase) attemptLimit() int {
	if uc.maxAttempts > 0 {
		return uc.maxAttempts
	}
	return uc.pool.Size()
}

func (uc *AIUsecase) finish(ctx context.Context, rec *model.CallRecord, start time.Time, attempts int, err error) {
	rec.Latency = uc.clock.Since(start)
	rec.Attempts = attempts
	rec.Outcome = model.OutcomeSuccess
	if err != nil {
		rec.Outcome = model.OutcomeFailure
		rec.Category = aierr.CategoryOf(err).String()
		rec.Error = err.Error()
		var ae *aierr.AIError
		if errors.As(err, &ae) && ae.Attempts > 0 {
			rec.Attempts = ae.Attempts
		}
	}

	CallsTotal.WithLabelValues(rec.Operation, rec.Outcome, rec.Category).Inc()
	if uc.recorder != nil {
		uc.recorder.RecordCall(ctx, rec)
	}
	uc.logger.CallCompleted(ctx, rec.Operation, rec.Attempts, rec.Latency.Milliseconds(), rec.Category,
		"call_id", rec.ID,
		"cache_hit", rec.CacheHit,
		"parse_step", rec.ParseStep)
}

func (uc *AIUsecase) observeAttempt(r retry.Result) {
	category := "none"
	if r.Err != nil {
		category = r.Category.String()
	}
	AttemptsTotal.WithLabelValues(r.Operation, category).Inc()
	AttemptLatency.WithLabelValues(r.Operation).Observe(r.Latency.Seconds())

	switch {
	case r.Err == nil:
		// Adaptive strategies record their own successes.
		if _, ok := uc.strategies[r.Operation].(*timeout.Adaptive); !ok {
			uc.history.Record(r.Operation, r.Latency)
		}
	case r.Category == aierr.CategoryTimeout:
		TimeoutsTotal.WithLabelValues(r.Operation).Inc()
		uc.logger.Timeout("upstream attempt timed out",
			"operation", r.Operation,
			"attempt", r.Number,
			"latency_ms", r.Latency.Milliseconds())
	}
}

func (uc *AIUsecase) onTransition(t breaker.Transition) {
	CircuitState.WithLabelValues(t.Name).Set(float64(t.To))
	CircuitTransitions.WithLabelValues(t.Name, t.To.String()).Inc()

	ctx := context.Background()
	switch t.To {
	case breaker.Open:
		uc.logger.Circuit("circuit opened", "operation", t.Name, "failure_count", t.Snapshot.FailureCount)
		uc.recordCircuit(ctx, model.EventCircuitOpened, t)
		if uc.notifier != nil {
			err := uc.notifier.NotifyCircuitOpened(ctx, &model.CircuitOpenedEvent{
				Name:         t.Name,
				FailureCount: t.Snapshot.FailureCount,
				OpenedAt:     t.At,
				RetryAt:      t.At.Add(uc.cooldown),
			})
			if err != nil {
				uc.logger.Warnw("msg", "circuit notification failed", "operation", t.Name, "error", err.Error())
			}
		}
	case breaker.HalfOpen:
		uc.recordCircuit(ctx, model.EventCircuitHalfOpen, t)
	case breaker.Closed:
		if t.From != breaker.HalfOpen {
			return
		}
		uc.logger.Circuit("circuit recovered", "operation", t.Name, "open_ms", t.At.Sub(t.OpenedAt).Milliseconds())
		uc.recordCircuit(ctx, model.EventCircuitRecovered, t)
		if uc.notifier != nil {
			err := uc.notifier.NotifyCircuitRecovered(ctx, &model.CircuitRecoveredEvent{
				Name:         t.Name,
				OpenDuration: t.At.Sub(t.OpenedAt),
				ProbeCount:   uc.probes,
			})
			if err != nil {
				uc.logger.Warnw("msg", "circuit notification failed", "operation", t.Name, "error", err.Error())
			}
		}
	}
}

func (uc *AIUsecase) recordCircuit(ctx context.Context, event string, t breaker.Transition) {
	if uc.recorder != nil {
		uc.recorder.RecordCircuitEvent(ctx, event, t.Name, t.Snapshot.FailureCount)
	}
}

func invalid(op, purpose, msg string) error {
	return aierr.Wrap(aierr.New(aierr.CategoryInvalidRequest, op, msg), op, purpose)
}

// cacheKey hashes the operation, model and every input part.
func cacheKey(op, model string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte{0})
	h.Write([]byte(model))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write(p)
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))
}

// Transcribe converts audio into speaker segments. Output that cannot be
// recovered as JSON is returned as a single segment in language "unknown".
func (uc *AIUsecase) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcription, error) {
	if len(audio) == 0 {
		return nil, invalid(conf.OpTranscribe, purposeTranscribe, "audio is empty")
	}
	if strings.TrimSpace(mimeType) == "" {
		return nil, invalid(conf.OpTranscribe, purposeTranscribe, "mime type is required")
	}

	req := gemini.Prompt(gemini.Text(transcribePrompt), gemini.Blob(mimeType, audio))
	req.JSON = true

	return execute(ctx, uc, call[*Transcription]{
		op:       conf.OpTranscribe,
		purpose:  purposeTranscribe,
		req:      req,
		cacheKey: cacheKey(conf.OpTranscribe, uc.transport.Model(), []byte(mimeType), audio),
		parse: func(text string) (*Transcription, salvage.Step, error) {
			obj, step, err := salvage.Object(text, hasSegments, transcriptionFields...)
			if err != nil {
				return unrecoveredTranscription(text), salvage.StepNone, nil
			}
			return toTranscription(obj), step, nil
		},
	})
}

// AnalyzeWithParameters scores a transcript against every enabled parameter.
func (uc *AIUsecase) AnalyzeWithParameters(ctx context.Context, transcript string, params []Parameter) (*ParameterAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, invalid(conf.OpAnalyzeParameters, purposeAnalyzeParameters, "transcript is empty")
	}
	enabled := make([]Parameter, 0, len(params))
	for _, p := range params {
		if p.Enabled && strings.TrimSpace(p.ID) != "" {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return nil, invalid(conf.OpAnalyzeParameters, purposeAnalyzeParameters, "no enabled parameters")
	}

	req := gemini.Prompt(gemini.Text(buildParameterPrompt(transcript, enabled)))
	req.JSON = true
	spec, _ := json.Marshal(enabled)

	return execute(ctx, uc, call[*ParameterAnalysis]{
		op:       conf.OpAnalyzeParameters,
		purpose:  purposeAnalyzeParameters,
		req:      req,
		cacheKey: cacheKey(conf.OpAnalyzeParameters, uc.transport.Model(), []byte(transcript), spec),
		parse: func(text string) (*ParameterAnalysis, salvage.Step, error) {
			obj, step, err := salvage.Object(text, parametersValidator(enabled))
			if err != nil {
				return nil, step, err
			}
			return toParameterAnalysis(obj, enabled), step, nil
		},
	})
}

// AnalyzeWithPrompt analyses a transcript following free-form instructions.
func (uc *AIUsecase) AnalyzeWithPrompt(ctx context.Context, transcript, prompt string) (*PromptAnalysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, invalid(conf.OpAnalyzePrompt, purposeAnalyzePrompt, "transcript is empty")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, invalid(conf.OpAnalyzePrompt, purposeAnalyzePrompt, "prompt is empty")
	}

	req := gemini.Prompt(gemini.Text(buildCustomPrompt(transcript, prompt)))
	req.JSON = true

	return execute(ctx, uc, call[*PromptAnalysis]{
		op:       conf.OpAnalyzePrompt,
		purpose:  purposeAnalyzePrompt,
		req:      req,
		cacheKey: cacheKey(conf.OpAnalyzePrompt, uc.transport.Model(), []byte(transcript), []byte(prompt)),
		parse: func(text string) (*PromptAnalysis, salvage.Step, error) {
			obj, step, err := salvage.Object(text, hasFindings, promptAnalysisFields...)
			if err != nil {
				return nil, step, err
			}
			return toPromptAnalysis(obj), step, nil
		},
	})
}

// ExtractActionItems lists the follow-ups in a transcript, given as plain text
// or as a transcription JSON document. Unrecoverable output yields an empty list.
func (uc *AIUsecase) ExtractActionItems(ctx context.Context, input string) ([]ActionItem, error) {
	transcript := flattenTranscript(input)
	if strings.TrimSpace(transcript) == "" {
		return nil, invalid(conf.OpActionItems, purposeActionItems, "transcript is empty")
	}

	req := gemini.Prompt(gemini.Text(buildActionItemsPrompt(transcript)))
	req.JSON = true

	return execute(ctx, uc, call[[]ActionItem]{
		op:       conf.OpActionItems,
		purpose:  purposeActionItems,
		req:      req,
		cacheKey: cacheKey(conf.OpActionItems, uc.transport.Model(), []byte(transcript)),
		parse: func(text string) ([]ActionItem, salvage.Step, error) {
			objs, step := salvage.Items(text, hasTitle, actionItemFields...)
			return toActionItems(objs), step, nil
		},
	})
}

// Chat sends a free-form prompt and returns the model's text.
func (uc *AIUsecase) Chat(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", invalid(conf.OpChat, purposeChat, "prompt is empty")
	}

	return execute(ctx, uc, call[string]{
		op:      conf.OpChat,
		purpose: purposeChat,
		req:     gemini.Prompt(gemini.Text(prompt)),
		parse: func(text string) (string, salvage.Step, error) {
			return text, "", nil
		},
	})
}

// CircuitStates returns the circuit of every operation.
func (uc *AIUsecase) CircuitStates() []breaker.Snapshot {
	out := make([]breaker.Snapshot, 0, len(conf.Operations))
	for _, op := range conf.Operations {
		out = append(out, uc.breakers.State(op))
	}
	return out
}

// LatencyStats returns the latency history summary of every operation.
func (uc *AIUsecase) LatencyStats() []LatencyStat {
	out := make([]LatencyStat, 0, len(conf.Operations))
	for _, op := range conf.Operations {
		stat := LatencyStat{Name: op, Samples: uc.history.Len(op)}
		if p90, ok := uc.history.P90(op); ok {
			stat.P90Ms = p90.Milliseconds()
		}
		if a, ok := uc.strategies[op].(*timeout.Adaptive); ok {
			stat.EffectiveTimeoutMs = a.Effective(op).Milliseconds()
		}
		out = append(out, stat)
	}
	return out
}

// CredentialCount returns how many usable credentials are configured.
func (uc *AIUsecase) CredentialCount() int {
	return uc.pool.Size()
}
