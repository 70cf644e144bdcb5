// Package antifraud scores a track-view request against independent heuristics
// and folds them into one allow/deny verdict.
package antifraud

import (
	"context"
	"fmt"
	"golang.org/x/sync/errgroup"
	"time"
	"viewguard/internal/keys"
	"viewguard/internal/providers"
	"viewguard/internal/structures"
)

const (
	ReasonMissingUserAgent     = "MISSING_USER_AGENT"
	ReasonBotUserAgent         = "BOT_USER_AGENT"
	ReasonSuspiciousRate       = "SUSPICIOUS_RATE"
	ReasonSuspiciousPattern    = "SUSPICIOUS_PATTERN"
	ReasonSuspiciousIP         = "SUSPICIOUS_IP"
	ReasonSuspiciousFP         = "SUSPICIOUS_FINGERPRINT"
	ReasonSuspiciousReferrer   = "SUSPICIOUS_REFERRER"
	ReasonSuspiciousLanguage   = "SUSPICIOUS_ACCEPT_LANGUAGE"
	ReasonAntifraudUnavailable = "ANTIFRAUD_UNAVAILABLE"
)

// Request is the context of one redemption attempt. IP and UserAgent are raw
// values; they are hashed before touching the keyed store.
type Request struct {
	IP             string
	UserAgent      string
	Fingerprint    string
	UserID         string
	PromptID       string
	Referrer       string
	AcceptLanguage string
	Timestamp      time.Time
}

type CheckResult struct {
	Allowed    bool
	Reason     string
	Confidence float64
	Metadata   map[string]interface{}
}

// Result is the aggregated verdict. Confidence is in [0,1], 1 meaning
// certainly automated. Failed names the checks that errored.
type Result struct {
	Allowed    bool
	Reason     string
	Confidence float64
	Metadata   map[string]interface{}
	Failed     []string
}

type Check struct {
	Name string
	Run  func(ctx context.Context, req *Request) (CheckResult, error)
}

// Counter is the slice of the keyed store the rate checks need.
type Counter interface {
	IncrWindow(ctx context.Context, key keys.Key, window time.Duration) (int64, error)
}

type Hasher interface {
	ComputeIPHash(ip string) string
	ComputeUAHash(ua string) string
}

type EngineInterface interface {
	Check(ctx context.Context, req Request) Result
}

type Engine struct {
	checks  []Check
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewEngine(conf *structures.Config, counter Counter, hasher Hasher, logger providers.Logger, metrics providers.MetricsProviderInterface) EngineInterface {
	h := &heuristics{conf: conf.Antifraud, counter: counter, hasher: hasher}
	return NewEngineWithChecks(h.checks(), logger, metrics)
}

// NewEngineWithChecks builds an engine over an explicit, ordered check list.
// Order decides which reason surfaces when several checks deny.
func NewEngineWithChecks(checks []Check, logger providers.Logger, metrics providers.MetricsProviderInterface) *Engine {
	return &Engine{checks: checks, logger: logger, metrics: metrics}
}

type outcome struct {
	result CheckResult
	err    error
}

func (e *Engine) Check(ctx context.Context, req Request) Result {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	outcomes := make([]outcome, len(e.checks))

	var g errgroup.Group
	for i, check := range e.checks {
		g.Go(func() error {
			outcomes[i] = runCheck(ctx, check, &req)
			return nil
		})
	}
	_ = g.Wait()

	return e.aggregate(outcomes)
}

func runCheck(ctx context.Context, check Check, req *Request) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("check %s panicked: %v", check.Name, r)}
		}
	}()
	res, err := check.Run(ctx, req)
	return outcome{result: res, err: err}
}

func (e *Engine) aggregate(outcomes []outcome) Result {
	res := Result{Allowed: true, Metadata: map[string]interface{}{}}

	var sum float64
	var succeeded int
	for i, o := range outcomes {
		name := e.checks[i].Name
		if o.err != nil {
			res.Failed = append(res.Failed, name)
			e.logger.Warnf(providers.TypeFraud, "Anti-fraud check %s failed: %v", name, o.err)
			e.metrics.IncAntifraudCheckFailure(name)
			continue
		}

		succeeded++
		sum += o.result.Confidence
		if !o.result.Allowed && res.Allowed {
			res.Allowed = false
			res.Reason = o.result.Reason
		}
		for k, v := range o.result.Metadata {
			res.Metadata[k] = v
		}
	}

	if succeeded == 0 {
		return Result{
			Allowed:    false,
			Reason:     ReasonAntifraudUnavailable,
			Confidence: 1,
			Metadata:   map[string]interface{}{"failedChecks": len(outcomes)},
			Failed:     res.Failed,
		}
	}

	res.Confidence = sum / float64(succeeded)
	return res
}
