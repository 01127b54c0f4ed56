package assessment

import (
	"context"
	"fmt"

	"github.com/dc4eu/vc-cryptocore/pkg/clock"
	"github.com/dc4eu/vc-cryptocore/pkg/trace"
)

// Rule produces zero or more claims for input, cooperating with ctx for
// cancellation. A rule that panics is recovered by the issuer and turned
// into a synthetic FailedClaim rather than propagating (spec §4.9 step 2).
type Rule func(ctx context.Context, input any) ([]Claim, error)

// NamedRule pairs a Rule with the name recorded on its synthetic
// FailedClaim if it fails.
type NamedRule struct {
	Name string
	Rule Rule
}

// ClaimIssuer holds an ordered list of validation rules and generates a
// ClaimIssueResult by running them in order (spec §4.9 "Claim issuer").
type ClaimIssuer struct {
	issuerID string
	rules    []NamedRule
	clock    clock.Source
	tracer   *trace.Tracer
}

// NewClaimIssuer constructs an issuer identified by issuerID, running
// rules in the given order against the time source clk.
func NewClaimIssuer(issuerID string, clk clock.Source, rules ...NamedRule) *ClaimIssuer {
	return &ClaimIssuer{issuerID: issuerID, rules: rules, clock: clk}
}

// WithTracer attaches t so GenerateClaims derives real trace_id/span_id
// from a live span instead of relying solely on the caller-supplied
// TraceContext. Returns ci for chaining onto NewClaimIssuer.
func (ci *ClaimIssuer) WithTracer(t *trace.Tracer) *ClaimIssuer {
	ci.tracer = t
	return ci
}

// GenerateClaims runs every rule in order against input, short-circuiting
// on cancellation, and returns the accumulated result (spec §4.9 steps
// 1-3).
func (ci *ClaimIssuer) GenerateClaims(ctx context.Context, input any, correlationID string, traceCtx TraceContext) ClaimIssueResult {
	if ci.tracer != nil {
		var traceID, spanID string
		ctx, traceID, spanID = ci.tracer.StartSpan(ctx, "claim_issuer.generate_claims")
		traceCtx.TraceID, traceCtx.SpanID = traceID, spanID
		ruleCount := len(ci.rules)
		ci.tracer.Annotate(ctx, map[string]any{
			"issuer_id":      &ci.issuerID,
			"correlation_id": &correlationID,
			"rule_count":     &ruleCount,
		})
	}

	result := ClaimIssueResult{
		ID:            newResultID(),
		IssuerID:      ci.issuerID,
		CorrelationID: correlationID,
		TotalRules:    len(ci.rules),
		Trace:         traceCtx,
	}

	for _, nr := range ci.rules {
		if ctx.Err() != nil {
			result.Completion = StatusCancelled
			result.Timestamp = ci.clock.UTCNow()
			return result
		}

		claims, err := ci.runRule(ctx, nr, input)
		result.RulesExecuted++
		if err != nil {
			result.Claims = append(result.Claims, FailedClaim(nr.Name, err.Error()))
			continue
		}
		result.Claims = append(result.Claims, claims...)

		if ctx.Err() != nil {
			// Cancellation observed while the rule was cooperating; per
			// spec §4.9 step 2, treated identically to pre-rule
			// cancellation.
			result.Completion = StatusCancelled
			result.Timestamp = ci.clock.UTCNow()
			return result
		}
	}

	result.Completion = StatusComplete
	result.Timestamp = ci.clock.UTCNow()
	return result
}

// runRule invokes rule.Rule, recovering a panic into an error so the
// caller always gets a FailedClaim instead of a crashed pipeline.
func (ci *ClaimIssuer) runRule(ctx context.Context, rule NamedRule, input any) (claims []Claim, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule %q panicked: %v", rule.Name, r)
		}
	}()
	return rule.Rule(ctx, input)
}
