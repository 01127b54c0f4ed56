// Package assessment implements the assessment pipeline of spec §4.9: an
// ordered claim issuer, simple and composite assessors scored by a
// pluggable strategy, and an archiver recording completed results. Every
// stage threads a correlation id and a context.Context for cancellation,
// following the teacher's style of passing context.Context as the first
// parameter of any operation that can block (pkg/mdoc, pkg/signing) rather
// than the source system's language-level async.
package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is the result of evaluating a single claim.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Claim is one fact produced by a validation rule.
type Claim struct {
	Name    string
	Outcome Outcome
	Detail  string
}

// FailedClaim builds a synthetic claim recording a rule that panicked or
// returned an error instead of producing claims of its own (spec §4.9
// step 2: "Any exception thrown becomes a synthetic FailedClaim").
func FailedClaim(ruleName, message string) Claim {
	return Claim{Name: ruleName, Outcome: OutcomeFailure, Detail: message}
}

// CompletionStatus reports how a ClaimIssueResult finished.
type CompletionStatus string

const (
	// StatusComplete means every rule ran to completion.
	StatusComplete CompletionStatus = "complete"
	// StatusCancelled means cancellation was observed before or during a
	// rule, truncating the rule list.
	StatusCancelled CompletionStatus = "cancelled"
)

// TraceContext carries the distributed-tracing identifiers threaded
// through every pipeline result, mirroring the teacher's pkg/trace
// propagation fields without depending on a live span.
type TraceContext struct {
	TraceID string
	SpanID  string
	Baggage map[string]string
}

// ClaimIssueResult is the outcome of one ClaimIssuer.GenerateClaims call
// (spec §3 ClaimIssueResult).
type ClaimIssueResult struct {
	ID              string
	IssuerID        string
	CorrelationID   string
	Claims          []Claim
	Timestamp       time.Time
	Completion      CompletionStatus
	RulesExecuted   int
	TotalRules      int
	Trace           TraceContext
}

// AllSucceeded reports whether every claim in the result has OutcomeSuccess.
func (r ClaimIssueResult) AllSucceeded() bool {
	for _, c := range r.Claims {
		if c.Outcome != OutcomeSuccess {
			return false
		}
	}
	return true
}

// newResultID generates a fresh result identifier. Grounded in the
// teacher's use of github.com/google/uuid for correlation identifiers
// throughout pkg/mdoc and pkg/tokenstatuslist.
func newResultID() string {
	return uuid.NewString()
}
