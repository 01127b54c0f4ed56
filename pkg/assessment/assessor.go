package assessment

import (
	"context"
	"time"

	"github.com/dc4eu/vc-cryptocore/pkg/clock"
)

// Assessor evaluates a ClaimIssueResult and reports success or failure.
// Implementations must never panic across ctx cancellation: the composite
// assessor recovers panics into Faulted, but a well-behaved assessor
// returns promptly when ctx is done.
type Assessor interface {
	ID() string
	Assess(ctx context.Context, claims ClaimIssueResult) (bool, error)
}

// AssessmentResult is the outcome of one assessor run against one
// ClaimIssueResult (spec §3 AssessmentResult).
type AssessmentResult struct {
	Success       bool
	AssessorID    string
	ClaimResultID string
	CorrelationID string
	Timestamp     time.Time
	Trace         TraceContext
}

// SimpleAssessor succeeds iff the claim result completed and every claim
// succeeded (spec §4.9 "Simple assessor"). It never errors on
// cancellation; it evaluates whatever claims arrived.
type SimpleAssessor struct {
	id    string
	clock clock.Source
}

// NewSimpleAssessor constructs a SimpleAssessor identified by id.
func NewSimpleAssessor(id string, clk clock.Source) *SimpleAssessor {
	return &SimpleAssessor{id: id, clock: clk}
}

// ID returns the assessor's identifier.
func (a *SimpleAssessor) ID() string { return a.id }

// Assess evaluates claims per the simple-assessor rule. ctx is accepted to
// satisfy the Assessor contract; SimpleAssessor never blocks.
func (a *SimpleAssessor) Assess(ctx context.Context, claims ClaimIssueResult) (bool, error) {
	success := claims.Completion == StatusComplete && claims.AllSucceeded()
	return success, nil
}

// Evaluate runs a against claims and wraps the outcome as an
// AssessmentResult.
func Evaluate(ctx context.Context, a Assessor, claims ClaimIssueResult, correlationID string, clk clock.Source, trace TraceContext) AssessmentResult {
	success, _ := a.Assess(ctx, claims)
	return AssessmentResult{
		Success:       success,
		AssessorID:    a.ID(),
		ClaimResultID: claims.ID,
		CorrelationID: correlationID,
		Timestamp:     clk.UTCNow(),
		Trace:         trace,
	}
}
