package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dc4eu/vc-cryptocore/pkg/clock"
	"github.com/dc4eu/vc-cryptocore/pkg/trace"
	"golang.org/x/sync/errgroup"
)

// IndividualStatus classifies how one assessor finished within a composite
// run (spec §4.9 "IndividualAssessorResult").
type IndividualStatus string

const (
	IndividualCompleted IndividualStatus = "completed"
	IndividualCancelled IndividualStatus = "cancelled"
	IndividualTimedOut  IndividualStatus = "timed_out"
	IndividualFaulted   IndividualStatus = "faulted"
)

// IndividualAssessorResult is one assessor's outcome within a composite
// run.
type IndividualAssessorResult struct {
	AssessorID string
	Status     IndividualStatus
	Result     *AssessmentResult
	Err        error
	Duration   time.Duration
	SpanID     string
}

func (r IndividualAssessorResult) succeeded() bool {
	return r.Status == IndividualCompleted && r.Result != nil && r.Result.Success
}

// Strategy scores a composite run's individual results into a final
// success/failure, given whether the underlying claims completed (spec
// §4.9 strategy table).
type Strategy func(claimsComplete bool, individuals []IndividualAssessorResult) bool

// AllMustSucceed requires the claims to have completed and every
// individual to have completed successfully.
func AllMustSucceed() Strategy {
	return func(claimsComplete bool, individuals []IndividualAssessorResult) bool {
		if !claimsComplete || len(individuals) == 0 {
			return false
		}
		for _, ind := range individuals {
			if !ind.succeeded() {
				return false
			}
		}
		return true
	}
}

// AnyMustSucceed requires the claims to have completed and at least one
// individual to have completed successfully.
func AnyMustSucceed() Strategy {
	return func(claimsComplete bool, individuals []IndividualAssessorResult) bool {
		if !claimsComplete {
			return false
		}
		for _, ind := range individuals {
			if ind.succeeded() {
				return true
			}
		}
		return false
	}
}

// MajorityMustSucceed requires the claims to have completed and the
// successful count to exceed floor(N/2).
func MajorityMustSucceed() Strategy {
	return func(claimsComplete bool, individuals []IndividualAssessorResult) bool {
		if !claimsComplete || len(individuals) == 0 {
			return false
		}
		successes := 0
		for _, ind := range individuals {
			if ind.succeeded() {
				successes++
			}
		}
		return successes > len(individuals)/2
	}
}

// QuorumMustSucceed requires the claims to have completed, at least
// requiredQuorum individuals to have completed (regardless of outcome),
// and every completed individual to have succeeded. requiredQuorum <= 0
// defaults to floor(N/2)+1 (spec §4.9: "When required_quorum <= 0 the
// quorum defaults to floor(N/2)+1").
func QuorumMustSucceed(requiredQuorum int) Strategy {
	return func(claimsComplete bool, individuals []IndividualAssessorResult) bool {
		if !claimsComplete || len(individuals) == 0 {
			return false
		}
		quorum := requiredQuorum
		if quorum <= 0 {
			quorum = len(individuals)/2 + 1
		}
		completed := 0
		for _, ind := range individuals {
			if ind.Status == IndividualCompleted {
				completed++
				if !ind.succeeded() {
					return false
				}
			}
		}
		return completed >= quorum
	}
}

// AggregatedAssessmentResult is the outcome of one CompositeAssessor run
// (spec §3 AggregatedAssessmentResult).
type AggregatedAssessmentResult struct {
	Individuals     []IndividualAssessorResult
	Strategy        string
	RequiredQuorum  int
	IsSuccess       bool
	ClaimResultID   string
	CorrelationID   string
	Started         time.Time
	Finished        time.Time
	Trace           TraceContext
}

// CompletedCount, CancelledCount, FaultedCount, TimedOutCount partition
// Individuals by status; their sum always equals len(Individuals) (spec
// §8 universal invariant).
func (r AggregatedAssessmentResult) CompletedCount() int { return r.countStatus(IndividualCompleted) }
func (r AggregatedAssessmentResult) CancelledCount() int { return r.countStatus(IndividualCancelled) }
func (r AggregatedAssessmentResult) FaultedCount() int   { return r.countStatus(IndividualFaulted) }
func (r AggregatedAssessmentResult) TimedOutCount() int  { return r.countStatus(IndividualTimedOut) }

func (r AggregatedAssessmentResult) countStatus(status IndividualStatus) int {
	n := 0
	for _, ind := range r.Individuals {
		if ind.Status == status {
			n++
		}
	}
	return n
}

// assessorSpec pairs an Assessor with its optional per-assessor timeout.
type assessorSpec struct {
	assessor Assessor
	timeout  time.Duration
}

// CompositeAssessor runs N assessors concurrently against the same claim
// result and scores them with a Strategy (spec §4.9 "Composite
// assessor"). It uses golang.org/x/sync/errgroup for the cooperative
// join, grounded in the corpus's one errgroup usage
// (Jointeg-ubirch-cose-client-go/main/main.go's graceful-shutdown
// waitgroup), generalized from a single cancellable background task to N
// bounded-timeout assessment tasks joined under one outer context.
type CompositeAssessor struct {
	specs          []assessorSpec
	strategyName   string
	strategy       Strategy
	requiredQuorum int
	clock          clock.Source
	tracer         *trace.Tracer
}

// NewCompositeAssessor constructs a composite assessor scored by
// strategyName/strategy, running each assessor with its own optional
// timeout.
func NewCompositeAssessor(strategyName string, strategy Strategy, requiredQuorum int, clk clock.Source) *CompositeAssessor {
	return &CompositeAssessor{strategyName: strategyName, strategy: strategy, requiredQuorum: requiredQuorum, clock: clk}
}

// WithTracer attaches t so Run derives real trace_id/span_id from a live
// span instead of relying solely on the caller-supplied TraceContext.
// Returns c for chaining onto NewCompositeAssessor.
func (c *CompositeAssessor) WithTracer(t *trace.Tracer) *CompositeAssessor {
	c.tracer = t
	return c
}

// Add registers assessor to run with the given optional timeout (zero
// means no per-assessor timeout, only the outer ctx governs it).
func (c *CompositeAssessor) Add(assessor Assessor, timeout time.Duration) *CompositeAssessor {
	c.specs = append(c.specs, assessorSpec{assessor: assessor, timeout: timeout})
	return c
}

// Run evaluates every registered assessor against claims concurrently.
// Per-assessor timeout is combined with ctx; external cancellation of ctx
// takes precedence over a per-assessor timeout firing at the same instant
// (spec §9 open question, resolved in favor of the §4.9 table's stated
// intent: "external cancellation wins").
func (c *CompositeAssessor) Run(ctx context.Context, claims ClaimIssueResult, correlationID string, traceCtx TraceContext) AggregatedAssessmentResult {
	started := c.clock.UTCNow()
	results := make([]IndividualAssessorResult, len(c.specs))

	if c.tracer != nil {
		var traceID, spanID string
		ctx, traceID, spanID = c.tracer.StartSpan(ctx, "composite_assessor.run")
		traceCtx.TraceID, traceCtx.SpanID = traceID, spanID
		assessorCount := len(c.specs)
		c.tracer.Annotate(ctx, map[string]any{
			"strategy":       &c.strategyName,
			"correlation_id": &correlationID,
			"assessor_count": &assessorCount,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range c.specs {
		i, spec := i, spec
		g.Go(func() error {
			results[i] = c.runOne(ctx, gctx, spec, claims)
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error; errgroup only joins here

	finished := c.clock.UTCNow()
	claimsComplete := claims.Completion == StatusComplete

	return AggregatedAssessmentResult{
		Individuals:    results,
		Strategy:       c.strategyName,
		RequiredQuorum: c.requiredQuorum,
		IsSuccess:      c.strategy(claimsComplete, results),
		ClaimResultID:  claims.ID,
		CorrelationID:  correlationID,
		Started:        started,
		Finished:       finished,
		Trace:          traceCtx,
	}
}

// runOne evaluates one assessor, classifying the outcome against outerCtx
// (the caller's cancellation token, checked first so it takes precedence)
// and the per-assessor deadline.
func (c *CompositeAssessor) runOne(outerCtx, groupCtx context.Context, spec assessorSpec, claims ClaimIssueResult) IndividualAssessorResult {
	start := time.Now()

	runCtx := groupCtx
	var cancel context.CancelFunc
	if spec.timeout > 0 {
		runCtx, cancel = context.WithTimeout(groupCtx, spec.timeout)
		defer cancel()
	}

	success, err := c.assessSafely(runCtx, spec.assessor, claims)
	duration := time.Since(start)

	if outerCtx.Err() != nil {
		return IndividualAssessorResult{AssessorID: spec.assessor.ID(), Status: IndividualCancelled, Duration: duration}
	}
	if err != nil {
		var fault *ruleFault
		if errors.As(err, &fault) {
			return IndividualAssessorResult{AssessorID: spec.assessor.ID(), Status: IndividualFaulted, Err: err, Duration: duration}
		}
		if runCtx.Err() != nil && spec.timeout > 0 {
			return IndividualAssessorResult{AssessorID: spec.assessor.ID(), Status: IndividualTimedOut, Err: err, Duration: duration}
		}
		return IndividualAssessorResult{AssessorID: spec.assessor.ID(), Status: IndividualFaulted, Err: err, Duration: duration}
	}

	result := AssessmentResult{Success: success, AssessorID: spec.assessor.ID(), ClaimResultID: claims.ID, Timestamp: c.clock.UTCNow()}
	return IndividualAssessorResult{AssessorID: spec.assessor.ID(), Status: IndividualCompleted, Result: &result, Duration: duration}
}

// ruleFault marks an assessor panic recovered by assessSafely, so runOne
// can distinguish "assessor code blew up" from "assessor's context
// expired".
type ruleFault struct{ msg string }

func (f *ruleFault) Error() string { return f.msg }

// assessSafely recovers a panicking Assessor.Assess into a ruleFault
// instead of letting it cross the errgroup goroutine boundary unhandled.
func (c *CompositeAssessor) assessSafely(ctx context.Context, a Assessor, claims ClaimIssueResult) (success bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ruleFault{msg: fmt.Sprintf("assessor %q panicked: %v", a.ID(), r)}
		}
	}()
	return a.Assess(ctx, claims)
}
