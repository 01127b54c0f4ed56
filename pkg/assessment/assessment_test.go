package assessment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dc4eu/vc-cryptocore/pkg/assessment"
	"github.com/dc4eu/vc-cryptocore/pkg/clock"
	"github.com/dc4eu/vc-cryptocore/pkg/configuration"
	"github.com/dc4eu/vc-cryptocore/pkg/logger"
	"github.com/dc4eu/vc-cryptocore/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTracer(t *testing.T) *trace.Tracer {
	t.Helper()
	tracer, err := trace.New(context.Background(), configuration.TraceCfg{ServiceName: "assessment-test"}, logger.NewSimple("assessment-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })
	return tracer
}

func fixedClock() *clock.Fixed {
	return clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func alwaysSucceedsRule(ctx context.Context, input any) ([]assessment.Claim, error) {
	return []assessment.Claim{{Name: "rule", Outcome: assessment.OutcomeSuccess}}, nil
}

func alwaysFailsRule(ctx context.Context, input any) ([]assessment.Claim, error) {
	return []assessment.Claim{{Name: "rule", Outcome: assessment.OutcomeFailure, Detail: "bad"}}, nil
}

func panickyRule(ctx context.Context, input any) ([]assessment.Claim, error) {
	panic("boom")
}

func TestClaimIssuerRunsRulesInOrderAndCompletes(t *testing.T) {
	issuer := assessment.NewClaimIssuer("issuer-1", fixedClock(),
		assessment.NamedRule{Name: "a", Rule: alwaysSucceedsRule},
		assessment.NamedRule{Name: "b", Rule: alwaysSucceedsRule},
	)

	result := issuer.GenerateClaims(context.Background(), nil, "corr-1", assessment.TraceContext{})
	assert.Equal(t, assessment.StatusComplete, result.Completion)
	assert.Equal(t, 2, result.RulesExecuted)
	assert.Equal(t, result.TotalRules, result.RulesExecuted)
	assert.True(t, result.AllSucceeded())
}

func TestClaimIssuerConvertsPanicToFailedClaim(t *testing.T) {
	issuer := assessment.NewClaimIssuer("issuer-1", fixedClock(),
		assessment.NamedRule{Name: "boom-rule", Rule: panickyRule},
	)

	result := issuer.GenerateClaims(context.Background(), nil, "corr-1", assessment.TraceContext{})
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "boom-rule", result.Claims[0].Name)
	assert.Equal(t, assessment.OutcomeFailure, result.Claims[0].Outcome)
	assert.Equal(t, assessment.StatusComplete, result.Completion)
}

func TestClaimIssuerStopsOnPreRuleCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	issuer := assessment.NewClaimIssuer("issuer-1", fixedClock(),
		assessment.NamedRule{Name: "a", Rule: alwaysSucceedsRule},
	)

	result := issuer.GenerateClaims(ctx, nil, "corr-1", assessment.TraceContext{})
	assert.Equal(t, assessment.StatusCancelled, result.Completion)
	assert.Equal(t, 0, result.RulesExecuted)
}

func TestSimpleAssessorSucceedsOnlyWhenCompleteAndAllClaimsSucceed(t *testing.T) {
	assessor := assessment.NewSimpleAssessor("simple-1", fixedClock())

	complete := assessment.ClaimIssueResult{Completion: assessment.StatusComplete, Claims: []assessment.Claim{{Outcome: assessment.OutcomeSuccess}}}
	ok, err := assessor.Assess(context.Background(), complete)
	require.NoError(t, err)
	assert.True(t, ok)

	withFailure := assessment.ClaimIssueResult{Completion: assessment.StatusComplete, Claims: []assessment.Claim{{Outcome: assessment.OutcomeFailure}}}
	ok, err = assessor.Assess(context.Background(), withFailure)
	require.NoError(t, err)
	assert.False(t, ok)

	cancelled := assessment.ClaimIssueResult{Completion: assessment.StatusCancelled, Claims: []assessment.Claim{{Outcome: assessment.OutcomeSuccess}}}
	ok, err = assessor.Assess(context.Background(), cancelled)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fixedAssessor struct {
	id      string
	succeed bool
}

func (f fixedAssessor) ID() string { return f.id }
func (f fixedAssessor) Assess(ctx context.Context, claims assessment.ClaimIssueResult) (bool, error) {
	return f.succeed, nil
}

func TestCompositeStrategiesMatchSpecScenario(t *testing.T) {
	// Five assessors yielding SSSFF (spec §8 scenario 5).
	outcomes := []bool{true, true, true, false, false}
	claims := assessment.ClaimIssueResult{Completion: assessment.StatusComplete}

	build := func(strategy assessment.Strategy, requiredQuorum int) assessment.AggregatedAssessmentResult {
		composite := assessment.NewCompositeAssessor("test", strategy, requiredQuorum, fixedClock())
		for i, ok := range outcomes {
			composite.Add(fixedAssessor{id: string(rune('A' + i)), succeed: ok}, 0)
		}
		return composite.Run(context.Background(), claims, "corr-1", assessment.TraceContext{})
	}

	majority := build(assessment.MajorityMustSucceed(), 0)
	assert.True(t, majority.IsSuccess)

	all := build(assessment.AllMustSucceed(), 0)
	assert.False(t, all.IsSuccess)

	quorum4 := build(assessment.QuorumMustSucceed(4), 4)
	assert.False(t, quorum4.IsSuccess)

	any := build(assessment.AnyMustSucceed(), 0)
	assert.True(t, any.IsSuccess)
}

func TestAggregatedResultCountsSumToIndividualsLength(t *testing.T) {
	claims := assessment.ClaimIssueResult{Completion: assessment.StatusComplete}
	composite := assessment.NewCompositeAssessor("test", assessment.AllMustSucceed(), 0, fixedClock())
	composite.Add(fixedAssessor{id: "x", succeed: true}, 0)
	composite.Add(fixedAssessor{id: "y", succeed: false}, 0)

	result := composite.Run(context.Background(), claims, "corr-1", assessment.TraceContext{})
	total := result.CompletedCount() + result.CancelledCount() + result.FaultedCount() + result.TimedOutCount()
	assert.Equal(t, len(result.Individuals), total)
}

func TestCompositeRunMarksExternalCancellationOverTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := fixedAssessorFunc(func(ctx context.Context) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})

	claims := assessment.ClaimIssueResult{Completion: assessment.StatusComplete}
	composite := assessment.NewCompositeAssessor("test", assessment.AllMustSucceed(), 0, fixedClock())
	composite.Add(slow, time.Millisecond)

	result := composite.Run(ctx, claims, "corr-1", assessment.TraceContext{})
	require.Len(t, result.Individuals, 1)
	assert.Equal(t, assessment.IndividualCancelled, result.Individuals[0].Status)
}

type fixedAssessorFunc func(ctx context.Context) (bool, error)

func (f fixedAssessorFunc) ID() string { return "slow" }
func (f fixedAssessorFunc) Assess(ctx context.Context, claims assessment.ClaimIssueResult) (bool, error) {
	return f(ctx)
}

func TestClaimIssuerWithTracerDerivesTraceContextFromSpan(t *testing.T) {
	issuer := assessment.NewClaimIssuer("issuer-1", fixedClock(),
		assessment.NamedRule{Name: "a", Rule: alwaysSucceedsRule},
	).WithTracer(testTracer(t))

	result := issuer.GenerateClaims(context.Background(), nil, "corr-1", assessment.TraceContext{})
	assert.NotEmpty(t, result.Trace.TraceID)
	assert.NotEmpty(t, result.Trace.SpanID)
}

func TestCompositeRunWithTracerDerivesTraceContextFromSpan(t *testing.T) {
	claims := assessment.ClaimIssueResult{Completion: assessment.StatusComplete}
	composite := assessment.NewCompositeAssessor("test", assessment.AllMustSucceed(), 0, fixedClock()).
		WithTracer(testTracer(t))
	composite.Add(fixedAssessor{id: "x", succeed: true}, 0)

	result := composite.Run(context.Background(), claims, "corr-1", assessment.TraceContext{})
	assert.NotEmpty(t, result.Trace.TraceID)
	assert.NotEmpty(t, result.Trace.SpanID)
}

func TestArchiverForwardsDelegateStatusAndPreservesOrder(t *testing.T) {
	var archived []string
	delegate := func(ctx context.Context, payload assessment.AssessmentResult) (assessment.ArchiveStatus, error) {
		archived = append(archived, payload.AssessorID)
		return assessment.ArchiveStatusStored, nil
	}
	archiver := assessment.NewArchiver(delegate, fixedClock())

	agg := assessment.AggregatedAssessmentResult{
		Individuals: []assessment.IndividualAssessorResult{
			{AssessorID: "a", Status: assessment.IndividualCompleted, Result: &assessment.AssessmentResult{AssessorID: "a", Success: true}},
			{AssessorID: "b", Status: assessment.IndividualFaulted, Err: errors.New("boom")},
			{AssessorID: "c", Status: assessment.IndividualCompleted, Result: &assessment.AssessmentResult{AssessorID: "c", Success: false}},
		},
	}

	records := archiver.ArchiveAggregated(context.Background(), agg, assessment.TraceContext{})
	require.Len(t, records, 2)
	assert.Equal(t, []string{"a", "c"}, archived)
	for _, r := range records {
		assert.Equal(t, assessment.ArchiveStatusStored, r.Status)
	}
}
