package assessment

import (
	"context"
	"time"

	"github.com/dc4eu/vc-cryptocore/pkg/clock"
)

// ArchiveStatus reports what an ArchiveDelegate did with a result.
type ArchiveStatus string

const (
	ArchiveStatusStored ArchiveStatus = "stored"
	ArchiveStatusFailed ArchiveStatus = "failed"
)

// ArchiveDelegate persists one AssessmentResult and reports what happened.
// The archiver never interprets the payload it is given (spec §4.9
// "Archiver never interprets the archive payload") — it only forwards to
// the delegate and relays the delegate's status.
type ArchiveDelegate func(ctx context.Context, payload AssessmentResult) (ArchiveStatus, error)

// ArchiveRecord is the archiver's record of one archive attempt.
type ArchiveRecord struct {
	AssessorID string
	Status     ArchiveStatus
	Err        error
	Timestamp  time.Time
	Trace      TraceContext
}

// Archiver gathers trace/span/baggage and an archive timestamp around each
// call to an ArchiveDelegate (spec §4.9 "Archiver").
type Archiver struct {
	delegate ArchiveDelegate
	clock    clock.Source
}

// NewArchiver constructs an Archiver invoking delegate, stamping each
// record with clk.
func NewArchiver(delegate ArchiveDelegate, clk clock.Source) *Archiver {
	return &Archiver{delegate: delegate, clock: clk}
}

// Archive invokes the delegate once for result and returns the resulting
// record.
func (a *Archiver) Archive(ctx context.Context, result AssessmentResult, trace TraceContext) ArchiveRecord {
	status, err := a.delegate(ctx, result)
	return ArchiveRecord{
		AssessorID: result.AssessorID,
		Status:     status,
		Err:        err,
		Timestamp:  a.clock.UTCNow(),
		Trace:      trace,
	}
}

// ArchiveAggregated archives each completed individual result within agg
// separately, preserving iteration order (spec §4.9: "the return list is
// ordered as iterated"; spec §5: "Archiver preserves input order").
func (a *Archiver) ArchiveAggregated(ctx context.Context, agg AggregatedAssessmentResult, trace TraceContext) []ArchiveRecord {
	records := make([]ArchiveRecord, 0, len(agg.Individuals))
	for _, ind := range agg.Individuals {
		if ind.Status != IndividualCompleted || ind.Result == nil {
			continue
		}
		records = append(records, a.Archive(ctx, *ind.Result, trace))
	}
	return records
}
