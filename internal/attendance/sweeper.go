package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/metrics"
)

// Sweeper applies the terminal auto-absent transition to records whose
// re-check deadline lapsed without a following check-in.
type Sweeper struct {
	records RecordStore
	log     *zap.Logger
}

// NewSweeper builds a sweeper over the record store.
func NewSweeper(records RecordStore, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{records: records, log: log}
}

// SweepResult summarises one sweep run.
type SweepResult struct {
	Processed int `json:"processed_count"`
	Failed    int `json:"failed_count"`
}

// Sweep transitions every expired candidate to ABSENT. Candidates are
// processed independently: a store failure on one record is counted and
// the batch continues. Running twice with the same now is a no-op for
// already-processed records because auto_absent_applied drops them out
// of the scan filter.
func (sw *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	metrics.SweepRunsTotal.Inc()

	candidates, err := sw.records.ScanExpired(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, rec := range candidates {
		// The scan filter should only hand back even-count records with a
		// deadline; re-verify before forcing an absence.
		if rec.RecheckCount <= 0 || rec.RecheckCount%2 != 0 || rec.Deadline == nil {
			sw.log.Warn("sweep candidate failed re-verification",
				zap.Int64("student_id", rec.StudentID),
				zap.Int("week_id", rec.WeekID),
				zap.Int("recheck_count", rec.RecheckCount),
			)
			continue
		}

		note := fmt.Sprintf("auto-absent: re-check deadline %s expired", rec.Deadline.UTC().Format(time.RFC3339))
		applied, err := sw.records.MarkAutoAbsent(ctx, rec, now, note)
		if err != nil {
			res.Failed++
			metrics.SweepFailedTotal.Inc()
			sw.log.Error("sweep transition failed",
				zap.Int64("student_id", rec.StudentID),
				zap.Int("week_id", rec.WeekID),
				zap.Error(err),
			)
			continue
		}
		if !applied {
			// Guard lost: a check-in landed between scan and write.
			sw.log.Info("sweep skipped record superseded by check-in",
				zap.Int64("student_id", rec.StudentID),
				zap.Int("week_id", rec.WeekID),
			)
			continue
		}

		res.Processed++
		metrics.SweepProcessedTotal.Inc()
		sw.log.Info("record auto-marked absent",
			zap.Int64("student_id", rec.StudentID),
			zap.Int("week_id", rec.WeekID),
			zap.Time("deadline", *rec.Deadline),
		)
	}
	return res, nil
}
