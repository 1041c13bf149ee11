package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_NothingExpired(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, 1, 1, t0)
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, 1, 1, t0.Add(time.Minute))
	require.NoError(t, err)

	// Deadline is t0+16min; sweeping before it changes nothing.
	res, err := NewSweeper(store, nil).Sweep(ctx, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Failed)

	rec, _ := store.Find(ctx, 1, 1)
	assert.Equal(t, StatusPresent, rec.Status)
	assert.False(t, rec.AutoAbsentApplied)
}

func TestSweeper_ExpiredRecordScenario(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	sweeper := NewSweeper(store, nil)
	ctx := context.Background()

	// check-in at t=0: no time limit.
	res1, err := svc.CheckIn(ctx, 1, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, res1.Record.RecheckCount)
	assert.Nil(t, res1.Record.Deadline)

	// check-in at t=1min: timelock until t=16min.
	res2, err := svc.CheckIn(ctx, 1, 1, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, res2.Record.RecheckCount)
	require.NotNil(t, res2.Record.Deadline)
	assert.Equal(t, t0.Add(16*time.Minute), *res2.Record.Deadline)

	// No further check-in; sweep past the deadline forces absence.
	sweep, err := sweeper.Sweep(ctx, t0.Add(16*time.Minute+time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.Processed)
	assert.Zero(t, sweep.Failed)

	rec, _ := store.Find(ctx, 1, 1)
	assert.Equal(t, StatusAbsent, rec.Status)
	assert.True(t, rec.AutoAbsentApplied)
	assert.Nil(t, rec.Deadline)
	assert.Contains(t, rec.Notes, "auto-absent")
	assert.Equal(t, 2, rec.RecheckCount)

	// A second sweep with the same now is a no-op.
	sweep, err = sweeper.Sweep(ctx, t0.Add(16*time.Minute+time.Second))
	require.NoError(t, err)
	assert.Zero(t, sweep.Processed)

	// check-in at t=17min reclaims the record and continues the sequence.
	res3, err := svc.CheckIn(ctx, 1, 1, t0.Add(17*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, res3.Record.RecheckCount)
	assert.Equal(t, StatusPresent, res3.Record.Status)
	assert.False(t, res3.Record.AutoAbsentApplied)
	assert.Nil(t, res3.Record.Deadline)
}

func TestSweeper_SkipsOddCountCandidates(t *testing.T) {
	store := newFakeStore()
	deadline := t0.Add(-time.Minute)
	store.recs[fkey(1, 1)] = Record{
		StudentID:    1,
		WeekID:       1,
		Status:       StatusPresent,
		RecheckCount: 3, // should never carry a deadline; defensive skip
		Deadline:     &deadline,
	}

	res, err := NewSweeper(store, nil).Sweep(context.Background(), t0)
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Zero(t, res.Failed)

	rec, _ := store.Find(context.Background(), 1, 1)
	assert.Equal(t, StatusPresent, rec.Status)
}

func TestSweeper_FailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	for i := int64(1); i <= 3; i++ {
		deadline := t0.Add(-time.Minute)
		store.recs[fkey(i, 1)] = Record{
			StudentID:    i,
			WeekID:       1,
			Status:       StatusPresent,
			RecheckCount: 2,
			Deadline:     &deadline,
		}
	}
	store.markErr[fkey(2, 1)] = Unavailable("apply auto-absent", context.DeadlineExceeded)

	res, err := NewSweeper(store, nil).Sweep(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)
}

func TestSweeper_GuardLostToFreshCheckin(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, 1, 1, t0)
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, 1, 1, t0.Add(time.Minute))
	require.NoError(t, err)

	// Snapshot of the expired candidate, as a sweep would have read it.
	stale, err := store.Find(ctx, 1, 1)
	require.NoError(t, err)

	// A third check-in lands before the sweep writes.
	_, err = svc.CheckIn(ctx, 1, 1, t0.Add(16*time.Minute+time.Second))
	require.NoError(t, err)

	applied, err := store.MarkAutoAbsent(ctx, *stale, t0.Add(16*time.Minute+2*time.Second), "auto-absent")
	require.NoError(t, err)
	assert.False(t, applied, "stale sweep write must not clobber a fresh check-in")

	rec, _ := store.Find(ctx, 1, 1)
	assert.Equal(t, StatusPresent, rec.Status)
	assert.Equal(t, 3, rec.RecheckCount)
}
