package attendance

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory RecordStore shared by service and sweeper tests.
type fakeStore struct {
	recs      map[string]Record
	findErr   error
	upsertErr error
	markErr   map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]Record{}, markErr: map[string]error{}}
}

func fkey(studentID int64, weekID int) string {
	return fmt.Sprintf("%d/%d", studentID, weekID)
}

func (f *fakeStore) Find(_ context.Context, studentID int64, weekID int) (*Record, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, found := f.recs[fkey(studentID, weekID)]
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) Upsert(_ context.Context, rec Record) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.recs[fkey(rec.StudentID, rec.WeekID)] = rec
	return nil
}

func (f *fakeStore) ScanExpired(_ context.Context, now time.Time) ([]Record, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []Record
	for _, rec := range f.recs {
		if rec.Status == StatusPresent && !rec.AutoAbsentApplied &&
			rec.Deadline != nil && rec.Deadline.Before(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkAutoAbsent(_ context.Context, rec Record, now time.Time, note string) (bool, error) {
	key := fkey(rec.StudentID, rec.WeekID)
	if err := f.markErr[key]; err != nil {
		return false, err
	}
	cur, found := f.recs[key]
	if !found || cur.AutoAbsentApplied || cur.Deadline == nil ||
		rec.Deadline == nil || !cur.Deadline.Equal(*rec.Deadline) {
		return false, nil
	}
	cur.Status = StatusAbsent
	cur.AutoAbsentApplied = true
	cur.Deadline = nil
	cur.LastUpdated = now
	cur.Notes = appendNote(cur.Notes, now, note)
	f.recs[key] = cur
	return true, nil
}

type fakeDirectory struct {
	ids map[int64]bool
	err error
}

func (f *fakeDirectory) Exists(_ context.Context, studentID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.ids[studentID], nil
}

func newTestService(store *fakeStore) *Service {
	dir := &fakeDirectory{ids: map[int64]bool{1: true, 7: true}}
	return NewService(store, dir, 15*time.Minute, nil)
}

func TestService_CheckIn_Validation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, 0, 1, t0)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = svc.CheckIn(ctx, -3, 1, t0)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = svc.CheckIn(ctx, 1, 0, t0)
	assert.Equal(t, CodeValidation, CodeOf(err))
	assert.False(t, Retryable(err))
}

func TestService_CheckIn_UnknownStudent(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.CheckIn(context.Background(), 99, 1, t0)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestService_CheckIn_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.findErr = Unavailable("find attendance record", context.DeadlineExceeded)
	svc := newTestService(store)

	_, err := svc.CheckIn(context.Background(), 1, 1, t0)
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.True(t, Retryable(err))
}

func TestService_CheckIn_FirstAndSecond(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.CheckIn(ctx, 1, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Record.RecheckCount)
	assert.False(t, res.IsInTimelock)
	assert.Equal(t, 1, res.TimelockCycle)
	assert.Equal(t, "first check-in, no time limit", res.Message)

	res, err = svc.CheckIn(ctx, 1, 1, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Record.RecheckCount)
	assert.True(t, res.IsInTimelock)
	assert.Equal(t, 1, res.TimelockCycle)
	require.NotNil(t, res.Record.Deadline)
	assert.Equal(t, t0.Add(16*time.Minute), *res.Record.Deadline)

	// Persisted state matches the returned record.
	stored, err := store.Find(ctx, 1, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, res.Record, *stored)
}

func TestService_RecheckStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.RecheckStatusAt(ctx, 0, 1, t0)
	assert.Equal(t, CodeValidation, CodeOf(err))

	st, err := svc.RecheckStatusAt(ctx, 1, 1, t0)
	require.NoError(t, err)
	assert.False(t, st.HasRecord)

	_, err = svc.CheckIn(ctx, 1, 1, t0)
	require.NoError(t, err)
	_, err = svc.CheckIn(ctx, 1, 1, t0.Add(time.Minute))
	require.NoError(t, err)

	st, err = svc.RecheckStatusAt(ctx, 1, 1, t0.Add(6*time.Minute))
	require.NoError(t, err)
	assert.True(t, st.HasRecord)
	assert.Equal(t, 2, st.RecheckCount)
	assert.True(t, st.IsInTimelock)
	assert.False(t, st.IsExpired)
	assert.InDelta(t, 10, st.MinutesRemaining, 0.01)

	st, err = svc.RecheckStatusAt(ctx, 1, 1, t0.Add(20*time.Minute))
	require.NoError(t, err)
	assert.True(t, st.IsExpired)
	assert.Zero(t, st.MinutesRemaining)
}
