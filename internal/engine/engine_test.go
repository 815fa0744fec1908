package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/dataset"
	"github.com/roach88/tally/internal/model"
	"github.com/roach88/tally/internal/report"
	"github.com/roach88/tally/internal/store"
	"github.com/roach88/tally/internal/testutil"
	"github.com/roach88/tally/internal/transfer"
)

type fixture struct {
	eng   *Engine
	mem   *store.Memory
	clock *testutil.FakeClock
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds an engine over the sample dataset at the reference
// instant with ids e-1, e-2, ...
func newFixture(t *testing.T) fixture {
	t.Helper()
	mem := store.NewMemoryWith(testutil.SampleDataset())
	clock := testutil.NewFakeClock(testutil.Reference)
	eng, err := New(context.Background(), mem,
		WithClock(clock),
		WithIDGenerator(model.NewSequenceGenerator("e")),
		WithLocation(time.UTC),
		WithLogger(discardLogger()),
	)
	require.NoError(t, err)
	return fixture{eng: eng, mem: mem, clock: clock}
}

func activeIDs(d model.Dataset) []string {
	var ids []string
	for _, s := range d.Subjects {
		if s.IsActive {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func TestNew_DefaultsWhenNothingStored(t *testing.T) {
	eng, err := New(context.Background(), store.NewMemory(0),
		WithClock(testutil.NewFakeClock(testutil.Reference)),
		WithLogger(discardLogger()))
	require.NoError(t, err)

	d := eng.Snapshot()
	require.Len(t, d.Types, 3)
	assert.Equal(t, "Courses", d.Types[0].Name)
	require.Len(t, d.Subjects, 3)
	assert.Equal(t, "React Course", d.Subjects[0].Name)
	assert.Empty(t, d.TimeEntries)
	assert.Equal(t, model.CurrentVersion, d.Version)
}

type brokenLoader struct{ store.Memory }

func (b *brokenLoader) Load(context.Context) (model.Dataset, error) {
	return model.Dataset{}, errors.New("corrupt")
}

func TestNew_LoadFailureIsReturned(t *testing.T) {
	_, err := New(context.Background(), &brokenLoader{}, WithLogger(discardLogger()))
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupt")
}

func TestNew_NormalizesStoredDataset(t *testing.T) {
	d := testutil.SampleDataset()
	start := int64(1)
	d.Version = "0.9.0"
	d.Subjects[0].StartTime = &start // idle with a start time
	mem := store.NewMemoryWith(d)

	eng, err := New(context.Background(), mem, WithLogger(discardLogger()))
	require.NoError(t, err)

	got := eng.Snapshot()
	assert.Equal(t, model.CurrentVersion, got.Version)
	assert.Nil(t, got.Subjects[0].StartTime)
	assert.Empty(t, eng.Check())
}

func TestStart_IdleSubject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stopped, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, stopped)

	s, ok := f.eng.Active()
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, testutil.Reference.UnixMilli(), *s.StartTime)
	assert.Equal(t, 1, f.mem.Saves())
}

func TestStart_ImplicitlyStopsOtherSubject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(25 * time.Minute)

	stopped, err := f.eng.Start(ctx, "s2")
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, "s1", stopped.SubjectID)
	assert.Equal(t, int64(1500), stopped.Duration)

	d := f.eng.Snapshot()
	assert.Equal(t, []string{"s2"}, activeIDs(d))
	require.Len(t, d.TimeEntries, 1)
	assert.Equal(t, int64(1500), d.Subjects[0].TotalTime)

	// implicit stop and start are one commit
	assert.Equal(t, 2, f.mem.Saves())
	stored, err := f.mem.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, d, stored)
}

func TestStart_AlreadyTrackingIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	stopped, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, stopped)

	s, _ := f.eng.Active()
	assert.Equal(t, testutil.Reference.UnixMilli(), *s.StartTime, "start time must not move")
	assert.Equal(t, 1, f.mem.Saves())
}

func TestStart_UnknownSubject(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Start(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownSubject)
	assert.Equal(t, 0, f.mem.Saves())
}

func TestStop_CommitsEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s3")
	require.NoError(t, err)
	f.clock.Advance(10*time.Minute + 999*time.Millisecond)

	entry, err := f.eng.Stop(ctx, "s3")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "e-1", entry.ID)
	assert.Equal(t, int64(600), entry.Duration, "sub-second remainder is floored")
	assert.Equal(t, testutil.Reference.UnixMilli(), entry.StartTime)
	assert.Equal(t, "2026-03-18", entry.Date)

	_, tracking := f.eng.Active()
	assert.False(t, tracking)
	assert.Empty(t, f.eng.Check())
}

func TestStop_IdleIsNoop(t *testing.T) {
	f := newFixture(t)
	before := f.eng.Snapshot()

	entry, err := f.eng.Stop(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Equal(t, before, f.eng.Snapshot())
	assert.Equal(t, 0, f.mem.Saves())
}

func TestStop_ClockSkewClampsToZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Set(testutil.Reference.Add(-time.Hour))

	entry, err := f.eng.Stop(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(0), entry.Duration)
	assert.Equal(t, entry.StartTime, entry.EndTime)
}

func TestStopActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.eng.StopActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, entry)

	_, err = f.eng.Start(ctx, "s2")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	entry, err = f.eng.StopActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "s2", entry.SubjectID)
}

func TestToggle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr, err := f.eng.Toggle(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Transition{Started: "s1"}, tr)

	f.clock.Advance(30 * time.Second)
	tr, err = f.eng.Toggle(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", tr.Started)
	require.NotNil(t, tr.Stopped)
	assert.Equal(t, "s1", tr.Stopped.SubjectID)

	f.clock.Advance(30 * time.Second)
	tr, err = f.eng.Toggle(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, tr.Started)
	require.NotNil(t, tr.Stopped)
	assert.Equal(t, int64(30), tr.Stopped.Duration)

	_, err = f.eng.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownSubject)
}

func TestToggle_RandomSequencesKeepOneActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	ids := []string{"s1", "s2", "s3"}

	for i := 0; i < 500; i++ {
		f.clock.Advance(time.Duration(rng.Intn(120)) * time.Second)
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(3) {
		case 0:
			_, err := f.eng.Toggle(ctx, id)
			require.NoError(t, err)
		case 1:
			_, err := f.eng.Start(ctx, id)
			require.NoError(t, err)
		default:
			_, err := f.eng.Stop(ctx, id)
			require.NoError(t, err)
		}

		d := f.eng.Snapshot()
		require.LessOrEqual(t, len(activeIDs(d)), 1, "step %d", i)
		require.Empty(t, model.Check(d), "step %d", i)
	}
}

func TestToggle_StopInFlightIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	require.True(t, f.eng.stopping.Acquire("s1"))
	tr, err := f.eng.Toggle(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, Transition{}, tr)
	assert.Empty(t, f.eng.Snapshot().TimeEntries)
	f.eng.stopping.Release("s1")

	tr, err = f.eng.Toggle(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, tr.Stopped)
	assert.Equal(t, int64(60), tr.Stopped.Duration)
	assert.False(t, f.eng.stopping.InFlight("s1"))
}

func TestToggle_ConcurrentResultsMatchState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan Transition, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := f.eng.Start(ctx, "s1")
				assert.NoError(t, err)
				return
			}
			tr, err := f.eng.Toggle(ctx, "s1")
			assert.NoError(t, err)
			results <- tr
		}(i)
	}
	wg.Wait()
	close(results)

	// Only toggles stop s1, so every entry is a reported stop. Every reported
	// start opened a session that is either closed now or still open.
	started, stopped := 0, 0
	for tr := range results {
		if tr.Started != "" {
			started++
		}
		if tr.Stopped != nil {
			stopped++
		}
	}
	d := f.eng.Snapshot()
	sessions := len(d.TimeEntries)
	if s, ok := d.FindSubject("s1"); ok && s.Tracking() {
		sessions++
	}
	assert.Len(t, d.TimeEntries, stopped)
	assert.LessOrEqual(t, started, sessions)
	assert.Empty(t, model.Check(d))
}

// blockingStore holds every Save until release is closed.
type blockingStore struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) Save(ctx context.Context, d model.Dataset) error {
	if _, tracking := d.ActiveSubject(); !tracking {
		b.once.Do(func() { close(b.entered) })
		<-b.release
	}
	return b.Memory.Save(ctx, d)
}

func TestStop_DuplicateWhileSavingIsSuppressed(t *testing.T) {
	ctx := context.Background()
	bs := &blockingStore{
		Memory:  store.NewMemoryWith(testutil.SampleDataset()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	clock := testutil.NewFakeClock(testutil.Reference)
	eng, err := New(ctx, bs, WithClock(clock), WithLocation(time.UTC),
		WithIDGenerator(model.NewSequenceGenerator("e")), WithLogger(discardLogger()))
	require.NoError(t, err)

	_, err = eng.Start(ctx, "s1")
	require.NoError(t, err)
	clock.Advance(time.Minute)

	first := make(chan *model.TimeEntry)
	go func() {
		entry, _ := eng.Stop(ctx, "s1")
		first <- entry
	}()
	<-bs.entered

	dup, err := eng.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, dup, "stop arriving mid-save must be dropped")
	assert.True(t, eng.stopping.InFlight("s1"))

	close(bs.release)
	entry := <-first
	require.NotNil(t, entry)
	assert.Equal(t, int64(60), entry.Duration)
	assert.False(t, eng.stopping.InFlight("s1"))

	assert.Len(t, eng.Snapshot().TimeEntries, 1)
}

func TestStop_ConcurrentStopsEmitOneEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	var wg sync.WaitGroup
	entries := make(chan *model.TimeEntry, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := f.eng.Stop(ctx, "s1")
			assert.NoError(t, err)
			entries <- e
		}()
	}
	wg.Wait()
	close(entries)

	emitted := 0
	for e := range entries {
		if e != nil {
			emitted++
		}
	}
	assert.Equal(t, 1, emitted)
	assert.Len(t, f.eng.Snapshot().TimeEntries, 1)
}

func TestPersistFailure_KeepsInMemoryState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mem.FailWith(store.ErrQuotaExceeded)

	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err, "save failure is not an operation failure")

	s, ok := f.eng.Active()
	require.True(t, ok)
	assert.Equal(t, "s1", s.ID)

	perr := f.eng.PersistErr()
	require.Error(t, perr)
	assert.True(t, IsPersistError(perr))
	assert.ErrorIs(t, perr, store.ErrQuotaExceeded)

	f.mem.FailWith(nil)
	f.clock.Advance(time.Minute)
	_, err = f.eng.Stop(ctx, "s1")
	require.NoError(t, err)
	assert.NoError(t, f.eng.PersistErr(), "next good save clears the failure")
}

func TestLiveBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.AddManualEntry(ctx, "s1", 10)
	require.NoError(t, err)
	_, err = f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(90*time.Second + 500*time.Millisecond)

	assert.Equal(t, int64(600), f.eng.Breakdown("s1").Daily)
	assert.Equal(t, int64(690), f.eng.LiveBreakdown("s1").Daily)
	assert.Equal(t, int64(690), f.eng.Live("s1", report.AllTime))
	assert.Equal(t, int64(0), f.eng.Live("s2", report.AllTime))

	sess, ok := f.eng.Session()
	require.True(t, ok)
	assert.Equal(t, int64(90), sess.Elapsed)

	// nothing persisted mid-session
	assert.Len(t, f.eng.Snapshot().TimeEntries, 1)
}

func TestAddManualEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.eng.AddManualEntry(ctx, "s2", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), entry.Duration)
	assert.Equal(t, int64(1800000), entry.EndTime-entry.StartTime)
	assert.Equal(t, testutil.Reference.UnixMilli(), entry.EndTime)

	_, err = f.eng.AddManualEntry(ctx, "s2", 0)
	assert.ErrorIs(t, err, model.ErrInvalidDuration)
	_, err = f.eng.AddManualEntry(ctx, "ghost", 5)
	assert.ErrorIs(t, err, ErrUnknownSubject)

	assert.Equal(t, int64(1800), f.eng.TypeTotal("t1", report.Daily))
}

func TestDeleteSubject_DiscardsRunningSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.AddManualEntry(ctx, "s1", 5)
	require.NoError(t, err)
	_, err = f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	removed, err := f.eng.DeleteSubject(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", removed.ID)

	d := f.eng.Snapshot()
	assert.Empty(t, activeIDs(d))
	require.Len(t, d.TimeEntries, 1, "no entry written for the discarded session")
	assert.Equal(t, "s1", d.TimeEntries[0].SubjectID, "past entries are retained")
}

func TestDeleteType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	moved, err := f.eng.DeleteType(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	d := f.eng.Snapshot()
	require.Len(t, d.Types, 1)
	for _, s := range d.Subjects {
		assert.Equal(t, "t2", s.TypeID)
	}

	saves := f.mem.Saves()
	_, err = f.eng.DeleteType(ctx, "t2")
	require.Error(t, err)
	assert.True(t, dataset.IsNoOp(err))
	assert.Len(t, f.eng.Snapshot().Types, 1)
	assert.Equal(t, saves, f.mem.Saves())
}

func TestEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	typ, err := f.eng.CreateType(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "New Type 3", typ.Name)
	assert.Equal(t, model.DefaultTypeIcon, typ.Icon)

	sub, err := f.eng.CreateSubject(ctx, "Reading", typ.ID, "")
	require.NoError(t, err)
	assert.Equal(t, typ.ID, sub.TypeID)

	require.NoError(t, f.eng.RenameType(ctx, typ.ID, "Books"))
	require.NoError(t, f.eng.SetTypeIcon(ctx, typ.ID, "Library"))
	require.NoError(t, f.eng.RenameSubject(ctx, sub.ID, "Novels"))
	require.NoError(t, f.eng.SetSubjectIcon(ctx, sub.ID, "Book"))
	require.NoError(t, f.eng.MoveSubject(ctx, sub.ID, "t2"))

	d := f.eng.Snapshot()
	gotType, _ := d.FindType(typ.ID)
	gotSub, _ := d.FindSubject(sub.ID)
	assert.Equal(t, model.Type{ID: typ.ID, Name: "Books", Icon: "Library"}, gotType)
	assert.Equal(t, "Novels", gotSub.Name)
	assert.Equal(t, "Book", gotSub.Icon)
	assert.Equal(t, "t2", gotSub.TypeID)

	err = f.eng.RenameSubject(ctx, sub.ID, "   ")
	assert.Equal(t, dataset.ErrCodeEmptyName, dataset.CodeOf(err))
	err = f.eng.MoveSubject(ctx, sub.ID, "missing")
	assert.Equal(t, dataset.ErrCodeUnknownType, dataset.CodeOf(err))
}

func TestMoveSubject_KeepsSessionRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, f.eng.MoveSubject(ctx, "s1", "t2"))

	s, ok := f.eng.Active()
	require.True(t, ok)
	assert.Equal(t, "t2", s.TypeID)
}

func TestImportExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.AddManualEntry(ctx, "s1", 15)
	require.NoError(t, err)
	payload, err := f.eng.Export()
	require.NoError(t, err)

	other := newFixture(t)
	fixes, err := other.eng.Import(ctx, payload)
	require.NoError(t, err)
	assert.Empty(t, fixes)

	want := f.eng.Snapshot()
	got := other.eng.Snapshot()
	assert.Equal(t, want.Types, got.Types)
	assert.Equal(t, want.Subjects, got.Subjects)
	assert.Equal(t, want.TimeEntries, got.TimeEntries)
}

func TestImport_RejectedPayloadChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.eng.Snapshot()

	for _, payload := range []string{
		`{not json`,
		`{"types": [], "subjects": []}`,
		`[1, 2, 3]`,
	} {
		_, err := f.eng.Import(ctx, []byte(payload))
		require.Error(t, err, payload)
		assert.True(t, transfer.IsValidationError(err), payload)
	}

	assert.Equal(t, before, f.eng.Snapshot())
	assert.Equal(t, 0, f.mem.Saves())
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s1")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)

	require.NoError(t, f.eng.Clear(ctx))

	d := f.eng.Snapshot()
	assert.Equal(t, "Courses", d.Types[0].Name)
	assert.Empty(t, d.TimeEntries, "open session is abandoned")
	assert.Empty(t, activeIDs(d))

	stored, err := f.mem.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, d, stored)
}

func TestSummary_IncludesOpenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Start(ctx, "s3")
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)

	sum := f.eng.Summary(report.Daily)
	require.Len(t, sum.Types, 2)
	assert.Equal(t, int64(120), sum.Types[1].Seconds)
}
