package learn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/cmdvault/internal/storage"
)

// fakeStore is an in-memory Store with scriptable conflict behavior.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*storage.UsageRecord // keyed by userID|command
	saved   map[string]*storage.SavedCommand

	// forceConflicts makes the next N InsertUsage calls report Conflict
	// after secretly creating the record, simulating a concurrent
	// first-writer winning the race.
	forceConflicts int

	// forceStale makes the next N UpdateUsage calls fail with ErrStale
	// regardless of the expected count, simulating a concurrent writer
	// landing between the caller's read and its write.
	forceStale int

	updateErr    error
	insertErr    error
	findErr      error
	incrementErr error

	updates int
	inserts int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]*storage.UsageRecord),
		saved:   make(map[string]*storage.SavedCommand),
	}
}

func (f *fakeStore) key(userID, command string) string { return userID + "|" + command }

func (f *fakeStore) FindUsage(_ context.Context, userID, command string) (*storage.UsageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.records[f.key(userID, command)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeStore) InsertUsage(_ context.Context, rec *storage.UsageRecord) (storage.InsertOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return storage.Inserted, f.insertErr
	}
	f.inserts++

	key := f.key(rec.UserID, rec.Command)
	if _, exists := f.records[key]; exists {
		return storage.Conflict, nil
	}

	if rec.ID == "" {
		rec.ID = key
	}
	clone := *rec
	f.records[key] = &clone

	if f.forceConflicts > 0 {
		f.forceConflicts--
		return storage.Conflict, nil
	}
	return storage.Inserted, nil
}

func (f *fakeStore) UpdateUsage(_ context.Context, id string, patch storage.UsagePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, rec := range f.records {
		if rec.ID != id {
			continue
		}
		if f.forceStale > 0 {
			f.forceStale--
			return storage.ErrStale
		}
		if rec.UsageCount != patch.ExpectedCount {
			return storage.ErrStale
		}
		rec.Context = patch.Context
		if patch.OS != "" {
			rec.OS = patch.OS
		}
		rec.UsageCount++
		f.updates++
		return nil
	}
	return storage.ErrNotFound
}

func (f *fakeStore) FindSavedByExactText(_ context.Context, userID, text string) (*storage.SavedCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.saved[f.key(userID, text)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) IncrementSavedUsage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrementErr != nil {
		return f.incrementErr
	}
	for _, c := range f.saved {
		if c.ID == id {
			c.UsageCount++
			return nil
		}
	}
	return storage.ErrNotFound
}

func TestRecord_FirstObservationInserts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := NewRecorder(store, nil)

	err := r.Record(context.Background(), Event{
		UserID:  "u1",
		Command: "git status",
		OS:      "linux",
		Dir:     "/repo",
		Listing: "README.md",
	})
	require.NoError(t, err)

	rec, err := store.FindUsage(context.Background(), "u1", "git status")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.UsageCount)
	assert.Equal(t, "linux", rec.OS)
	require.Len(t, rec.Context, 1)
	assert.Equal(t, "/repo", rec.Context[0].Directory)
	assert.Equal(t, 1, rec.Context[0].HitCount)
}

func TestRecord_RepeatObservationUpdates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Event{UserID: "u1", Command: "ls", Dir: "/a", Listing: "x"}))
	require.NoError(t, r.Record(ctx, Event{UserID: "u1", Command: "ls", Dir: "/a", Listing: ""}))
	require.NoError(t, r.Record(ctx, Event{UserID: "u1", Command: "ls", Dir: "/b"}))

	rec, err := store.FindUsage(ctx, "u1", "ls")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.UsageCount)
	require.Len(t, rec.Context, 2)

	a := rec.Context.Find("/a")
	require.NotNil(t, a)
	assert.Equal(t, 2, a.HitCount)
	assert.Equal(t, "x", a.LastListing, "empty listing must not overwrite")
}

func TestRecord_ConflictRetriesAsUpdateOnce(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.forceConflicts = 1
	r := NewRecorder(store, nil)

	err := r.Record(context.Background(), Event{UserID: "u1", Command: "make", Dir: "/src"})
	require.NoError(t, err, "conflict must be recovered, not surfaced")

	rec, err := store.FindUsage(context.Background(), "u1", "make")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.UsageCount, "the racing insert counted 1, our retry added 1")
	assert.Equal(t, 1, store.updates, "exactly one update after the conflict")
}

func TestRecord_StaleUpdateReMergesFromFreshRead(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := NewRecorder(store, nil)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Event{UserID: "u1", Command: "ls", Dir: "/a"}))

	// A concurrent writer lands between our read and our write.
	store.forceStale = 1
	store.records["u1|ls"].Context = store.records["u1|ls"].Context.Merge("/b", "", time.Now())
	store.records["u1|ls"].UsageCount++

	require.NoError(t, r.Record(ctx, Event{UserID: "u1", Command: "ls", Dir: "/c"}))

	rec, err := store.FindUsage(ctx, "u1", "ls")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.UsageCount)
	for _, dir := range []string{"/a", "/b", "/c"} {
		assert.NotNilf(t, rec.Context.Find(dir), "directory %s lost in the retry", dir)
	}
}

func TestRecord_UnexpectedInsertErrorPropagates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	r := NewRecorder(store, nil)

	err := r.Record(context.Background(), Event{UserID: "u1", Command: "ls"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
}

func TestRecord_UnexpectedReadErrorPropagates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.findErr = errors.New("db locked hard")
	r := NewRecorder(store, nil)

	err := r.Record(context.Background(), Event{UserID: "u1", Command: "ls"})
	require.Error(t, err)
}

func TestRecord_SavedCommandBumped(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.saved["u1|git push"] = &storage.SavedCommand{ID: "sc1", UserID: "u1", Text: "git push"}
	r := NewRecorder(store, nil)

	require.NoError(t, r.Record(context.Background(), Event{UserID: "u1", Command: "git push"}))
	assert.Equal(t, 1, store.saved["u1|git push"].UsageCount)

	// No exact match: no bump, no error.
	require.NoError(t, r.Record(context.Background(), Event{UserID: "u1", Command: "git push --force"}))
	assert.Equal(t, 1, store.saved["u1|git push"].UsageCount)
}

func TestRecord_SavedBumpFailureDoesNotFailIngestion(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.saved["u1|deploy"] = &storage.SavedCommand{ID: "sc1", UserID: "u1", Text: "deploy"}
	store.incrementErr = errors.New("write failed")
	r := NewRecorder(store, nil)

	err := r.Record(context.Background(), Event{UserID: "u1", Command: "deploy"})
	assert.NoError(t, err, "saved-command bump is best-effort")

	rec, findErr := store.FindUsage(context.Background(), "u1", "deploy")
	require.NoError(t, findErr)
	assert.Equal(t, 1, rec.UsageCount, "usage write must still land")
}

func TestRecord_ValidatesEvent(t *testing.T) {
	t.Parallel()

	r := NewRecorder(newFakeStore(), nil)

	assert.Error(t, r.Record(context.Background(), Event{Command: "ls"}))
	assert.Error(t, r.Record(context.Background(), Event{UserID: "u1"}))
}

func TestRecord_SurvivesCancelledCaller(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := NewRecorder(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Record(ctx, Event{UserID: "u1", Command: "ls", Dir: "/a"})
	require.NoError(t, err, "a started upsert runs to completion")

	rec, err := store.FindUsage(context.Background(), "u1", "ls")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.UsageCount)
}

// TestRecord_ConcurrentSameKey exercises the whole protocol against the
// real SQLite store: N concurrent reporters for one key must end with a
// single record holding usageCount == N and the union of directories.
func TestRecord_ConcurrentSameKey(t *testing.T) {
	t.Parallel()

	sqlStore := newSQLiteTestStore(t)
	ctx := context.Background()

	user := &storage.User{Email: "race@example.com"}
	require.NoError(t, sqlStore.CreateUser(ctx, user))

	r := NewRecorder(sqlStore, nil)

	dirs := []string{
		"/a", "/b", "/c", "/d", "/e", "/f", "/g", "/h",
		"/i", "/j", "/k", "/l", "/a", "/b", "/a", "/c",
	}
	var wg sync.WaitGroup
	errs := make([]error, len(dirs))
	for i, dir := range dirs {
		wg.Add(1)
		go func(i int, dir string) {
			defer wg.Done()
			errs[i] = r.Record(ctx, Event{UserID: user.ID, Command: "cargo build", Dir: dir})
		}(i, dir)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoErrorf(t, err, "reporter %d", i)
	}

	rec, err := sqlStore.FindUsage(ctx, user.ID, "cargo build")
	require.NoError(t, err)
	assert.Equal(t, len(dirs), rec.UsageCount)

	want := map[string]int{
		"/a": 3, "/b": 2, "/c": 2, "/d": 1, "/e": 1, "/f": 1,
		"/g": 1, "/h": 1, "/i": 1, "/j": 1, "/k": 1, "/l": 1,
	}
	require.Lenf(t, rec.Context, len(want),
		"every distinct directory must survive the merge, got %+v", rec.Context)
	for dir, hits := range want {
		entry := rec.Context.Find(dir)
		require.NotNilf(t, entry, "directory %s lost", dir)
		assert.Equalf(t, hits, entry.HitCount, "hit count for %s", dir)
	}
}

func newSQLiteTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(t.TempDir() + "/learn.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecorderClockInjection(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := NewRecorder(store, nil)
	fixed := time.UnixMilli(42000)
	r.now = func() time.Time { return fixed }

	require.NoError(t, r.Record(context.Background(), Event{UserID: "u1", Command: "ls", Dir: "/a"}))

	rec, _ := store.FindUsage(context.Background(), "u1", "ls")
	assert.Equal(t, int64(42000), rec.Context[0].LastSeenAtMs)
}
