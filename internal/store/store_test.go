package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mkalnins/revtrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a SQLite store in a temp directory for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

func testRevision(ref models.ObjectRef, delta string) *models.Revision {
	return &models.Revision{
		Ref:   ref,
		Delta: delta,
		SHA1:  models.Fingerprint(delta),
	}
}

func TestStore_Initialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Initialize())

	// Initialize is idempotent.
	assert.NoError(t, st.Initialize())
}

func TestStore_GetSetValue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetValue(ctx, "test_key", "test_value"))

	val, err := st.GetValue(ctx, "test_key")
	require.NoError(t, err)
	assert.Equal(t, "test_value", val)

	// Missing key returns empty, not an error.
	val, err = st.GetValue(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	require.NoError(t, st.SetValue(ctx, "test_key", "updated"))
	val, err = st.GetValue(ctx, "test_key")
	require.NoError(t, err)
	assert.Equal(t, "updated", val)
}

func TestInsertRevision_NumbersFromOne(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	for want := 1; want <= 3; want++ {
		rev := testRevision(ref, "--- Article.title\n@@ -1 +1 @@\n-B\n+A\n")
		require.NoError(t, st.InsertRevision(ctx, rev))
		assert.Equal(t, want, rev.Revision)
		assert.NotZero(t, rev.ID)
		assert.False(t, rev.CreatedAt.IsZero())
	}

	max, err := st.MaxRevision(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 3, max)
}

func TestInsertRevision_IndependentPerRef(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	a := testRevision(models.ObjectRef{Type: "Article", ID: "a1"}, "")
	b := testRevision(models.ObjectRef{Type: "Article", ID: "a2"}, "")
	c := testRevision(models.ObjectRef{Type: "Author", ID: "a1"}, "")

	require.NoError(t, st.InsertRevision(ctx, a))
	require.NoError(t, st.InsertRevision(ctx, b))
	require.NoError(t, st.InsertRevision(ctx, c))

	assert.Equal(t, 1, a.Revision)
	assert.Equal(t, 1, b.Revision, "different object id is a different history line")
	assert.Equal(t, 1, c.Revision, "different entity type is a different history line")
}

func TestInsertRevision_SkipsTakenNumbers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	rev := testRevision(ref, "")
	require.NoError(t, st.InsertRevision(ctx, rev))
	require.Equal(t, 1, rev.Revision)

	// Simulate a writer that already took number 2: a fresh insert must
	// land on 3 without losing the row.
	taken := testRevision(ref, "")
	taken.Revision = 2
	_, err := st.DB().ExecContext(ctx, `
		INSERT INTO revisions (entity_type, object_id, revision, sha1, delta)
		VALUES (?, ?, ?, ?, ?)`,
		ref.Type, ref.ID, taken.Revision, taken.SHA1, taken.Delta)
	require.NoError(t, err)

	next := testRevision(ref, "")
	require.NoError(t, st.InsertRevision(ctx, next))
	assert.Equal(t, 3, next.Revision)
}

func TestInsertRevision_UniqueConstraintDetected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	insert := func(n int) error {
		_, err := st.DB().ExecContext(ctx, `
			INSERT INTO revisions (entity_type, object_id, revision, sha1, delta)
			VALUES (?, ?, ?, ?, ?)`,
			ref.Type, ref.ID, n, models.Fingerprint(""), "")
		return err
	}

	require.NoError(t, insert(1))
	err := insert(1)
	require.Error(t, err)
	assert.True(t, isUniqueConstraint(err), "duplicate (ref, revision) must surface as a constraint violation")
}

func TestInsertRevisionRow_DuplicateNumber(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	first := testRevision(ref, "")
	require.NoError(t, st.InsertRevision(ctx, first))
	require.Equal(t, 1, first.Revision)

	loser := testRevision(ref, "")
	loser.Revision = 1
	loser.CreatedAt = first.CreatedAt
	err := insertRevisionRow(ctx, st.DB(), loser)
	assert.ErrorIs(t, err, ErrDuplicateRevision)
}

func TestAssignNumber_Exhaustion(t *testing.T) {
	ref := models.ObjectRef{Type: "Article", ID: "a1"}
	rev := testRevision(ref, "")

	attempts := 0
	err := assignNumber(rev, 4, func() error {
		attempts++
		return fmt.Errorf("revision %s r%d: %w", ref, rev.Revision, ErrDuplicateRevision)
	})

	assert.ErrorIs(t, err, ErrRevisionConflictExhausted)
	assert.Equal(t, maxNumberingAttempts, attempts)
	// Candidates advanced past every rejection: 5 through 24.
	assert.Equal(t, 4+maxNumberingAttempts, rev.Revision)
}

func TestAssignNumber_StopsOnUnexpectedError(t *testing.T) {
	rev := testRevision(models.ObjectRef{Type: "Article", ID: "a1"}, "")

	broken := fmt.Errorf("disk gone")
	attempts := 0
	err := assignNumber(rev, 0, func() error {
		attempts++
		return broken
	})

	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 1, attempts)
}

func TestInitialize_SchemaVersionInKV(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	v, err := st.GetValue(ctx, schemaVersionKey)
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	// A database written by a newer build is refused.
	require.NoError(t, st.SetValue(ctx, schemaVersionKey, "99"))
	err = st.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestInsertRevision_ConcurrentWritersGetDistinctNumbers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "contested"}

	const writers = 8
	revs := make([]*models.Revision, writers)
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rev := testRevision(ref, "")
			errs[i] = st.InsertRevision(ctx, rev)
			revs[i] = rev
		}(i)
	}
	wg.Wait()

	seen := make(map[int]bool)
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[revs[i].Revision], "revision number %d assigned twice", revs[i].Revision)
		seen[revs[i].Revision] = true
	}

	// No revision lost or duplicated.
	all, err := st.Log(ctx, ref, 0)
	require.NoError(t, err)
	assert.Len(t, all, writers)
}

func TestGetRevision(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	rev := testRevision(ref, "--- Article.title\n@@ -1 +1 @@\n-B\n+A\n")
	rev.Comment = "first edit"
	rev.Editor = "mara"
	rev.EditorIP = "10.0.0.7"
	require.NoError(t, st.InsertRevision(ctx, rev))

	got, err := st.GetRevision(ctx, ref, 1)
	require.NoError(t, err)
	assert.Equal(t, rev.Delta, got.Delta)
	assert.Equal(t, rev.SHA1, got.SHA1)
	assert.Equal(t, "first edit", got.Comment)
	assert.Equal(t, "mara", got.Editor)
	assert.Equal(t, "10.0.0.7", got.EditorIP)
	assert.False(t, got.Reverted)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = st.GetRevision(ctx, ref, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRevision_AnonymousEditor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	require.NoError(t, st.InsertRevision(ctx, testRevision(ref, "")))

	got, err := st.GetRevision(ctx, ref, 1)
	require.NoError(t, err)
	assert.True(t, got.Anonymous())
	assert.Empty(t, got.EditorIP)
}

func TestListNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	for i := 0; i < 5; i++ {
		require.NoError(t, st.InsertRevision(ctx, testRevision(ref, "")))
	}

	inclusive, err := st.ListNewestFirst(ctx, ref, 3, true)
	require.NoError(t, err)
	require.Len(t, inclusive, 3)
	assert.Equal(t, []int{5, 4, 3}, []int{inclusive[0].Revision, inclusive[1].Revision, inclusive[2].Revision})

	exclusive, err := st.ListNewestFirst(ctx, ref, 3, false)
	require.NoError(t, err)
	require.Len(t, exclusive, 2)
	assert.Equal(t, 5, exclusive[0].Revision)
	assert.Equal(t, 4, exclusive[1].Revision)
}

func TestLog_Limit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	for i := 0; i < 4; i++ {
		require.NoError(t, st.InsertRevision(ctx, testRevision(ref, "")))
	}

	all, err := st.Log(ctx, ref, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	limited, err := st.Log(ctx, ref, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 4, limited[0].Revision, "log is newest-first")
}

func TestObjects_PutGetList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	ok, err := st.HasObject(ctx, ref)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.GetObject(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	fields := map[string]string{"title": "A", "body": "hello"}
	require.NoError(t, st.PutObject(ctx, ref, fields))

	got, err := st.GetObject(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, fields, got)

	// Upsert replaces.
	fields["title"] = "B"
	require.NoError(t, st.PutObject(ctx, ref, fields))
	got, err = st.GetObject(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "B", got["title"])

	require.NoError(t, st.PutObject(ctx, models.ObjectRef{Type: "Article", ID: "a2"}, fields))
	ids, err := st.ListObjects(ctx, "Article")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)
}

func TestCommitRevert_Atomic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	ref := models.ObjectRef{Type: "Article", ID: "a1"}

	require.NoError(t, st.PutObject(ctx, ref, map[string]string{"title": "C"}))
	for i := 0; i < 3; i++ {
		require.NoError(t, st.InsertRevision(ctx, testRevision(ref, "")))
	}

	newRev := testRevision(ref, "")
	newRev.Comment = "Reverted to revision #1"
	restored := map[string]string{"title": "A"}

	require.NoError(t, st.CommitRevert(ctx, ref, restored, []int{2, 3}, newRev))
	assert.Equal(t, 4, newRev.Revision, "revert revision goes through the normal numbering loop")

	// Consumed revisions flagged, others untouched.
	r1, err := st.GetRevision(ctx, ref, 1)
	require.NoError(t, err)
	assert.False(t, r1.Reverted)
	for _, n := range []int{2, 3} {
		r, err := st.GetRevision(ctx, ref, n)
		require.NoError(t, err)
		assert.True(t, r.Reverted, "revision %d should be flagged reverted", n)
	}

	// Live state replaced.
	got, err := st.GetObject(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, restored, got)
}
