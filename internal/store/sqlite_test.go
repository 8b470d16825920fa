package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partybase-ng/directory-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func supplierFixture(stableID, name string) *model.CanonicalRecord {
	now := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	return &model.CanonicalRecord{
		StableID:       stableID,
		Kind:           model.KindSupplier,
		Name:           name,
		Region:         "Lagos",
		Phones:         []string{"+2348012345678"},
		Emails:         []string{"sales@" + stableID + ".ng"},
		Confidence:     0.75,
		ApprovalStatus: model.ApprovalApproved,
		SourcePlatform: "jiji",
		SourceURL:      "https://jiji.ng/ad/" + stableID,
		FirstSeenAt:    now,
		LastSeenAt:     now,
		UpdatedAt:      now,
	}
}

func eventFixture(stableID string, end time.Time) *model.CanonicalRecord {
	rec := supplierFixture(stableID, "Fair "+stableID)
	rec.Kind = model.KindEvent
	rec.EndDate = &end
	return rec
}

// --- Records ---

func TestSQLite_UpsertAndFind(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := supplierFixture("abc123", "Eko Canopies")
	res, err := st.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, UpsertCreated, res)

	got, err := st.FindByStableID(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Eko Canopies", got.Name)
	assert.Equal(t, []string{"+2348012345678"}, got.Phones)

	// Re-upsert with a later first_seen keeps the original first_seen.
	rec2 := supplierFixture("abc123", "Eko Canopies Ltd")
	rec2.FirstSeenAt = rec.FirstSeenAt.Add(48 * time.Hour)
	rec2.LastSeenAt = rec.LastSeenAt.Add(48 * time.Hour)
	res, err = st.Upsert(ctx, rec2)
	require.NoError(t, err)
	assert.Equal(t, UpsertUpdated, res)

	got, err = st.FindByStableID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Eko Canopies Ltd", got.Name)
	assert.True(t, got.FirstSeenAt.Equal(rec.FirstSeenAt), "earliest first_seen survives")
	assert.True(t, got.LastSeenAt.After(rec.LastSeenAt))
}

func TestSQLite_FindMissingReturnsNil(t *testing.T) {
	st := newTestSQLiteStore(t)
	got, err := st.FindByStableID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_UpsertSuppressesBlacklisted(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := supplierFixture("bad1", "Ghost Vendor")
	_, err := st.Upsert(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, st.SetBlacklisted(ctx, "bad1"))

	fresh := supplierFixture("bad1", "Ghost Vendor Again")
	fresh.IsBlacklisted = false
	res, err := st.Upsert(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, UpsertSuppressed, res)

	got, err := st.FindByStableID(ctx, "bad1")
	require.NoError(t, err)
	assert.True(t, got.IsBlacklisted, "blacklist never cleared by ingestion")
	assert.Equal(t, "Ghost Vendor", got.Name)
	assert.Equal(t, model.ApprovalRejected, got.ApprovalStatus)
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Upsert(ctx, supplierFixture("gone", "Soon Gone"))
	require.NoError(t, err)
	require.NoError(t, st.Delete(ctx, "gone"))

	got, err := st.FindByStableID(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, st.Delete(ctx, "gone"))
}

func TestSQLite_FindByWeakSignal(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := supplierFixture("s1", "Alpha Rentals")
	a.Region = "Lagos"
	a.Phones = []string{"+2348011111111"}
	b := supplierFixture("s2", "Beta Rentals")
	b.Region = "Kano"
	b.Phones = []string{"+2348022222222"}
	b.Emails = []string{"SALES@beta.ng"}
	c := supplierFixture("s3", "Gamma Rentals")
	c.Region = "Kano"
	c.Phones = []string{"+2348033333333"}
	for _, rec := range []*model.CanonicalRecord{a, b, c} {
		_, err := st.Upsert(ctx, rec)
		require.NoError(t, err)
	}

	// Phone overlap reaches across regions; email lookup is case folded.
	got, err := st.FindByWeakSignal(ctx, WeakSignal{
		Region: "Lagos",
		Emails: []string{"sales@beta.ng"},
	})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.StableID)
	}
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)

	// Blacklisted records never come back as candidates.
	require.NoError(t, st.SetBlacklisted(ctx, "s2"))
	got, err = st.FindByWeakSignal(ctx, WeakSignal{Emails: []string{"sales@beta.ng"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLite_DeleteEventsBefore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	stale := eventFixture("e-old", cutoff.Add(-72*time.Hour))
	fresh := eventFixture("e-new", cutoff.Add(72*time.Hour))
	supplier := supplierFixture("s-keep", "Forever Rentals")
	for _, rec := range []*model.CanonicalRecord{stale, fresh, supplier} {
		_, err := st.Upsert(ctx, rec)
		require.NoError(t, err)
	}

	n, err := st.DeleteEventsBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.FindByStableID(ctx, "e-old")
	require.NoError(t, err)
	assert.Nil(t, got)

	for _, id := range []string{"e-new", "s-keep"} {
		got, err := st.FindByStableID(ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, got, id)
	}
}

func TestSQLite_ListRecordsFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := supplierFixture("l1", "Zenith Sound")
	a.Confidence = 0.9
	b := supplierFixture("l2", "Anchor Chairs")
	b.Confidence = 0.5
	b.ApprovalStatus = model.ApprovalPending
	c := supplierFixture("l3", "Kano Lights")
	c.Region = "Kano"
	for _, rec := range []*model.CanonicalRecord{a, b, c} {
		_, err := st.Upsert(ctx, rec)
		require.NoError(t, err)
	}

	got, err := st.ListRecords(ctx, RecordFilter{Region: "Lagos"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Anchor Chairs", got[0].Name, "name-ordered")

	got, err = st.ListRecords(ctx, RecordFilter{MinConfidence: 0.8})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l1", got[0].StableID)

	pending, err := st.PendingApprovals(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "l2", pending[0].StableID)
}

func TestSQLite_SetApproval(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec := supplierFixture("appr", "Pending Vendor")
	rec.ApprovalStatus = model.ApprovalPending
	_, err := st.Upsert(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, st.SetApproval(ctx, "appr", model.ApprovalApproved))
	got, err := st.FindByStableID(ctx, "appr")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, got.ApprovalStatus)

	assert.Error(t, st.SetApproval(ctx, "missing", model.ApprovalApproved))
}

// --- Review queue ---

func TestSQLite_MatchQueue(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	m := model.DuplicateMatch{
		StableIDA:  "zzz",
		StableIDB:  "aaa",
		Similarity: 0.82,
		Reason:     "name",
	}
	require.NoError(t, st.QueueMatch(ctx, m))
	// Same pair in either order is one queue entry.
	require.NoError(t, st.QueueMatch(ctx, model.DuplicateMatch{
		StableIDA: "aaa", StableIDB: "zzz", Similarity: 0.82,
	}))

	pending, err := st.PendingMatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "aaa", pending[0].StableIDA)
	assert.Equal(t, "zzz", pending[0].StableIDB)
	assert.Equal(t, model.MatchPending, pending[0].Status)

	require.NoError(t, st.ResolveMatch(ctx, pending[0].ID, model.MatchMerged))
	pending, err = st.PendingMatches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Error(t, st.ResolveMatch(ctx, 9999, model.MatchDismissed))
}

// --- Runs ---

func TestSQLite_RunLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := &model.Run{Trigger: model.TriggerManual}
	require.NoError(t, st.CreateRun(ctx, run))
	require.NotEmpty(t, run.ID)

	run.Found = 12
	run.New = 4
	run.Success = true
	run.Sources = []model.SourceResult{{Platform: "jiji", Found: 12, New: 4}}
	require.NoError(t, st.FinishRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, got.Success)
	assert.Equal(t, 12, got.Found)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "jiji", got.Sources[0].Platform)
	require.NotNil(t, got.CompletedAt)

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = st.GetRun(ctx, "missing")
	assert.Error(t, err)
}

// --- Job queue ---

func TestSQLite_JobLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job := &model.RunJob{
		Trigger: model.TriggerManual,
		Sources: []string{"jiji"},
		Region:  "Lagos",
	}
	require.NoError(t, st.EnqueueJob(ctx, job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobQueued, job.Status)

	claimed, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, model.JobRunning, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)
	assert.Equal(t, []string{"jiji"}, claimed.Sources)
	assert.Equal(t, "Lagos", claimed.Region)

	// Queue is empty while the job is running.
	next, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	require.NoError(t, st.CompleteJob(ctx, claimed.ID))
	got, err := st.GetJob(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, got.Status)
}

func TestSQLite_JobRetryThenDead(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job := &model.RunJob{Trigger: model.TriggerScheduled, MaxAttempts: 2}
	require.NoError(t, st.EnqueueJob(ctx, job))

	// First failure: attempts below the cap, goes back to failed.
	claimed, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, st.FailJob(ctx, claimed.ID, "source down", time.Now().UTC().Add(-time.Second)))

	got, err := st.GetJob(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	assert.Equal(t, "source down", got.LastError)

	// Second failure exhausts attempts: dead, and never dequeued again.
	claimed, err = st.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, 2, claimed.Attempts)
	require.NoError(t, st.FailJob(ctx, claimed.ID, "source still down", time.Now().UTC()))

	got, err = st.GetJob(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobDead, got.Status)

	next, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestSQLite_JobBackoffDelaysDequeue(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job := &model.RunJob{Trigger: model.TriggerManual, MaxAttempts: 3}
	require.NoError(t, st.EnqueueJob(ctx, job))

	claimed, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, st.FailJob(ctx, claimed.ID, "timeout", time.Now().UTC().Add(time.Hour)))

	// Retry time is in the future, so the job is not yet runnable.
	next, err := st.DequeueJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}
