package review

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st), st
}

func seedRecord(t *testing.T, st store.Store, stableID, name string, confidence float64) {
	t.Helper()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	_, err := st.Upsert(context.Background(), &model.CanonicalRecord{
		StableID:       stableID,
		Kind:           model.KindSupplier,
		Name:           name,
		Region:         "Lagos",
		Phones:         []string{"+2348011112222"},
		Confidence:     confidence,
		ApprovalStatus: model.ApprovalPending,
		SourcePlatform: "jiji",
		SourceURL:      "https://jiji.ng/ad/" + stableID,
		FirstSeenAt:    now,
		LastSeenAt:     now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)
}

func TestApproveAndReject(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRecord(t, st, "aaaa11", "Eko Canopies", 0.55)
	seedRecord(t, st, "bbbb22", "Ghost Vendor", 0.35)

	pending, err := svc.PendingApprovals(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	require.NoError(t, svc.Approve(ctx, "aaaa11"))
	require.NoError(t, svc.Reject(ctx, "bbbb22"))

	pending, err = svc.PendingApprovals(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rec, err := st.FindByStableID(ctx, "aaaa11")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, rec.ApprovalStatus)

	rec, err = st.FindByStableID(ctx, "bbbb22")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, rec.ApprovalStatus)
	assert.False(t, rec.IsBlacklisted, "reject alone does not blacklist")
}

func TestBlacklistSuppresses(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRecord(t, st, "cccc33", "Scam Rentals", 0.4)

	require.NoError(t, svc.Blacklist(ctx, "cccc33"))

	rec, err := st.FindByStableID(ctx, "cccc33")
	require.NoError(t, err)
	assert.True(t, rec.IsBlacklisted)

	res, err := st.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, store.UpsertSuppressed, res)
}

func TestMergeWithExplicitPrimary(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRecord(t, st, "prim11", "Lagos Event Supply", 0.6)
	seedRecord(t, st, "seco22", "Lagos Event Supplies", 0.8)

	require.NoError(t, st.QueueMatch(ctx, model.DuplicateMatch{
		StableIDA: "prim11", StableIDB: "seco22", Similarity: 0.88, Reason: "name 0.85, same region",
	}))

	// The reviewer picks the lower-confidence record as primary; their
	// choice wins over the machine tie-break.
	merged, err := svc.Merge(ctx, "prim11", "seco22")
	require.NoError(t, err)
	assert.Equal(t, "prim11", merged.StableID)
	assert.Equal(t, "Lagos Event Supply", merged.Name)
	assert.Contains(t, merged.AltNames, "Lagos Event Supplies")

	gone, err := st.FindByStableID(ctx, "seco22")
	require.NoError(t, err)
	assert.Nil(t, gone, "secondary stable id retired")

	pending, err := svc.PendingMatches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "queued pair resolved by the merge")
}

func TestMergeValidation(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	seedRecord(t, st, "only11", "Lonely Vendor", 0.6)

	_, err := svc.Merge(ctx, "only11", "only11")
	assert.Error(t, err)

	_, err = svc.Merge(ctx, "only11", "missing")
	assert.Error(t, err)
}

func TestDismiss(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.QueueMatch(ctx, model.DuplicateMatch{
		StableIDA: "x1", StableIDB: "x2", Similarity: 0.72,
	}))

	pending, err := svc.PendingMatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, svc.Dismiss(ctx, pending[0].ID))
	pending, err = svc.PendingMatches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
