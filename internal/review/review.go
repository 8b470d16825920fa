// Package review is the human decision surface for the directory: pending
// duplicate pairs and pending-approval records, with approve, reject,
// blacklist, and explicit-primary merge actions.
package review

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/partybase-ng/directory-cli/internal/match"
	"github.com/partybase-ng/directory-cli/internal/model"
	"github.com/partybase-ng/directory-cli/internal/store"
)

// Service executes review decisions against the store.
type Service struct {
	store store.Store
}

// New creates a review Service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

// PendingMatches lists queued duplicate pairs, highest similarity first.
func (s *Service) PendingMatches(ctx context.Context, limit int) ([]model.DuplicateMatch, error) {
	return s.store.PendingMatches(ctx, limit)
}

// PendingApprovals lists records awaiting a confidence decision.
func (s *Service) PendingApprovals(ctx context.Context, limit int) ([]model.CanonicalRecord, error) {
	return s.store.PendingApprovals(ctx, limit)
}

// Approve marks a record approved regardless of its machine confidence.
func (s *Service) Approve(ctx context.Context, stableID string) error {
	if err := s.store.SetApproval(ctx, stableID, model.ApprovalApproved); err != nil {
		return err
	}
	zap.L().Info("review: record approved", zap.String("stable_id", stableID))
	return nil
}

// Reject marks a record rejected. The record stays in the store and can
// still be updated by future observations.
func (s *Service) Reject(ctx context.Context, stableID string) error {
	if err := s.store.SetApproval(ctx, stableID, model.ApprovalRejected); err != nil {
		return err
	}
	zap.L().Info("review: record rejected", zap.String("stable_id", stableID))
	return nil
}

// Blacklist rejects a record and permanently suppresses its stable ID:
// ingestion will never resurrect it.
func (s *Service) Blacklist(ctx context.Context, stableID string) error {
	if err := s.store.SetBlacklisted(ctx, stableID); err != nil {
		return err
	}
	zap.L().Info("review: record blacklisted", zap.String("stable_id", stableID))
	return nil
}

// Dismiss resolves a queued duplicate pair as not-a-duplicate.
func (s *Service) Dismiss(ctx context.Context, matchID int64) error {
	return s.store.ResolveMatch(ctx, matchID, model.MatchDismissed)
}

// Merge folds secondary into the caller-chosen primary, retires the
// secondary stable ID, and resolves the queued pair if one exists.
func (s *Service) Merge(ctx context.Context, primaryID, secondaryID string) (*model.CanonicalRecord, error) {
	if primaryID == secondaryID {
		return nil, eris.New("review: primary and secondary are the same record")
	}

	primary, err := s.store.FindByStableID(ctx, primaryID)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, eris.Errorf("review: primary not found: %s", primaryID)
	}
	secondary, err := s.store.FindByStableID(ctx, secondaryID)
	if err != nil {
		return nil, err
	}
	if secondary == nil {
		return nil, eris.Errorf("review: secondary not found: %s", secondaryID)
	}

	merged := match.Merge(primary, secondary)
	if err := s.store.Delete(ctx, secondaryID); err != nil {
		return nil, err
	}
	if _, err := s.store.Upsert(ctx, merged); err != nil {
		return nil, err
	}
	if err := s.store.ResolveMatchPair(ctx, primaryID, secondaryID, model.MatchMerged); err != nil {
		return nil, err
	}

	zap.L().Info("review: records merged",
		zap.String("primary", primaryID), zap.String("secondary", secondaryID))
	return merged, nil
}
