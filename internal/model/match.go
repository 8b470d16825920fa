package model

import "time"

// DuplicateMatch is the matcher's verdict on one pair of records. Pairs in
// the review band are persisted to the review queue; everything else is
// ephemeral.
type DuplicateMatch struct {
	ID         int64     `json:"id,omitempty"`
	StableIDA  string    `json:"stable_id_a"`
	StableIDB  string    `json:"stable_id_b"`
	Similarity float64   `json:"similarity"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status,omitempty"` // pending, merged, dismissed
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Review queue match statuses.
const (
	MatchPending   = "pending"
	MatchMerged    = "merged"
	MatchDismissed = "dismissed"
)
