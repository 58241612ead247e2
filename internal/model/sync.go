package model

import "time"

// Sync run statuses.
const (
	SyncStatusIdle       = "idle"
	SyncStatusInProgress = "in_progress"
	SyncStatusCompleted  = "completed"
	SyncStatusError      = "error"
)

// Sync phases. Simple products are imported first, then variable products
// together with their published variations.
const (
	PhaseSimple   = 1
	PhaseVariable = 2
)

// StaleAfter is how long an in-progress resumable run may sit untouched
// before it is discarded and treated as idle.
const StaleAfter = 60 * time.Minute

// SyncState is the resumable progress record for an in-flight run. It lives
// in the state store between interactive batch steps.
type SyncState struct {
	RunID             string    `json:"run_id"`
	Status            string    `json:"status"`
	Phase             int       `json:"phase"`
	Page              int       `json:"page"`
	PerPage           int       `json:"per_page"`
	FullSync          bool      `json:"full_sync"`
	ProductsAdded     int       `json:"products_added"`
	ProductsUpdated   int       `json:"products_updated"`
	VariationsAdded   int       `json:"variations_added"`
	VariationsUpdated int       `json:"variations_updated"`
	Processed         int       `json:"processed"`
	EstimatedTotal    int       `json:"estimated_total"`
	Errors            []string  `json:"errors"`
	StartedAt         time.Time `json:"started_at"`
}

// DefaultSyncState is the well-defined idle state returned when nothing is
// stored. Unknown fields in a stored state are back-filled from it.
func DefaultSyncState() *SyncState {
	return &SyncState{
		Status:         SyncStatusIdle,
		Phase:          PhaseSimple,
		Page:           1,
		PerPage:        20,
		EstimatedTotal: 5000,
		StartedAt:      time.Now(),
	}
}

// Stale reports whether an in-progress state has exceeded the inactivity
// window and should be discarded.
func (s *SyncState) Stale(now time.Time) bool {
	return s.Status == SyncStatusInProgress && now.Sub(s.StartedAt) > StaleAfter
}

// SyncResult is the outcome of one engine invocation: a single batch step in
// interactive mode, or the whole run in complete mode.
type SyncResult struct {
	Status            string        `json:"status"`
	ProductsAdded     int           `json:"products_added"`
	ProductsUpdated   int           `json:"products_updated"`
	VariationsAdded   int           `json:"variations_added"`
	VariationsUpdated int           `json:"variations_updated"`
	Processed         int           `json:"processed"`
	Errors            []string      `json:"errors"`
	Complete          bool          `json:"is_complete"`
	ContinuationToken string        `json:"continuation_token,omitempty"`
	ProgressPercent   int           `json:"progress_percent"`
	Duration          time.Duration `json:"duration"`
}
