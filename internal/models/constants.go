package models

// UnspecifiedService buckets appointments without a service code in dashboard tallies.
const UnspecifiedService = "Non spécifié"

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)
