package models

// Lifecycle of an imported record. "draft" from creation until an accountant
// posts the generated entry by hand; the importer itself never posts.
const (
	RecordStateDraft  = "draft"
	RecordStatePosted = "posted"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)
