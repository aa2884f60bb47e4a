package domain

// Job status constants
const (
	JobStatusPending    = "PENDING"
	JobStatusProcessing = "PROCESSING"
	JobStatusTranslated = "TRANSLATED"
	JobStatusFailed     = "FAILED"
)

// Translation status constants
const (
	TranslationStatusPending    = "PENDING"
	TranslationStatusTranslated = "TRANSLATED"
	TranslationStatusFailed     = "FAILED"
)

// Change classifications produced by the change detector
const (
	ChangeNew       = "NEW"
	ChangeChanged   = "CHANGED"
	ChangeUnchanged = "UNCHANGED"
)

// ChangedPriorityBoost is added to a content type's priority when the job
// comes from an edited source value rather than a first-time translation.
const ChangedPriorityBoost = 10

// IsTerminalJobStatus reports whether a job status can no longer change
// without operator intervention.
func IsTerminalJobStatus(status string) bool {
	return status == JobStatusTranslated || status == JobStatusFailed
}
