// Package schemas holds the payloads carried by event messages.
package schemas

// EventSubmissionReceivedData rides the qc-submission topic and triggers the
// QC pipeline.
type EventSubmissionReceivedData struct {
	SubmissionID string `json:"submission_id"`
	TaskID       string `json:"task_id"`
	WorkerID     string `json:"worker_id"`
	Answer       string `json:"answer"`
}

// EventSubmissionStatusChangedData rides the submission-status topic and
// drives settlement and worker stats.
type EventSubmissionStatusChangedData struct {
	SubmissionID  string `json:"submission_id"`
	TaskID        string `json:"task_id"`
	WorkerID      string `json:"worker_id"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
	PayoutPercent int    `json:"payout_percent"`
}

// EventQCCompletedData is the externally published QC outcome.
type EventQCCompletedData struct {
	SubmissionID string  `json:"submissionId"`
	TaskID       string  `json:"taskId"`
	Status       string  `json:"status"`
	AIConfidence float64 `json:"aiConfidence"`
	Reason       string  `json:"reason"`
}
