// Package aiservices wraps the machine-judgement backends used by the QC
// pipeline: Rekognition label detection for images, Transcribe for audio, and
// an optional SageMaker endpoint for custom models.
package aiservices

import "context"

type AdjudicationOutcome string

const (
	OutcomeApprove AdjudicationOutcome = "APPROVE"
	OutcomeReject  AdjudicationOutcome = "REJECT"
	// OutcomeInconclusive means the AI could not decide; the submission falls
	// through to consensus.
	OutcomeInconclusive AdjudicationOutcome = "INCONCLUSIVE"
)

// AdjudicationResult is an AI verdict on a submission answer.
type AdjudicationResult struct {
	Outcome    AdjudicationOutcome
	Confidence float64
	Reason     string
}

// Label is a detected image label with its confidence normalized to [0, 1].
type Label struct {
	Name       string
	Confidence float64
}

type LabelDetector interface {
	DetectLabels(ctx context.Context, mediaKey string) ([]Label, error)
}

// TranscriptionJob is the observed state of an asynchronous transcription.
type TranscriptionJob struct {
	JobName       string
	Status        string
	Transcript    string
	FailureReason string
}

type Transcriber interface {
	StartTranscriptionJob(ctx context.Context, mediaKey string) (jobName string, err error)
	GetTranscriptionJob(ctx context.Context, jobName string) (*TranscriptionJob, error)
}

type ModelInvoker interface {
	InvokeModel(ctx context.Context, payload []byte) ([]byte, error)
}
