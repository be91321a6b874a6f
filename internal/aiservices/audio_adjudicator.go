package aiservices

import (
	"github.com/crowdtask/platform-backend/internal/utils"
)

const (
	audioApproveSimilarity      = 0.85
	audioInconclusiveSimilarity = 0.6
)

// AudioAdjudicator validates audio-transcription answers against the
// reference transcript produced by the Transcribe job.
type AudioAdjudicator struct{}

func NewAudioAdjudicator() *AudioAdjudicator {
	return &AudioAdjudicator{}
}

// Adjudicate compares the worker's transcription against the reference one.
// Without a completed reference transcript the result is inconclusive and the
// submission falls through to consensus.
func (a *AudioAdjudicator) Adjudicate(transcriptionStatus, referenceTranscript, answer string) AdjudicationResult {
	if transcriptionStatus != "COMPLETED" || referenceTranscript == "" {
		return AdjudicationResult{
			Outcome:    OutcomeInconclusive,
			Confidence: 0,
			Reason:     "AI Audio Validation",
		}
	}

	similarity := utils.SimilarityRatio(
		utils.NormalizeText(answer),
		utils.NormalizeText(referenceTranscript),
	)

	switch {
	case similarity >= audioApproveSimilarity:
		return AdjudicationResult{
			Outcome:    OutcomeApprove,
			Confidence: similarity,
			Reason:     "AI Audio Validation",
		}
	case similarity >= audioInconclusiveSimilarity:
		return AdjudicationResult{
			Outcome:    OutcomeInconclusive,
			Confidence: similarity,
			Reason:     "AI Audio Validation",
		}
	default:
		return AdjudicationResult{
			Outcome:    OutcomeReject,
			Confidence: similarity,
			Reason:     "AI Audio Validation",
		}
	}
}
