package aiservices

import (
	"context"
	"fmt"
	"strings"
)

const imageApproveConfidence = 0.8

// ImageAdjudicator validates image-classification answers against the labels
// Rekognition sees in the task media.
type ImageAdjudicator struct {
	detector LabelDetector
}

func NewImageAdjudicator(detector LabelDetector) (*ImageAdjudicator, error) {
	if detector == nil {
		return nil, fmt.Errorf("label detector cannot be nil")
	}
	return &ImageAdjudicator{detector: detector}, nil
}

// Adjudicate matches the worker's answer against the detected label set.
// A match at or above the approval confidence approves; no match at all
// rejects with low confidence; a weak match is inconclusive and falls through
// to consensus.
func (a *ImageAdjudicator) Adjudicate(ctx context.Context, mediaKey, answer string) (AdjudicationResult, error) {
	labels, err := a.detector.DetectLabels(ctx, mediaKey)
	if err != nil {
		return AdjudicationResult{}, fmt.Errorf("detecting labels: %w", err)
	}

	matched, confidence := bestLabelMatch(labels, answer)
	switch {
	case matched && confidence >= imageApproveConfidence:
		return AdjudicationResult{
			Outcome:    OutcomeApprove,
			Confidence: confidence,
			Reason:     "AI Image Validation",
		}, nil
	case !matched:
		return AdjudicationResult{
			Outcome:    OutcomeReject,
			Confidence: 0.2,
			Reason:     "AI Image Validation",
		}, nil
	default:
		return AdjudicationResult{
			Outcome:    OutcomeInconclusive,
			Confidence: confidence,
			Reason:     "AI Image Validation",
		}, nil
	}
}

// bestLabelMatch returns whether the answer matches any label and the highest
// confidence among matches. A match is a case-insensitive exact equality or a
// substring containment in either direction.
func bestLabelMatch(labels []Label, answer string) (bool, float64) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return false, 0
	}

	matched := false
	best := 0.0
	for _, label := range labels {
		name := strings.ToLower(label.Name)
		if name == answer || strings.Contains(name, answer) || strings.Contains(answer, name) {
			matched = true
			if label.Confidence > best {
				best = label.Confidence
			}
		}
	}
	return matched, best
}
