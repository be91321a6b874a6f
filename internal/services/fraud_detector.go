package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/utils"
)

const (
	copyPasteSimilarityThreshold = 0.95
	copyPasteWindow              = 60 * time.Second
	copyPasteHistoryLimit        = 10

	spamWindow            = 60 * time.Second
	spamSubmissionMinimum = 3

	botHistoryPadding   = 5
	botMaxInterval      = time.Hour
	botMinIntervals     = 3
	botStdDevThreshold  = 0.5
	botMeanThreshold    = 30.0
	botHistoryBaseCount = 5

	copyPasteScore = 1.0
	botScore       = 0.9
	spamScore      = 0.8

	fraudScoreThreshold = 0.8
)

// FraudCheckResult aggregates the per-check outcomes for one submission.
type FraudCheckResult struct {
	IsFraud    bool
	FraudScore float64
	Reasons    []string
}

// FraudDetectorService runs the per-worker behavioral checks. It only reads
// submission history; every check failure is non-fatal and counts as "not
// detected" so a broken check can never reject a legitimate submission.
type FraudDetectorService struct {
	models *data.Models
}

func NewFraudDetectorService(models *data.Models) (*FraudDetectorService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	return &FraudDetectorService{models: models}, nil
}

func (s *FraudDetectorService) CheckSubmission(ctx context.Context, workerID, taskID, answer string) FraudCheckResult {
	result := FraudCheckResult{}

	if detected, err := s.checkCopyPaste(ctx, workerID, taskID, answer); err != nil {
		logger.Ctx(ctx).Warnf("copy-paste check failed for worker %s: %v", workerID, err)
	} else if detected {
		result.FraudScore = math.Max(result.FraudScore, copyPasteScore)
		result.Reasons = append(result.Reasons, "copy-paste answer reuse")
	}

	if detected, err := s.checkSpam(ctx, workerID); err != nil {
		logger.Ctx(ctx).Warnf("spam check failed for worker %s: %v", workerID, err)
	} else if detected {
		result.FraudScore = math.Max(result.FraudScore, spamScore)
		result.Reasons = append(result.Reasons, "submission rate too high")
	}

	if detected, err := s.checkBotTiming(ctx, workerID); err != nil {
		logger.Ctx(ctx).Warnf("bot-timing check failed for worker %s: %v", workerID, err)
	} else if detected {
		result.FraudScore = math.Max(result.FraudScore, botScore)
		result.Reasons = append(result.Reasons, "bot-like submission timing")
	}

	result.IsFraud = result.FraudScore >= fraudScoreThreshold
	return result
}

// checkCopyPaste flags near-identical answers reused across different tasks
// within the window.
func (s *FraudDetectorService) checkCopyPaste(ctx context.Context, workerID, taskID, answer string) (bool, error) {
	since := time.Now().Add(-copyPasteWindow)
	recent, err := s.models.Submissions.GetByWorkerSince(ctx, s.models.DBConnectionPool, workerID, since, copyPasteHistoryLimit)
	if err != nil {
		return false, fmt.Errorf("querying recent submissions: %w", err)
	}

	normalized := utils.NormalizeAnswer(answer)
	for _, sub := range recent {
		if sub.TaskID == taskID {
			continue
		}
		if utils.SimilarityRatio(normalized, utils.NormalizeAnswer(sub.Answer)) >= copyPasteSimilarityThreshold {
			return true, nil
		}
	}
	return false, nil
}

// checkSpam flags workers exceeding the submission rate within the window.
func (s *FraudDetectorService) checkSpam(ctx context.Context, workerID string) (bool, error) {
	since := time.Now().Add(-spamWindow)
	recent, err := s.models.Submissions.GetByWorkerSince(ctx, s.models.DBConnectionPool, workerID, since, spamSubmissionMinimum+1)
	if err != nil {
		return false, fmt.Errorf("querying recent submissions: %w", err)
	}
	return len(recent) >= spamSubmissionMinimum, nil
}

// checkBotTiming flags unnaturally regular submission intervals.
func (s *FraudDetectorService) checkBotTiming(ctx context.Context, workerID string) (bool, error) {
	latest, err := s.models.Submissions.GetLatestByWorker(ctx, s.models.DBConnectionPool, workerID, botHistoryBaseCount+botHistoryPadding)
	if err != nil {
		return false, fmt.Errorf("querying latest submissions: %w", err)
	}

	timestamps := make([]time.Time, len(latest))
	for i, sub := range latest {
		timestamps[i] = sub.SubmittedAt
	}

	return isBotTimingPattern(timestamps), nil
}

// isBotTimingPattern reports whether newest-first timestamps show a bot-like
// cadence: at least botMinIntervals intervals under an hour whose standard
// deviation is under half a second and mean under thirty seconds.
func isBotTimingPattern(newestFirst []time.Time) bool {
	intervals := make([]float64, 0, len(newestFirst))
	for i := 0; i+1 < len(newestFirst); i++ {
		interval := newestFirst[i].Sub(newestFirst[i+1])
		if interval >= botMaxInterval {
			continue
		}
		intervals = append(intervals, interval.Seconds())
	}
	if len(intervals) < botMinIntervals {
		return false
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))
	stdDev := math.Sqrt(variance)

	return stdDev < botStdDevThreshold && mean < botMeanThreshold
}
