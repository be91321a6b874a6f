package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
	"github.com/crowdtask/platform-backend/internal/utils"
)

const (
	DefaultConsensusQuorum = 3

	aiRejectConfidenceCeiling  = 0.3
	aiApproveConfidenceFloor   = 0.9
	consensusApproveConfidence = 1.0
	consensusRejectConfidence  = 0.0
)

// QC decision reasons stamped onto submissions.
const (
	ReasonFraudDetection    = "Fraud Detection"
	ReasonGoldStandard      = "Gold Standard Validation"
	ReasonMajorityConsensus = "Majority Consensus"
	ReasonConsensusMismatch = "Consensus Mismatch"
	ReasonNoConsensus       = "No Consensus"
)

type QCServiceOptions struct {
	Models           *data.Models
	FraudDetector    *FraudDetectorService
	ImageAdjudicator *aiservices.ImageAdjudicator
	AudioAdjudicator *aiservices.AudioAdjudicator
	// CustomAdjudicator judges task types neither of the built-in
	// adjudicators covers, when a model endpoint is configured.
	CustomAdjudicator *aiservices.CustomAdjudicator
	EventProducer     events.Producer
	MonitorService    monitor.MonitorServiceInterface
	ConsensusQuorum   int
}

// QCService runs the quality-control pipeline over incoming submissions:
// fraud screening, gold-standard validation, AI adjudication, and majority
// consensus, in that order.
type QCService struct {
	models            *data.Models
	fraudDetector     *FraudDetectorService
	imageAdjudicator  *aiservices.ImageAdjudicator
	audioAdjudicator  *aiservices.AudioAdjudicator
	customAdjudicator *aiservices.CustomAdjudicator
	eventProducer     events.Producer
	monitorService    monitor.MonitorServiceInterface
	quorum            int
}

func NewQCService(opts QCServiceOptions) (*QCService, error) {
	if opts.Models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	if opts.FraudDetector == nil {
		return nil, fmt.Errorf("fraud detector cannot be nil")
	}
	if opts.EventProducer == nil {
		return nil, fmt.Errorf("event producer cannot be nil")
	}
	if opts.ConsensusQuorum <= 0 {
		opts.ConsensusQuorum = DefaultConsensusQuorum
	}

	return &QCService{
		models:            opts.Models,
		fraudDetector:     opts.FraudDetector,
		imageAdjudicator:  opts.ImageAdjudicator,
		audioAdjudicator:  opts.AudioAdjudicator,
		customAdjudicator: opts.CustomAdjudicator,
		eventProducer:     opts.EventProducer,
		monitorService:    opts.MonitorService,
		quorum:            opts.ConsensusQuorum,
	}, nil
}

// ProcessSubmission is the pipeline entrypoint, invoked per QC queue message.
// It is safe under message re-delivery: terminal submissions are never
// rewritten.
func (s *QCService) ProcessSubmission(ctx context.Context, submissionID string) error {
	dbConnectionPool := s.models.DBConnectionPool

	submission, err := s.models.Submissions.Get(ctx, dbConnectionPool, submissionID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			logger.Ctx(ctx).Warnf("Dropping QC message for unknown submission %s", submissionID)
			return nil
		}
		return fmt.Errorf("loading submission %s: %w", submissionID, err)
	}

	if submission.Status.IsTerminal() {
		logger.Ctx(ctx).Infof("Submission %s is already %s, skipping QC", submissionID, submission.Status)
		return nil
	}

	task, err := s.models.Tasks.Get(ctx, dbConnectionPool, submission.TaskID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			logger.Ctx(ctx).Warnf("Dropping QC message for submission %s: task %s not found", submissionID, submission.TaskID)
			return nil
		}
		return fmt.Errorf("loading task %s: %w", submission.TaskID, err)
	}

	// 1. Fraud screening.
	fraud := s.fraudDetector.CheckSubmission(ctx, submission.WorkerID, submission.TaskID, submission.Answer)
	if fraud.IsFraud {
		reason := fmt.Sprintf("%s: %s", ReasonFraudDetection, strings.Join(fraud.Reasons, "; "))
		return s.decide(ctx, submission, task, data.RejectedSubmissionStatus, fraud.FraudScore, reason)
	}

	// 2. Gold-standard fast path; gold submissions bypass consensus.
	if task.IsGold {
		return s.adjudicateGold(ctx, submission, task)
	}

	// 3. AI adjudication for task types that support it.
	proceedToConsensus, err := s.adjudicateAI(ctx, submission, task)
	if err != nil {
		return err
	}
	if !proceedToConsensus {
		return nil
	}

	// 4. Majority consensus.
	return s.runConsensus(ctx, submission, task)
}

func (s *QCService) adjudicateGold(ctx context.Context, submission *data.Submission, task *data.Task) error {
	goldAnswer := ""
	if task.GoldAnswer != nil {
		goldAnswer = *task.GoldAnswer
	}

	if utils.NormalizeAnswer(submission.Answer) == utils.NormalizeAnswer(goldAnswer) {
		return s.decide(ctx, submission, task, data.ApprovedSubmissionStatus, 1.0, ReasonGoldStandard)
	}
	return s.decide(ctx, submission, task, data.RejectedSubmissionStatus, 0.0, ReasonGoldStandard)
}

// adjudicateAI runs the AI path for image and audio tasks. It returns true
// when the submission must proceed to consensus.
func (s *QCService) adjudicateAI(ctx context.Context, submission *data.Submission, task *data.Task) (bool, error) {
	var result aiservices.AdjudicationResult

	switch task.Type {
	case data.ImageClassificationTaskType:
		if s.imageAdjudicator == nil {
			return true, nil
		}
		mediaKey := task.Payload.MediaKey()
		if mediaKey == "" {
			logger.Ctx(ctx).Warnf("Task %s has no media key, skipping image adjudication", task.ID)
			return true, nil
		}
		var err error
		result, err = s.imageAdjudicator.Adjudicate(ctx, mediaKey, submission.Answer)
		if err != nil {
			// AI failure is non-fatal: fall through to consensus.
			logger.Ctx(ctx).Warnf("Image adjudication failed for submission %s: %v", submission.ID, err)
			return true, nil
		}

	case data.AudioTranscriptionTaskType:
		if s.audioAdjudicator == nil {
			return true, nil
		}
		transcriptionStatus := ""
		if task.TranscriptionStatus != nil {
			transcriptionStatus = *task.TranscriptionStatus
		}
		referenceTranscript := ""
		if task.AITranscription != nil {
			referenceTranscript = *task.AITranscription
		}
		result = s.audioAdjudicator.Adjudicate(transcriptionStatus, referenceTranscript, submission.Answer)

	default:
		if s.customAdjudicator == nil {
			return true, nil
		}
		var err error
		result, err = s.customAdjudicator.Adjudicate(ctx, task.Type, submission.Answer)
		if err != nil {
			logger.Ctx(ctx).Warnf("Custom adjudication failed for submission %s: %v", submission.ID, err)
			return true, nil
		}
	}

	switch {
	case result.Outcome == aiservices.OutcomeReject && result.Confidence < aiRejectConfidenceCeiling:
		return false, s.decide(ctx, submission, task, data.RejectedSubmissionStatus, result.Confidence, result.Reason)
	case result.Outcome == aiservices.OutcomeApprove && result.Confidence >= aiApproveConfidenceFloor:
		return false, s.decide(ctx, submission, task, data.ApprovedSubmissionStatus, result.Confidence, result.Reason)
	default:
		return true, nil
	}
}

func (s *QCService) runConsensus(ctx context.Context, submission *data.Submission, task *data.Task) error {
	dbConnectionPool := s.models.DBConnectionPool

	if err := s.models.Submissions.MarkPendingConsensus(ctx, dbConnectionPool, submission.ID); err != nil {
		return fmt.Errorf("parking submission %s for consensus: %w", submission.ID, err)
	}

	peers, err := s.models.Submissions.GetByTaskID(ctx, dbConnectionPool, submission.TaskID)
	if err != nil {
		return fmt.Errorf("loading peer submissions for task %s: %w", submission.TaskID, err)
	}

	// Index-lag repair: make sure the triggering submission is in the peer set.
	found := false
	for _, peer := range peers {
		if peer.ID == submission.ID {
			found = true
			break
		}
	}
	if !found {
		peers = append(peers, submission)
	}

	if len(peers) < s.quorum {
		logger.Ctx(ctx).Infof("Task %s has %d of %d submissions needed for consensus, waiting", task.ID, len(peers), s.quorum)
		return nil
	}

	consensusAnswer, hasConsensus := tallyConsensus(peers, s.quorum)

	for _, peer := range peers {
		var status data.SubmissionStatus
		var confidence float64
		var reason string

		switch {
		case !hasConsensus:
			status, confidence, reason = data.RejectedSubmissionStatus, consensusRejectConfidence, ReasonNoConsensus
		case utils.NormalizeAnswer(peer.Answer) == consensusAnswer:
			status, confidence, reason = data.ApprovedSubmissionStatus, consensusApproveConfidence, ReasonMajorityConsensus
		default:
			status, confidence, reason = data.RejectedSubmissionStatus, consensusRejectConfidence, ReasonConsensusMismatch
		}

		if err = s.decide(ctx, peer, task, status, confidence, reason); err != nil {
			return fmt.Errorf("resolving peer submission %s: %w", peer.ID, err)
		}
	}

	return nil
}

// tallyConsensus tallies normalized answers and returns the consensus answer
// when the top answer reaches the majority threshold. The winner is a pure
// function of the submission set: ties on count go to the answer first
// submitted, then lexicographically, so a replayed message always re-derives
// the same verdict.
func tallyConsensus(submissions []*data.Submission, quorum int) (string, bool) {
	majorityThreshold := quorum/2 + 1

	counts := map[string]int{}
	firstSeen := map[string]time.Time{}
	for _, sub := range submissions {
		answer := utils.NormalizeAnswer(sub.Answer)
		counts[answer]++
		if seen, ok := firstSeen[answer]; !ok || sub.SubmittedAt.Before(seen) {
			firstSeen[answer] = sub.SubmittedAt
		}
	}

	var winner string
	winnerCount := -1
	for answer, count := range counts {
		if count < winnerCount {
			continue
		}
		if count > winnerCount ||
			firstSeen[answer].Before(firstSeen[winner]) ||
			(firstSeen[answer].Equal(firstSeen[winner]) && answer < winner) {
			winner, winnerCount = answer, count
		}
	}

	if winnerCount >= majorityThreshold {
		return winner, true
	}
	return "", false
}

// decide writes the QC verdict and emits the completion events. The
// conditional write makes replays no-ops: already-decided, Disputed, or
// RejectedFinal submissions are never rewritten and emit nothing.
func (s *QCService) decide(ctx context.Context, submission *data.Submission, task *data.Task, status data.SubmissionStatus, confidence float64, reason string) error {
	applied, err := s.models.Submissions.ApplyQCDecision(ctx, s.models.DBConnectionPool, submission.ID, status, confidence, reason)
	if err != nil {
		return fmt.Errorf("applying QC decision on submission %s: %w", submission.ID, err)
	}
	if !applied {
		logger.Ctx(ctx).Infof("QC decision for submission %s was already applied, skipping", submission.ID)
		return nil
	}

	logger.Ctx(ctx).Infof("QC decided %s for submission %s (confidence %.2f, reason %q)", status, submission.ID, confidence, reason)

	if s.monitorService != nil {
		labels := monitor.QCDecisionLabels{Status: string(status), Path: reason}
		if monitorErr := s.monitorService.MonitorCounters(monitor.QCDecisionsCounterTag, labels.ToMap()); monitorErr != nil {
			logger.Ctx(ctx).Errorf("monitoring QC decision: %v", monitorErr)
		}
	}

	s.emitStatusChanged(ctx, submission, task, string(submission.Status), string(status))
	s.emitQCCompleted(ctx, submission, string(status), confidence, reason)
	return nil
}

// emitStatusChanged publishes the internal status-change event consumed by
// the settlement and worker-stats handlers.
func (s *QCService) emitStatusChanged(ctx context.Context, submission *data.Submission, task *data.Task, oldStatus, newStatus string) {
	msg, err := events.NewMessage(events.SubmissionStatusTopic, submission.ID, events.SubmissionStatusChangedType, schemas.EventSubmissionStatusChangedData{
		SubmissionID:  submission.ID,
		TaskID:        task.ID,
		WorkerID:      submission.WorkerID,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		PayoutPercent: 100,
	})
	if err != nil {
		logger.Ctx(ctx).Errorf("building status-changed message for submission %s: %v", submission.ID, err)
		return
	}
	s.publishWithRetry(ctx, *msg)
}

// emitQCCompleted publishes the external QC notification. Failures are logged
// and never fail the pipeline.
func (s *QCService) emitQCCompleted(ctx context.Context, submission *data.Submission, status string, confidence float64, reason string) {
	msg, err := events.NewMessage(events.QCCompletedTopic, submission.ID, events.SubmissionQCCompletedType, schemas.EventQCCompletedData{
		SubmissionID: submission.ID,
		TaskID:       submission.TaskID,
		Status:       status,
		AIConfidence: confidence,
		Reason:       reason,
	})
	if err != nil {
		logger.Ctx(ctx).Errorf("building QC-completed message for submission %s: %v", submission.ID, err)
		return
	}
	s.publishWithRetry(ctx, *msg)
}

func (s *QCService) publishWithRetry(ctx context.Context, msg events.Message) {
	err := retry.Do(
		func() error {
			return s.eventProducer.WriteMessages(ctx, msg)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		logger.Ctx(ctx).Errorf("publishing message to topic %s for key %s: %v", msg.Topic, msg.Key, err)
	}
}
