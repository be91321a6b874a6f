package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/schemas"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
)

// DefaultDisputeWindow is how long a dispute may stay Open before the
// auto-resolver approves it in the worker's favor.
const DefaultDisputeWindow = 3 * 24 * time.Hour

const autoResolveNotes = "Auto-approved: dispute window lapsed without an admin decision"

var (
	// ErrSubmissionNotDisputable means the submission is not in Rejected.
	ErrSubmissionNotDisputable = errors.New("only rejected submissions can be disputed")
	// ErrSubmissionNotOwned means the submission belongs to a different worker.
	ErrSubmissionNotOwned = errors.New("submission belongs to another worker")
	// ErrDisputeNotOpen means the dispute has already been resolved.
	ErrDisputeNotOpen = errors.New("dispute is not open")
	// ErrInvalidDisputeDecision means the admin decision is not one of APPROVE, PARTIAL, REJECT.
	ErrInvalidDisputeDecision = errors.New("invalid dispute decision")
)

// DisputeService opens worker disputes, applies admin decisions, and
// auto-approves disputes the admins let lapse.
type DisputeService struct {
	models         *data.Models
	eventProducer  events.Producer
	monitorService monitor.MonitorServiceInterface
	disputeWindow  time.Duration
}

func NewDisputeService(models *data.Models, eventProducer events.Producer, monitorService monitor.MonitorServiceInterface, disputeWindow time.Duration) (*DisputeService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	if eventProducer == nil {
		return nil, fmt.Errorf("event producer cannot be nil")
	}
	if disputeWindow <= 0 {
		disputeWindow = DefaultDisputeWindow
	}
	return &DisputeService{
		models:         models,
		eventProducer:  eventProducer,
		monitorService: monitorService,
		disputeWindow:  disputeWindow,
	}, nil
}

// OpenDispute lets a worker contest their own Rejected submission.
func (s *DisputeService) OpenDispute(ctx context.Context, submissionID, workerID, reason string) (*data.Dispute, error) {
	dbConnectionPool := s.models.DBConnectionPool

	submission, err := s.models.Submissions.Get(ctx, dbConnectionPool, submissionID)
	if err != nil {
		return nil, fmt.Errorf("loading submission %s: %w", submissionID, err)
	}
	if submission.WorkerID != workerID {
		return nil, ErrSubmissionNotOwned
	}
	if submission.Status != data.RejectedSubmissionStatus {
		return nil, ErrSubmissionNotDisputable
	}

	dispute, err := db.RunInTransactionWithResult(ctx, dbConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Dispute, error) {
		newDispute := &data.Dispute{
			ID:           uuid.NewString(),
			SubmissionID: submissionID,
			WorkerID:     workerID,
			Reason:       reason,
			Status:       data.OpenDisputeStatus,
		}
		if innerErr := s.models.Disputes.Insert(ctx, dbTx, newDispute); innerErr != nil {
			return nil, innerErr
		}
		if innerErr := s.models.Submissions.UpdateStatus(ctx, dbTx, submissionID, data.DisputedSubmissionStatus); innerErr != nil {
			return nil, innerErr
		}
		return newDispute, nil
	})
	if err != nil {
		return nil, fmt.Errorf("opening dispute on submission %s: %w", submissionID, err)
	}

	logger.Ctx(ctx).Infof("Worker %s opened dispute %s on submission %s", workerID, dispute.ID, submissionID)
	return dispute, nil
}

// ResolveDispute applies an admin decision to an Open dispute. APPROVE and
// PARTIAL re-enter the payment engine through the Approved edge; REJECT is
// final.
func (s *DisputeService) ResolveDispute(ctx context.Context, disputeID string, decision data.DisputeDecision, adminNotes string) error {
	switch decision {
	case data.ApproveDisputeDecision, data.PartialDisputeDecision, data.RejectDisputeDecision:
	default:
		return ErrInvalidDisputeDecision
	}

	dispute, err := s.models.Disputes.Get(ctx, s.models.DBConnectionPool, disputeID)
	if err != nil {
		return fmt.Errorf("loading dispute %s: %w", disputeID, err)
	}

	return s.resolve(ctx, dispute, data.ResolvedDisputeStatus, decision, adminNotes)
}

// AutoResolveOpenDisputes approves every dispute that has been Open longer
// than the dispute window. It returns how many were resolved; the conditional
// dispute update keeps repeated sweeps idempotent.
func (s *DisputeService) AutoResolveOpenDisputes(ctx context.Context, limit int) (int, error) {
	cutoff := time.Now().Add(-s.disputeWindow)
	stale, err := s.models.Disputes.GetOpenOlderThan(ctx, s.models.DBConnectionPool, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("querying lapsed disputes: %w", err)
	}

	resolved := 0
	for _, dispute := range stale {
		if resolveErr := s.resolve(ctx, dispute, data.AutoApprovedDisputeStatus, data.AutoApproveDisputeDecision, autoResolveNotes); resolveErr != nil {
			logger.Ctx(ctx).Warnf("auto-resolving dispute %s: %v", dispute.ID, resolveErr)
			continue
		}
		resolved++
		if s.monitorService != nil {
			if monitorErr := s.monitorService.MonitorCounters(monitor.DisputesAutoResolvedCounterTag, nil); monitorErr != nil {
				logger.Ctx(ctx).Errorf("monitoring auto-resolved dispute: %v", monitorErr)
			}
		}
	}
	return resolved, nil
}

func (s *DisputeService) resolve(ctx context.Context, dispute *data.Dispute, targetStatus data.DisputeStatus, decision data.DisputeDecision, notes string) error {
	payoutPercent := decision.PayoutPercent()

	submissionStatus := data.ApprovedSubmissionStatus
	if decision == data.RejectDisputeDecision {
		submissionStatus = data.RejectedFinalSubmissionStatus
	}

	err := db.RunInTransaction(ctx, s.models.DBConnectionPool, nil, func(dbTx db.DBTransaction) error {
		if innerErr := s.models.Disputes.Resolve(ctx, dbTx, dispute.ID, targetStatus, decision, payoutPercent, notes); innerErr != nil {
			if errors.Is(innerErr, data.ErrMismatchNumRowsAffected) {
				return ErrDisputeNotOpen
			}
			return innerErr
		}
		if innerErr := s.models.Submissions.UpdateStatus(ctx, dbTx, dispute.SubmissionID, submissionStatus); innerErr != nil {
			return innerErr
		}
		return s.models.Submissions.SetDisputeResolution(ctx, dbTx, dispute.SubmissionID, data.DisputeResolution{
			Decision:      decision,
			PayoutPercent: payoutPercent,
			ResolvedAt:    time.Now().UTC(),
		})
	})
	if err != nil {
		if errors.Is(err, ErrDisputeNotOpen) {
			return ErrDisputeNotOpen
		}
		return fmt.Errorf("resolving dispute %s: %w", dispute.ID, err)
	}

	if submissionStatus == data.ApprovedSubmissionStatus {
		s.emitStatusChanged(ctx, dispute, payoutPercent)
	}
	return nil
}

// emitStatusChanged publishes the Approved edge that re-enters the payment
// engine, carrying the dispute's payout percent.
func (s *DisputeService) emitStatusChanged(ctx context.Context, dispute *data.Dispute, payoutPercent int) {
	submission, err := s.models.Submissions.Get(ctx, s.models.DBConnectionPool, dispute.SubmissionID)
	if err != nil {
		logger.Ctx(ctx).Errorf("loading submission %s for dispute event: %v", dispute.SubmissionID, err)
		return
	}

	msg, err := events.NewMessage(events.SubmissionStatusTopic, submission.ID, events.SubmissionStatusChangedType, schemas.EventSubmissionStatusChangedData{
		SubmissionID:  submission.ID,
		TaskID:        submission.TaskID,
		WorkerID:      submission.WorkerID,
		OldStatus:     string(data.DisputedSubmissionStatus),
		NewStatus:     string(data.ApprovedSubmissionStatus),
		PayoutPercent: payoutPercent,
	})
	if err != nil {
		logger.Ctx(ctx).Errorf("building dispute status-changed message for submission %s: %v", submission.ID, err)
		return
	}

	err = retry.Do(
		func() error {
			return s.eventProducer.WriteMessages(ctx, *msg)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		logger.Ctx(ctx).Errorf("publishing dispute status-changed message for submission %s: %v", submission.ID, err)
	}
}
