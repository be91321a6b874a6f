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
)

var (
	// ErrAssignmentNotFound means the referenced assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAssignmentNotOwned means the assignment belongs to a different worker.
	ErrAssignmentNotOwned = errors.New("assignment belongs to another worker")
	// ErrAssignmentTaskMismatch means the assignment references a different task.
	ErrAssignmentTaskMismatch = errors.New("assignment does not reference this task")
	// ErrAssignmentNotActive means the assignment is no longer in Assigned.
	ErrAssignmentNotActive = errors.New("assignment is not active")
	// ErrAssignmentExpired means the assignment TTL has lapsed.
	ErrAssignmentExpired = errors.New("assignment has expired")
)

// SubmissionService records worker answers and feeds them into the QC queue.
type SubmissionService struct {
	models        *data.Models
	eventProducer events.Producer
}

func NewSubmissionService(models *data.Models, eventProducer events.Producer) (*SubmissionService, error) {
	if models == nil {
		return nil, fmt.Errorf("models cannot be nil")
	}
	if eventProducer == nil {
		return nil, fmt.Errorf("event producer cannot be nil")
	}
	return &SubmissionService{models: models, eventProducer: eventProducer}, nil
}

// SubmitAnswer validates the assignment, records the submission, and moves
// the assignment and task forward in one transaction. The QC event publishes
// after commit.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, taskID, workerID, assignmentID, answer string) (*data.Submission, error) {
	dbConnectionPool := s.models.DBConnectionPool

	assignment, err := s.models.Assignments.Get(ctx, dbConnectionPool, assignmentID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("loading assignment %s: %w", assignmentID, err)
	}

	switch {
	case assignment.WorkerID != workerID:
		return nil, ErrAssignmentNotOwned
	case assignment.TaskID != taskID:
		return nil, ErrAssignmentTaskMismatch
	case assignment.Status != data.AssignedAssignmentStatus:
		return nil, ErrAssignmentNotActive
	case time.Now().After(assignment.ExpiresAt):
		return nil, ErrAssignmentExpired
	}

	submission, err := db.RunInTransactionWithResult(ctx, dbConnectionPool, nil, func(dbTx db.DBTransaction) (*data.Submission, error) {
		newSubmission := &data.Submission{
			ID:           uuid.NewString(),
			TaskID:       taskID,
			WorkerID:     workerID,
			AssignmentID: assignmentID,
			Status:       data.PendingSubmissionStatus,
			Answer:       answer,
		}
		if innerErr := s.models.Submissions.Insert(ctx, dbTx, newSubmission); innerErr != nil {
			return nil, innerErr
		}
		if innerErr := s.models.Assignments.UpdateStatus(ctx, dbTx, assignmentID, data.SubmittedAssignmentStatus); innerErr != nil {
			return nil, innerErr
		}
		if innerErr := s.models.Tasks.UpdateStatus(ctx, dbTx, taskID, data.ReviewTaskStatus); innerErr != nil {
			return nil, innerErr
		}
		return newSubmission, nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording submission for task %s: %w", taskID, err)
	}

	s.enqueueQC(ctx, submission)
	return submission, nil
}

// enqueueQC publishes the submission onto the QC queue with retries. A
// publish failure is logged, not fatal: the submission stays Pending and can
// be requeued by an admin.
func (s *SubmissionService) enqueueQC(ctx context.Context, submission *data.Submission) {
	msg, err := events.NewMessage(events.SubmissionReceivedTopic, submission.ID, events.SubmissionReceivedType, schemas.EventSubmissionReceivedData{
		SubmissionID: submission.ID,
		TaskID:       submission.TaskID,
		WorkerID:     submission.WorkerID,
		Answer:       submission.Answer,
	})
	if err != nil {
		logger.Ctx(ctx).Errorf("building QC message for submission %s: %v", submission.ID, err)
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
		logger.Ctx(ctx).Errorf("publishing QC message for submission %s: %v", submission.ID, err)
	}
}
