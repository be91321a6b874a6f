package httphandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httpjson"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
	"github.com/crowdtask/platform-backend/internal/serve/validators"
	"github.com/crowdtask/platform-backend/internal/services"
)

type TaskFeedInterface interface {
	ListAvailable(ctx context.Context, workerID string, limit int) ([]services.AvailableTask, data.WorkerLevel, error)
}

type AssignmentServiceInterface interface {
	AssignTask(ctx context.Context, taskID, workerID string) (*data.Assignment, error)
}

type SubmissionServiceInterface interface {
	SubmitAnswer(ctx context.Context, taskID, workerID, assignmentID, answer string) (*data.Submission, error)
}

var (
	_ TaskFeedInterface          = (*services.TaskService)(nil)
	_ AssignmentServiceInterface = (*services.AssignmentService)(nil)
	_ SubmissionServiceInterface = (*services.SubmissionService)(nil)
)

// WorkerTaskHandler exposes the worker endpoints: the task feed, task
// assignment, and answer submission.
type WorkerTaskHandler struct {
	TaskService       TaskFeedInterface
	AssignmentService AssignmentServiceInterface
	SubmissionService SubmissionServiceInterface
}

// ListAvailableTasks returns the worker feed with level-locked tasks flagged.
func (h WorkerTaskHandler) ListAvailableTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := middleware.UserIDFromContext(ctx)

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil {
			httperror.BadRequest("Invalid limit.", err, nil).Render(w)
			return
		}
		limit = parsed
	}

	tasks, workerLevel, err := h.TaskService.ListAvailable(ctx, workerID, limit)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list available tasks", err, nil).Render(w)
		return
	}

	httpjson.Render(w, map[string]any{
		"tasks":       tasks,
		"workerLevel": workerLevel,
	})
}

type assignTaskResponse struct {
	AssignmentID string    `json:"assignmentId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AssignTask locks the task to the calling worker.
func (h WorkerTaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := middleware.UserIDFromContext(ctx)
	taskID := chi.URLParam(r, "taskId")

	assignment, err := h.AssignmentService.AssignTask(ctx, taskID, workerID)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound("Task not found.", err, nil).Render(w)
		case errors.Is(err, services.ErrTaskNotAvailable):
			httperror.Conflict("Task is no longer available.", err, nil).Render(w)
		case errors.Is(err, services.ErrTaskLevelLocked):
			httperror.Forbidden("Task requires a higher worker level.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot assign task", err, nil).Render(w)
		}
		return
	}

	httpjson.Render(w, assignTaskResponse{
		AssignmentID: assignment.ID,
		ExpiresAt:    assignment.ExpiresAt,
	})
}

type submitAnswerRequest struct {
	AssignmentID string `json:"assignmentId"`
	Answer       string `json:"answer"`
}

type submitAnswerResponse struct {
	SubmissionID string `json:"submissionId"`
	Status       string `json:"status"`
}

// SubmitAnswer records the worker's answer for their active assignment.
func (h WorkerTaskHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := middleware.UserIDFromContext(ctx)
	taskID := chi.URLParam(r, "taskId")

	var reqBody submitAnswerRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	v := validators.NewValidator()
	v.Check(reqBody.AssignmentID != "", "assignmentId", "assignmentId is required")
	v.Check(reqBody.Answer != "", "answer", "answer cannot be empty")
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).Render(w)
		return
	}

	submission, err := h.SubmissionService.SubmitAnswer(ctx, taskID, workerID, reqBody.AssignmentID, reqBody.Answer)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAssignmentNotFound):
			httperror.NotFound("Assignment not found.", err, nil).Render(w)
		case errors.Is(err, services.ErrAssignmentNotOwned):
			httperror.Forbidden("Assignment belongs to another worker.", err, nil).Render(w)
		case errors.Is(err, services.ErrAssignmentTaskMismatch):
			httperror.BadRequest("Assignment does not reference this task.", err, nil).Render(w)
		case errors.Is(err, services.ErrAssignmentNotActive):
			httperror.Conflict("Assignment is no longer active.", err, nil).Render(w)
		case errors.Is(err, services.ErrAssignmentExpired):
			httperror.Conflict("Assignment has expired.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot submit answer", err, nil).Render(w)
		}
		return
	}

	httpjson.Render(w, submitAnswerResponse{
		SubmissionID: submission.ID,
		Status:       string(submission.Status),
	})
}
