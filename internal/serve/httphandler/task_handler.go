package httphandler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httpjson"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
	"github.com/crowdtask/platform-backend/internal/serve/validators"
	"github.com/crowdtask/platform-backend/internal/services"
)

// TaskServiceInterface is the requester-side task surface used by the handler.
type TaskServiceInterface interface {
	CreateBatch(ctx context.Context, requesterID string, inputs []services.TaskInput) (string, int, error)
	CreateBatchFromCSV(ctx context.Context, requesterID string, csvFile io.Reader) (string, int, error)
	PublishBatch(ctx context.Context, requesterID, batchID string) (int, error)
	ListByRequester(ctx context.Context, requesterID string, status *data.TaskStatus) ([]*data.Task, error)
}

var _ TaskServiceInterface = (*services.TaskService)(nil)

// TaskHandler exposes the requester endpoints: batch upload, publication, and
// task listing.
type TaskHandler struct {
	TaskService TaskServiceInterface
}

type createBatchRequest struct {
	Tasks []services.TaskInput `json:"tasks"`
}

type createBatchResponse struct {
	BatchID string `json:"batchId"`
	Count   int    `json:"count"`
}

// CreateBatch accepts a JSON task batch, or a CSV file when the request body
// is text/csv.
func (h TaskHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requesterID := middleware.UserIDFromContext(ctx)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
		h.createBatchFromCSV(w, r, requesterID)
		return
	}

	var reqBody createBatchRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	v := validators.NewValidator()
	v.Check(len(reqBody.Tasks) > 0, "tasks", "tasks cannot be empty")
	for _, task := range reqBody.Tasks {
		v.Check(task.Type != "", "type", "task type is required")
	}
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).Render(w)
		return
	}

	batchID, count, err := h.TaskService.CreateBatch(ctx, requesterID, reqBody.Tasks)
	if err != nil {
		if errors.Is(err, services.ErrEmptyBatch) {
			httperror.BadRequest("The batch contains no tasks.", err, nil).Render(w)
			return
		}
		httperror.InternalError(ctx, "Cannot create task batch", err, nil).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, createBatchResponse{BatchID: batchID, Count: count})
}

// CreateBatchCSV accepts a CSV task batch regardless of the Content-Type
// header.
func (h TaskHandler) CreateBatchCSV(w http.ResponseWriter, r *http.Request) {
	h.createBatchFromCSV(w, r, middleware.UserIDFromContext(r.Context()))
}

func (h TaskHandler) createBatchFromCSV(w http.ResponseWriter, r *http.Request, requesterID string) {
	ctx := r.Context()

	batchID, count, err := h.TaskService.CreateBatchFromCSV(ctx, requesterID, r.Body)
	if err != nil {
		if errors.Is(err, services.ErrEmptyBatch) {
			httperror.BadRequest("The batch contains no tasks.", err, nil).Render(w)
			return
		}
		httperror.BadRequest("Cannot parse the CSV batch.", err, map[string]any{"details": err.Error()}).Render(w)
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, createBatchResponse{BatchID: batchID, Count: count})
}

type publishBatchResponse struct {
	Count int `json:"count"`
}

// PublishBatch makes every Created task of the requester's batch available.
func (h TaskHandler) PublishBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requesterID := middleware.UserIDFromContext(ctx)
	batchID := chi.URLParam(r, "batchId")

	count, err := h.TaskService.PublishBatch(ctx, requesterID, batchID)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			httperror.NotFound("Batch not found or has no publishable tasks.", err, nil).Render(w)
			return
		}
		httperror.InternalError(ctx, "Cannot publish batch", err, nil).Render(w)
		return
	}

	httpjson.Render(w, publishBatchResponse{Count: count})
}

// ListTasks returns the requester's tasks, optionally filtered by ?status=.
func (h TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requesterID := middleware.UserIDFromContext(ctx)

	var status *data.TaskStatus
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		taskStatus := data.TaskStatus(statusParam)
		if err := taskStatus.Validate(); err != nil {
			httperror.BadRequest("Invalid task status.", err, nil).Render(w)
			return
		}
		status = &taskStatus
	}

	tasks, err := h.TaskService.ListByRequester(ctx, requesterID, status)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list tasks", err, nil).Render(w)
		return
	}

	httpjson.Render(w, map[string]any{"tasks": tasks})
}
