package httphandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
	"github.com/crowdtask/platform-backend/internal/services"
)

func requestWithUser(t *testing.T, method, target, body, userID string) *http.Request {
	t.Helper()
	require.NotEmpty(t, userID)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDContextKey, userID)
	return req.WithContext(ctx)
}

func Test_WorkerTaskHandler_ListAvailableTasks(t *testing.T) {
	taskService := &MockTaskService{}
	handler := WorkerTaskHandler{TaskService: taskService}

	feed := []services.AvailableTask{
		{Task: &data.Task{ID: "task-1", Type: "image_label"}, Locked: false},
		{Task: &data.Task{ID: "task-2", Type: "transcription"}, Locked: true},
	}
	taskService.
		On("ListAvailable", mock.Anything, "worker-1", 0).
		Return(feed, data.NoviceWorkerLevel, nil).
		Once()

	req := requestWithUser(t, http.MethodGet, "/worker/tasks", "", "worker-1")
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.ListAvailableTasks).ServeHTTP(rr, req)

	resp := rr.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, rr.Body.String(), `"workerLevel":"Novice"`)
	assert.Contains(t, rr.Body.String(), `"locked":true`)
	taskService.AssertExpectations(t)
}

func Test_WorkerTaskHandler_ListAvailableTasks_invalidLimit(t *testing.T) {
	handler := WorkerTaskHandler{TaskService: &MockTaskService{}}

	req := requestWithUser(t, http.MethodGet, "/worker/tasks?limit=abc", "", "worker-1")
	rr := httptest.NewRecorder()
	http.HandlerFunc(handler.ListAvailableTasks).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func Test_WorkerTaskHandler_AssignTask(t *testing.T) {
	expiresAt := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)

	testCases := []struct {
		name           string
		serviceErr     error
		wantStatusCode int
	}{
		{name: "🎉 successfully assigns the task", serviceErr: nil, wantStatusCode: http.StatusOK},
		{name: "returns 404 when the task does not exist", serviceErr: data.ErrRecordNotFound, wantStatusCode: http.StatusNotFound},
		{name: "returns 409 when the task is taken", serviceErr: services.ErrTaskNotAvailable, wantStatusCode: http.StatusConflict},
		{name: "returns 403 when the level locks the task", serviceErr: services.ErrTaskLevelLocked, wantStatusCode: http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assignmentService := &MockAssignmentService{}
			handler := WorkerTaskHandler{AssignmentService: assignmentService}

			if tc.serviceErr != nil {
				assignmentService.
					On("AssignTask", mock.Anything, "task-1", "worker-1").
					Return(nil, tc.serviceErr).
					Once()
			} else {
				assignmentService.
					On("AssignTask", mock.Anything, "task-1", "worker-1").
					Return(&data.Assignment{ID: "assignment-1", TaskID: "task-1", WorkerID: "worker-1", ExpiresAt: expiresAt}, nil).
					Once()
			}

			r := chi.NewRouter()
			r.Post("/worker/tasks/{taskId}/assign", handler.AssignTask)

			req := requestWithUser(t, http.MethodPost, "/worker/tasks/task-1/assign", "", "worker-1")
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatusCode, rr.Code)
			if tc.wantStatusCode == http.StatusOK {
				assert.Contains(t, rr.Body.String(), `"assignmentId":"assignment-1"`)
			}
			assignmentService.AssertExpectations(t)
		})
	}
}

func Test_WorkerTaskHandler_SubmitAnswer(t *testing.T) {
	r := func(handler WorkerTaskHandler) *chi.Mux {
		mux := chi.NewRouter()
		mux.Post("/worker/tasks/{taskId}/submit", handler.SubmitAnswer)
		return mux
	}

	t.Run("🎉 successfully submits the answer", func(t *testing.T) {
		submissionService := &MockSubmissionService{}
		handler := WorkerTaskHandler{SubmissionService: submissionService}

		submissionService.
			On("SubmitAnswer", mock.Anything, "task-1", "worker-1", "assignment-1", "cat").
			Return(&data.Submission{ID: "submission-1", Status: data.PendingSubmissionStatus}, nil).
			Once()

		req := requestWithUser(t, http.MethodPost, "/worker/tasks/task-1/submit", `{"assignmentId": "assignment-1", "answer": "cat"}`, "worker-1")
		rr := httptest.NewRecorder()
		r(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"submissionId": "submission-1", "status": "Pending"}`, rr.Body.String())
		submissionService.AssertExpectations(t)
	})

	t.Run("returns 400 when the body is missing fields", func(t *testing.T) {
		submissionService := &MockSubmissionService{}
		handler := WorkerTaskHandler{SubmissionService: submissionService}

		req := requestWithUser(t, http.MethodPost, "/worker/tasks/task-1/submit", `{"answer": ""}`, "worker-1")
		rr := httptest.NewRecorder()
		r(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "assignmentId is required")
		submissionService.AssertNotCalled(t, "SubmitAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps service errors to status codes", func(t *testing.T) {
		testCases := []struct {
			serviceErr     error
			wantStatusCode int
		}{
			{services.ErrAssignmentNotFound, http.StatusNotFound},
			{services.ErrAssignmentNotOwned, http.StatusForbidden},
			{services.ErrAssignmentTaskMismatch, http.StatusBadRequest},
			{services.ErrAssignmentNotActive, http.StatusConflict},
			{services.ErrAssignmentExpired, http.StatusConflict},
		}

		for _, tc := range testCases {
			submissionService := &MockSubmissionService{}
			handler := WorkerTaskHandler{SubmissionService: submissionService}

			submissionService.
				On("SubmitAnswer", mock.Anything, "task-1", "worker-1", "assignment-1", "cat").
				Return(nil, tc.serviceErr).
				Once()

			req := requestWithUser(t, http.MethodPost, "/worker/tasks/task-1/submit", `{"assignmentId": "assignment-1", "answer": "cat"}`, "worker-1")
			rr := httptest.NewRecorder()
			r(handler).ServeHTTP(rr, req)

			assert.Equalf(t, tc.wantStatusCode, rr.Code, "unexpected status for %v", tc.serviceErr)
			submissionService.AssertExpectations(t)
		}
	})
}
