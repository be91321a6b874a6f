package httphandler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/services"
)

func Test_DisputeHandler_OpenDispute(t *testing.T) {
	t.Run("🎉 successfully opens a dispute", func(t *testing.T) {
		disputeService := &MockDisputeService{}
		handler := DisputeHandler{DisputeService: disputeService}

		disputeService.
			On("OpenDispute", mock.Anything, "submission-1", "worker-1", "the answer was correct").
			Return(&data.Dispute{ID: "dispute-1", Status: data.OpenDisputeStatus}, nil).
			Once()

		body := `{"submissionId": "submission-1", "reason": "the answer was correct"}`
		req := requestWithUser(t, http.MethodPost, "/worker/disputes", body, "worker-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.OpenDispute).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"disputeId": "dispute-1", "status": "Open"}`, rr.Body.String())
		disputeService.AssertExpectations(t)
	})

	t.Run("returns 400 when the reason is missing", func(t *testing.T) {
		disputeService := &MockDisputeService{}
		handler := DisputeHandler{DisputeService: disputeService}

		req := requestWithUser(t, http.MethodPost, "/worker/disputes", `{"submissionId": "submission-1"}`, "worker-1")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.OpenDispute).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "reason cannot be empty")
		disputeService.AssertNotCalled(t, "OpenDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("maps service errors to status codes", func(t *testing.T) {
		testCases := []struct {
			serviceErr     error
			wantStatusCode int
		}{
			{data.ErrRecordNotFound, http.StatusNotFound},
			{services.ErrSubmissionNotOwned, http.StatusForbidden},
			{services.ErrSubmissionNotDisputable, http.StatusBadRequest},
		}

		for _, tc := range testCases {
			disputeService := &MockDisputeService{}
			handler := DisputeHandler{DisputeService: disputeService}

			disputeService.
				On("OpenDispute", mock.Anything, "submission-1", "worker-1", "why").
				Return(nil, tc.serviceErr).
				Once()

			body := `{"submissionId": "submission-1", "reason": "why"}`
			req := requestWithUser(t, http.MethodPost, "/worker/disputes", body, "worker-1")
			rr := httptest.NewRecorder()
			http.HandlerFunc(handler.OpenDispute).ServeHTTP(rr, req)

			assert.Equalf(t, tc.wantStatusCode, rr.Code, "unexpected status for %v", tc.serviceErr)
			disputeService.AssertExpectations(t)
		}
	})
}

func Test_DisputeHandler_ResolveDispute(t *testing.T) {
	r := func(handler DisputeHandler) *chi.Mux {
		mux := chi.NewRouter()
		mux.Post("/admin/disputes/{disputeId}/resolve", handler.ResolveDispute)
		return mux
	}

	t.Run("🎉 successfully resolves a dispute", func(t *testing.T) {
		disputeService := &MockDisputeService{}
		handler := DisputeHandler{DisputeService: disputeService}

		disputeService.
			On("ResolveDispute", mock.Anything, "dispute-1", data.PartialDisputeDecision, "split the difference").
			Return(nil).
			Once()

		body := `{"decision": "PARTIAL", "notes": "split the difference"}`
		req := requestWithUser(t, http.MethodPost, "/admin/disputes/dispute-1/resolve", body, "admin-1")
		rr := httptest.NewRecorder()
		r(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		disputeService.AssertExpectations(t)
	})

	t.Run("returns 400 for an unknown decision", func(t *testing.T) {
		disputeService := &MockDisputeService{}
		handler := DisputeHandler{DisputeService: disputeService}

		disputeService.
			On("ResolveDispute", mock.Anything, "dispute-1", data.DisputeDecision("MAYBE"), "").
			Return(services.ErrInvalidDisputeDecision).
			Once()

		req := requestWithUser(t, http.MethodPost, "/admin/disputes/dispute-1/resolve", `{"decision": "MAYBE"}`, "admin-1")
		rr := httptest.NewRecorder()
		r(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		disputeService.AssertExpectations(t)
	})

	t.Run("returns 409 for an already resolved dispute", func(t *testing.T) {
		disputeService := &MockDisputeService{}
		handler := DisputeHandler{DisputeService: disputeService}

		disputeService.
			On("ResolveDispute", mock.Anything, "dispute-1", data.ApproveDisputeDecision, "").
			Return(services.ErrDisputeNotOpen).
			Once()

		req := requestWithUser(t, http.MethodPost, "/admin/disputes/dispute-1/resolve", `{"decision": "APPROVE"}`, "admin-1")
		rr := httptest.NewRecorder()
		r(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
		disputeService.AssertExpectations(t)
	})
}
