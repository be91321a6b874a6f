package httphandler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httpjson"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
	"github.com/crowdtask/platform-backend/internal/serve/validators"
	"github.com/crowdtask/platform-backend/internal/services"
)

type DisputeServiceInterface interface {
	OpenDispute(ctx context.Context, submissionID, workerID, reason string) (*data.Dispute, error)
	ResolveDispute(ctx context.Context, disputeID string, decision data.DisputeDecision, adminNotes string) error
}

var _ DisputeServiceInterface = (*services.DisputeService)(nil)

// DisputeHandler exposes the worker dispute endpoints and the admin
// resolution endpoint.
type DisputeHandler struct {
	DisputeService DisputeServiceInterface
	Models         *data.Models
}

type openDisputeRequest struct {
	SubmissionID string `json:"submissionId"`
	Reason       string `json:"reason"`
}

type openDisputeResponse struct {
	DisputeID string `json:"disputeId"`
	Status    string `json:"status"`
}

// OpenDispute lets a worker contest one of their rejected submissions.
func (h DisputeHandler) OpenDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := middleware.UserIDFromContext(ctx)

	var reqBody openDisputeRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	v := validators.NewValidator()
	v.Check(reqBody.SubmissionID != "", "submissionId", "submissionId is required")
	v.Check(reqBody.Reason != "", "reason", "reason cannot be empty")
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).Render(w)
		return
	}

	dispute, err := h.DisputeService.OpenDispute(ctx, reqBody.SubmissionID, workerID, reqBody.Reason)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound("Submission not found.", err, nil).Render(w)
		case errors.Is(err, services.ErrSubmissionNotOwned):
			httperror.Forbidden("Submission belongs to another worker.", err, nil).Render(w)
		case errors.Is(err, services.ErrSubmissionNotDisputable):
			httperror.BadRequest("Only rejected submissions can be disputed.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot open dispute", err, nil).Render(w)
		}
		return
	}

	httpjson.RenderStatus(w, http.StatusCreated, openDisputeResponse{
		DisputeID: dispute.ID,
		Status:    string(dispute.Status),
	})
}

// ListDisputes returns the calling worker's disputes, newest first.
func (h DisputeHandler) ListDisputes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := middleware.UserIDFromContext(ctx)

	disputes, err := h.Models.Disputes.GetByWorker(ctx, h.Models.DBConnectionPool, workerID)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list disputes", err, nil).Render(w)
		return
	}

	httpjson.Render(w, map[string]any{"disputes": disputes})
}

// ListOpenDisputes returns the disputes awaiting an admin decision.
func (h DisputeHandler) ListOpenDisputes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	disputes, err := h.Models.Disputes.GetByStatus(ctx, h.Models.DBConnectionPool, data.OpenDisputeStatus)
	if err != nil {
		httperror.InternalError(ctx, "Cannot list disputes", err, nil).Render(w)
		return
	}

	httpjson.Render(w, map[string]any{"disputes": disputes})
}

type resolveDisputeRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

// ResolveDispute applies an admin decision (APPROVE, PARTIAL, REJECT) to an
// open dispute.
func (h DisputeHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	disputeID := chi.URLParam(r, "disputeId")

	var reqBody resolveDisputeRequest
	if err := httpjson.DecodeJSON(r, &reqBody); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	v := validators.NewValidator()
	v.Check(reqBody.Decision != "", "decision", "decision is required")
	if v.HasErrors() {
		httperror.BadRequest("Request invalid", nil, v.Errors).Render(w)
		return
	}

	err := h.DisputeService.ResolveDispute(ctx, disputeID, data.DisputeDecision(reqBody.Decision), reqBody.Notes)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			httperror.NotFound("Dispute not found.", err, nil).Render(w)
		case errors.Is(err, services.ErrInvalidDisputeDecision):
			httperror.BadRequest("Decision must be one of APPROVE, PARTIAL, REJECT.", err, nil).Render(w)
		case errors.Is(err, services.ErrDisputeNotOpen):
			httperror.Conflict("Dispute has already been resolved.", err, nil).Render(w)
		default:
			httperror.InternalError(ctx, "Cannot resolve dispute", err, nil).Render(w)
		}
		return
	}

	httpjson.Render(w, map[string]string{"message": "dispute resolved"})
}
