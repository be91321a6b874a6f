package httphandler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httpjson"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
)

// WorkerHandler exposes the worker profile and the public leaderboard.
type WorkerHandler struct {
	Models *data.Models
}

// GetProfile returns the caller's lifetime stats. Workers who have never
// submitted anything get an empty Novice profile rather than a 404.
func (h WorkerHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workerID := middleware.UserIDFromContext(ctx)

	worker, err := h.Models.Workers.Get(ctx, h.Models.DBConnectionPool, workerID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httpjson.Render(w, &data.Worker{
				ID:       workerID,
				Level:    data.NoviceWorkerLevel,
				Earnings: decimal.Zero,
			})
			return
		}
		httperror.InternalError(ctx, "Cannot get worker profile", err, nil).Render(w)
		return
	}

	httpjson.Render(w, worker)
}

// GetLeaderboard returns the top workers ranked by accuracy then volume.
func (h WorkerHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 10
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 || parsed > 100 {
			httperror.BadRequest("Invalid limit.", err, nil).Render(w)
			return
		}
		limit = parsed
	}

	workers, err := h.Models.Workers.GetLeaderboard(ctx, h.Models.DBConnectionPool, limit)
	if err != nil {
		httperror.InternalError(ctx, "Cannot get leaderboard", err, nil).Render(w)
		return
	}

	httpjson.Render(w, map[string]any{"leaderboard": workers})
}
