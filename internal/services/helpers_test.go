package services

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
)

func newTestModels(t *testing.T, conn *sqlx.DB) *data.Models {
	t.Helper()

	models, err := data.NewModels(&db.DBConnectionPoolImplementation{DB: conn})
	require.NoError(t, err)
	return models
}
