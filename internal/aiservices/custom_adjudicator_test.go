package aiservices

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func Test_NewCustomAdjudicator(t *testing.T) {
	_, err := NewCustomAdjudicator(nil)
	assert.EqualError(t, err, "model invoker cannot be nil")

	adjudicator, err := NewCustomAdjudicator(&MockModelInvoker{})
	require.NoError(t, err)
	assert.NotNil(t, adjudicator)
}

func Test_CustomAdjudicator_Adjudicate(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name         string
		responseBody string
		wantOutcome  AdjudicationOutcome
		wantConf     float64
	}{
		{
			name:         "approve verdict is passed through",
			responseBody: `{"outcome": "APPROVE", "confidence": 0.95, "reason": "model match"}`,
			wantOutcome:  OutcomeApprove,
			wantConf:     0.95,
		},
		{
			name:         "reject verdict is passed through",
			responseBody: `{"outcome": "reject", "confidence": 0.1, "reason": "model mismatch"}`,
			wantOutcome:  OutcomeReject,
			wantConf:     0.1,
		},
		{
			name:         "unknown verdict degrades to inconclusive",
			responseBody: `{"outcome": "SHRUG", "confidence": 0.5}`,
			wantOutcome:  OutcomeInconclusive,
			wantConf:     0.5,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			invoker := &MockModelInvoker{}
			invoker.
				On("InvokeModel", ctx, []byte(`{"task_type":"sentiment","answer":"positive"}`)).
				Return([]byte(tc.responseBody), nil).
				Once()

			adjudicator, err := NewCustomAdjudicator(invoker)
			require.NoError(t, err)

			result, err := adjudicator.Adjudicate(ctx, "sentiment", "positive")
			require.NoError(t, err)
			assert.Equal(t, tc.wantOutcome, result.Outcome)
			assert.Equal(t, tc.wantConf, result.Confidence)
			invoker.AssertExpectations(t)
		})
	}

	t.Run("endpoint errors are surfaced", func(t *testing.T) {
		invoker := &MockModelInvoker{}
		invoker.
			On("InvokeModel", ctx, mock.Anything).
			Return(nil, errors.New("endpoint throttled")).
			Once()

		adjudicator, err := NewCustomAdjudicator(invoker)
		require.NoError(t, err)

		_, err = adjudicator.Adjudicate(ctx, "sentiment", "positive")
		assert.ErrorContains(t, err, "endpoint throttled")
	})
}
