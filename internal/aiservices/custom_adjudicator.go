package aiservices

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CustomAdjudicator judges answers for task types that ship their own model
// behind a SageMaker endpoint. The endpoint contract is JSON in, JSON out.
type CustomAdjudicator struct {
	invoker ModelInvoker
}

func NewCustomAdjudicator(invoker ModelInvoker) (*CustomAdjudicator, error) {
	if invoker == nil {
		return nil, fmt.Errorf("model invoker cannot be nil")
	}
	return &CustomAdjudicator{invoker: invoker}, nil
}

type customModelRequest struct {
	TaskType string `json:"task_type"`
	Answer   string `json:"answer"`
}

type customModelResponse struct {
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Adjudicate sends the answer to the custom model endpoint. An outcome the
// model does not recognize is treated as inconclusive rather than an error so
// model-contract drift degrades to consensus instead of failing QC.
func (a *CustomAdjudicator) Adjudicate(ctx context.Context, taskType, answer string) (AdjudicationResult, error) {
	payload, err := json.Marshal(customModelRequest{TaskType: taskType, Answer: answer})
	if err != nil {
		return AdjudicationResult{}, fmt.Errorf("marshalling custom model request: %w", err)
	}

	respBody, err := a.invoker.InvokeModel(ctx, payload)
	if err != nil {
		return AdjudicationResult{}, fmt.Errorf("invoking custom model: %w", err)
	}

	var resp customModelResponse
	if err = json.Unmarshal(respBody, &resp); err != nil {
		return AdjudicationResult{}, fmt.Errorf("unmarshalling custom model response: %w", err)
	}

	outcome := OutcomeInconclusive
	switch strings.ToUpper(resp.Outcome) {
	case string(OutcomeApprove):
		outcome = OutcomeApprove
	case string(OutcomeReject):
		outcome = OutcomeReject
	}

	return AdjudicationResult{
		Outcome:    outcome,
		Confidence: resp.Confidence,
		Reason:     resp.Reason,
	}, nil
}
