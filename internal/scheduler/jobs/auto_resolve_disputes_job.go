package jobs

import (
	"context"
	"fmt"
	"time"
)

const (
	autoResolveDisputesJobName     = "auto_resolve_disputes_job"
	autoResolveDisputesJobInterval = 24 * time.Hour
	autoResolveDisputesBatchSize   = 100
)

type DisputeAutoResolver interface {
	AutoResolveOpenDisputes(ctx context.Context, limit int) (int, error)
}

// AutoResolveDisputesJob approves disputes the admins let sit past the
// dispute window.
type AutoResolveDisputesJob struct {
	service DisputeAutoResolver
}

func NewAutoResolveDisputesJob(service DisputeAutoResolver) *AutoResolveDisputesJob {
	return &AutoResolveDisputesJob{service: service}
}

func (j AutoResolveDisputesJob) GetInterval() time.Duration {
	return autoResolveDisputesJobInterval
}

func (j AutoResolveDisputesJob) GetName() string {
	return autoResolveDisputesJobName
}

func (j AutoResolveDisputesJob) Execute(ctx context.Context) error {
	if _, err := j.service.AutoResolveOpenDisputes(ctx, autoResolveDisputesBatchSize); err != nil {
		return fmt.Errorf("error executing AutoResolveDisputesJob: %w", err)
	}
	return nil
}

var _ Job = (*AutoResolveDisputesJob)(nil)
