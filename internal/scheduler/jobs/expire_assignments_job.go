package jobs

import (
	"context"
	"fmt"
	"time"
)

const (
	expireAssignmentsJobName            = "expire_assignments_job"
	expireAssignmentsJobIntervalSeconds = 60
	expireAssignmentsBatchSize          = 100
)

type AssignmentExpirer interface {
	ExpireStaleAssignments(ctx context.Context, limit int) (int, error)
}

// ExpireAssignmentsJob reclaims assignments whose TTL lapsed without a
// submission, returning their tasks to the worker pool.
type ExpireAssignmentsJob struct {
	service AssignmentExpirer
}

func NewExpireAssignmentsJob(service AssignmentExpirer) *ExpireAssignmentsJob {
	return &ExpireAssignmentsJob{service: service}
}

func (j ExpireAssignmentsJob) GetInterval() time.Duration {
	return expireAssignmentsJobIntervalSeconds * time.Second
}

func (j ExpireAssignmentsJob) GetName() string {
	return expireAssignmentsJobName
}

func (j ExpireAssignmentsJob) Execute(ctx context.Context) error {
	if _, err := j.service.ExpireStaleAssignments(ctx, expireAssignmentsBatchSize); err != nil {
		return fmt.Errorf("error executing ExpireAssignmentsJob: %w", err)
	}
	return nil
}

var _ Job = (*ExpireAssignmentsJob)(nil)
