package jobs

import (
	"context"
	"fmt"
	"time"
)

const (
	publishScheduledTasksJobName            = "publish_scheduled_tasks_job"
	publishScheduledTasksJobIntervalSeconds = 60
	publishScheduledTasksBatchSize          = 100
)

type ScheduledTaskPublisher interface {
	PublishDueScheduled(ctx context.Context, limit int) (int, error)
}

// PublishScheduledTasksJob periodically publishes Scheduled tasks whose
// publish time has passed.
type PublishScheduledTasksJob struct {
	service ScheduledTaskPublisher
}

func NewPublishScheduledTasksJob(service ScheduledTaskPublisher) *PublishScheduledTasksJob {
	return &PublishScheduledTasksJob{service: service}
}

func (j PublishScheduledTasksJob) GetInterval() time.Duration {
	return publishScheduledTasksJobIntervalSeconds * time.Second
}

func (j PublishScheduledTasksJob) GetName() string {
	return publishScheduledTasksJobName
}

func (j PublishScheduledTasksJob) Execute(ctx context.Context) error {
	if _, err := j.service.PublishDueScheduled(ctx, publishScheduledTasksBatchSize); err != nil {
		return fmt.Errorf("error executing PublishScheduledTasksJob: %w", err)
	}
	return nil
}

var _ Job = (*PublishScheduledTasksJob)(nil)
