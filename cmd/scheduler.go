package cmd

import (
	"context"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/scheduler"
	"github.com/crowdtask/platform-backend/internal/services"
)

// SchedulerCommand runs the recurring jobs: scheduled-task publication,
// assignment expiry, dispute auto-resolution, and transcription sync.
type SchedulerCommand struct{}

func (c *SchedulerCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the recurring background jobs",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Root().PersistentPreRun(cmd, args)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			crashTrackerClient := setupCrashTracker(ctx)

			dbConnectionPool, err := db.OpenDBConnectionPool(globalOptions.DatabaseURL)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error connecting to the database: %v", err)
			}
			defer dbConnectionPool.Close()

			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating models: %v", err)
			}

			brokers := strings.Split(viper.GetString("broker-urls"), ",")
			producer, err := events.NewKafkaEventManager(brokers, "", "")
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating Kafka producer: %v", err)
			}
			defer producer.Close()

			transcriber := buildTranscriber(ctx)

			taskService, err := services.NewTaskService(models, transcriber)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating task service: %v", err)
			}
			assignmentService, err := services.NewAssignmentService(models, nil, viper.GetDuration("assignment-ttl"))
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating assignment service: %v", err)
			}
			disputeService, err := services.NewDisputeService(models, producer, nil, viper.GetDuration("dispute-window"))
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating dispute service: %v", err)
			}

			jobRegisters := []scheduler.SchedulerJobRegisterOption{
				scheduler.WithPublishScheduledTasksJobOption(taskService),
				scheduler.WithExpireAssignmentsJobOption(assignmentService),
				scheduler.WithAutoResolveDisputesJobOption(disputeService),
			}

			if transcriber != nil {
				transcriptionService, tErr := services.NewTranscriptionService(models, transcriber)
				if tErr != nil {
					logger.Ctx(ctx).Fatalf("error creating transcription service: %v", tErr)
				}
				jobRegisters = append(jobRegisters, scheduler.WithSyncTranscriptionsJobOption(transcriptionService))
			}

			// Blocks until SIGINT/SIGTERM/SIGQUIT.
			scheduler.StartScheduler(crashTrackerClient, jobRegisters...)
		},
	}

	cmd.Flags().String("broker-urls", "localhost:9092", `List of Kafka Broker URLs, separated by ","`)
	cmd.Flags().Duration("assignment-ttl", 10*time.Minute, "How long a worker holds an assigned task before it expires")
	cmd.Flags().Duration("dispute-window", 72*time.Hour, "How long a dispute may stay open before it is auto-approved")
	cmd.Flags().String("aws-region", "", "The AWS region")
	cmd.Flags().String("aws-access-key-id", "", "The AWS access key ID")
	cmd.Flags().String("aws-secret-access-key", "", "The AWS secret access key")
	cmd.Flags().String("media-bucket", "", "The S3 bucket holding task media. Leaving it empty disables the transcription sync job.")
	cmd.Flags().String("transcribe-language", "es-ES", "Language code passed to AWS Transcribe")

	return cmd
}

// buildTranscriber returns nil when no media bucket is configured.
func buildTranscriber(ctx context.Context) aiservices.Transcriber {
	mediaBucket := viper.GetString("media-bucket")
	if mediaBucket == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(viper.GetString("aws-region")),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("aws-access-key-id"), viper.GetString("aws-secret-access-key"), "")),
	)
	if err != nil {
		logger.Ctx(ctx).Fatalf("error loading AWS config: %v", err)
	}

	transcriber, err := aiservices.NewTranscribeClient(transcribe.NewFromConfig(awsCfg), mediaBucket, viper.GetString("transcribe-language"))
	if err != nil {
		logger.Ctx(ctx).Fatalf("error creating transcribe client: %v", err)
	}
	return transcriber
}
