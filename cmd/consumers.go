package cmd

import (
	"context"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/events/eventhandlers"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/message"
	"github.com/crowdtask/platform-backend/internal/services"
)

// ConsumersCommand runs the Kafka consumers that drive the asynchronous side
// of the platform: QC on new submissions, then settlement and worker stats on
// status changes.
type ConsumersCommand struct{}

func (c *ConsumersCommand) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consumers",
		Short: "Run the submission QC and settlement event consumers",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Root().PersistentPreRun(cmd, args)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			crashTrackerClient := setupCrashTracker(ctx)
			defer crashTrackerClient.FlushEvents(2 * time.Second)
			defer crashTrackerClient.Recover()

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
			consumerGroupID := viper.GetString("consumer-group-id")

			producer, err := events.NewKafkaEventManager(brokers, "", "")
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating Kafka producer: %v", err)
			}
			defer producer.Close()

			// QC consumer
			qcService := buildQCService(ctx, models, producer)
			qcConsumer, err := events.NewKafkaEventManager(brokers, events.SubmissionReceivedTopic, consumerGroupID)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating QC Kafka consumer: %v", err)
			}
			defer qcConsumer.Close()
			if err = qcConsumer.RegisterEventHandler(ctx, eventhandlers.NewQCSubmissionEventHandler(qcService)); err != nil {
				logger.Ctx(ctx).Fatalf("error registering QC event handler: %v", err)
			}

			// Settlement and worker stats consumer
			messengerClient := buildMessengerClient(ctx)
			paymentService, err := services.NewPaymentService(models, messengerClient, nil)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating payment service: %v", err)
			}
			workerStatsService, err := services.NewWorkerStatsService(models)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating worker stats service: %v", err)
			}

			statusConsumer, err := events.NewKafkaEventManager(brokers, events.SubmissionStatusTopic, consumerGroupID)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating status Kafka consumer: %v", err)
			}
			defer statusConsumer.Close()
			err = statusConsumer.RegisterEventHandler(ctx,
				eventhandlers.NewPaymentEventHandler(paymentService),
				eventhandlers.NewWorkerStatsEventHandler(workerStatsService),
			)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error registering status event handlers: %v", err)
			}

			go events.NewEventConsumer(qcConsumer, producer, crashTrackerClient.Clone()).Consume(ctx)

			// Consume blocks until SIGINT/SIGTERM/SIGQUIT.
			events.NewEventConsumer(statusConsumer, producer, crashTrackerClient.Clone()).Consume(ctx)
		},
	}

	cmd.Flags().String("broker-urls", "localhost:9092", `List of Kafka Broker URLs, separated by ","`)
	cmd.Flags().String("consumer-group-id", "crowdtask-consumers", "Kafka consumer group ID")
	cmd.Flags().Int("consensus-quorum", services.DefaultConsensusQuorum, "Number of submissions per task required before majority consensus runs")
	cmd.Flags().String("aws-region", "", "The AWS region")
	cmd.Flags().String("aws-access-key-id", "", "The AWS access key ID")
	cmd.Flags().String("aws-secret-access-key", "", "The AWS secret access key")
	cmd.Flags().String("media-bucket", "", "The S3 bucket holding task media. Leaving it empty disables AI image adjudication.")
	cmd.Flags().Float64("rekognition-min-confidence", 90, "Minimum label confidence (0-100] requested from Rekognition")
	cmd.Flags().String("sagemaker-endpoint", "", "SageMaker endpoint for custom-model adjudication. Leaving it empty disables it.")
	cmd.Flags().String("email-sender-type", string(message.MessengerTypeDryRun), `Email sender type. Options: "SENDGRID_EMAIL", "AWS_EMAIL", "DRY_RUN"`)
	cmd.Flags().String("aws-ses-sender-id", "", "Email address used to send payment notifications through AWS SES")
	cmd.Flags().String("sendgrid-api-key", "", "The API key of the SendGrid account")
	cmd.Flags().String("sendgrid-sender-address", "", "Email address used to send payment notifications through SendGrid")

	return cmd
}

// buildQCService assembles the QC pipeline with whichever AI adjudicators the
// configuration enables.
func buildQCService(ctx context.Context, models *data.Models, producer events.Producer) *services.QCService {
	fraudDetector, err := services.NewFraudDetectorService(models)
	if err != nil {
		logger.Ctx(ctx).Fatalf("error creating fraud detector: %v", err)
	}

	qcOpts := services.QCServiceOptions{
		Models:           models,
		FraudDetector:    fraudDetector,
		AudioAdjudicator: aiservices.NewAudioAdjudicator(),
		EventProducer:    producer,
		ConsensusQuorum:  viper.GetInt("consensus-quorum"),
	}

	mediaBucket := viper.GetString("media-bucket")
	sagemakerEndpoint := viper.GetString("sagemaker-endpoint")
	if mediaBucket != "" || sagemakerEndpoint != "" {
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(
			ctx,
			awsconfig.WithRegion(viper.GetString("aws-region")),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				viper.GetString("aws-access-key-id"), viper.GetString("aws-secret-access-key"), "")),
		)
		if awsErr != nil {
			logger.Ctx(ctx).Fatalf("error loading AWS config: %v", awsErr)
		}

		if mediaBucket != "" {
			labelDetector, detectorErr := aiservices.NewRekognitionLabelDetector(
				rekognition.NewFromConfig(awsCfg), mediaBucket, viper.GetFloat64("rekognition-min-confidence"))
			if detectorErr != nil {
				logger.Ctx(ctx).Fatalf("error creating Rekognition label detector: %v", detectorErr)
			}
			qcOpts.ImageAdjudicator, err = aiservices.NewImageAdjudicator(labelDetector)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating image adjudicator: %v", err)
			}
		}

		if sagemakerEndpoint != "" {
			invoker, invokerErr := aiservices.NewSageMakerInvoker(sagemakerruntime.NewFromConfig(awsCfg), sagemakerEndpoint)
			if invokerErr != nil {
				logger.Ctx(ctx).Fatalf("error creating SageMaker invoker: %v", invokerErr)
			}
			qcOpts.CustomAdjudicator, err = aiservices.NewCustomAdjudicator(invoker)
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating custom adjudicator: %v", err)
			}
		}
	}

	qcService, err := services.NewQCService(qcOpts)
	if err != nil {
		logger.Ctx(ctx).Fatalf("error creating QC service: %v", err)
	}
	return qcService
}

// buildMessengerClient picks the email backend for payment notifications.
func buildMessengerClient(ctx context.Context) message.MessengerClient {
	messengerType, err := message.ParseMessengerType(viper.GetString("email-sender-type"))
	if err != nil {
		logger.Ctx(ctx).Fatalf("error parsing email sender type: %v", err)
	}

	messengerClient, err := message.GetClient(message.MessengerOptions{
		MessengerType:         messengerType,
		Environment:           globalOptions.Environment,
		SendGridAPIKey:        viper.GetString("sendgrid-api-key"),
		SendGridSenderAddress: viper.GetString("sendgrid-sender-address"),
		AWSAccessKeyID:        viper.GetString("aws-access-key-id"),
		AWSSecretAccessKey:    viper.GetString("aws-secret-access-key"),
		AWSRegion:             viper.GetString("aws-region"),
		AWSSESSenderID:        viper.GetString("aws-ses-sender-id"),
	})
	if err != nil {
		logger.Ctx(ctx).Fatalf("error creating messenger client: %v", err)
	}
	return messengerClient
}
