package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crowdtask/platform-backend/internal/crashtracker"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
	"github.com/crowdtask/platform-backend/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		logger.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		logger.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Crowdtask Platform API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Root().PersistentPreRun(cmd, args)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			// Setup crash tracker
			crashTrackerClient := setupCrashTracker(ctx)
			defer crashTrackerClient.FlushEvents(2 * time.Second)
			defer crashTrackerClient.Recover()

			// Setup metrics
			metricOptions := monitor.MetricOptions{
				MetricType:  monitor.MetricTypePrometheus,
				Environment: globalOptions.Environment,
			}
			if err := monitorService.Start(metricOptions); err != nil {
				logger.Ctx(ctx).Fatalf("Error starting monitor service: %s", err.Error())
			}

			serveOpts := serve.ServeOptions{
				Environment:        globalOptions.Environment,
				GitCommit:          globalOptions.GitCommit,
				Version:            globalOptions.Version,
				Port:               viper.GetInt("port"),
				MonitorService:     monitorService,
				CrashTrackerClient: crashTrackerClient,
				DatabaseDSN:        globalOptions.DatabaseURL,
				CorsAllowedOrigins: strings.Split(viper.GetString("cors-allowed-origins"), ","),
				RateLimitPerMinute: viper.GetInt("rate-limit-per-minute"),
				JWTSecret:          viper.GetString("jwt-secret"),
				TokenLifetime:      viper.GetDuration("token-lifetime"),
				AWSRegion:          viper.GetString("aws-region"),
				AWSAccessKeyID:     viper.GetString("aws-access-key-id"),
				AWSSecretAccessKey: viper.GetString("aws-secret-access-key"),
				MediaBucket:        viper.GetString("media-bucket"),
				PresignExpiry:      viper.GetDuration("presign-expiry"),
				TranscribeLanguage: viper.GetString("transcribe-language"),
				AssignmentTTL:      viper.GetDuration("assignment-ttl"),
				DisputeWindow:      viper.GetDuration("dispute-window"),
			}

			// Kafka producer for the submission pipeline
			brokers := strings.Split(viper.GetString("broker-urls"), ",")
			kafkaProducer, err := events.NewKafkaEventManager(brokers, "", "")
			if err != nil {
				logger.Ctx(ctx).Fatalf("error creating Kafka Producer: %v", err)
			}
			defer kafkaProducer.Close()
			serveOpts.EventProducer = kafkaProducer

			// Starting Metrics Server (background job)
			metricsServeOpts := serve.MetricsServeOptions{
				Port:           viper.GetInt("metrics-port"),
				Environment:    globalOptions.Environment,
				MonitorService: monitorService,
				MetricType:     monitor.MetricTypePrometheus,
			}
			logger.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			// Starting Application Server
			logger.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}

	cmd.Flags().Int("port", 8000, "Port where the server will be listening on")
	cmd.Flags().Int("metrics-port", 8002, "Port where the metrics server will be listening on")
	cmd.Flags().String("jwt-secret", "", "Secret used to sign and verify API auth tokens. Must be at least 32 bytes.")
	cmd.Flags().Duration("token-lifetime", 24*time.Hour, "Lifetime of issued auth tokens")
	cmd.Flags().String("cors-allowed-origins", "*", `Cors URLs that are allowed to access the endpoints, separated by ","`)
	cmd.Flags().Int("rate-limit-per-minute", 120, "Requests allowed per client IP per minute. 0 disables rate limiting.")
	cmd.Flags().String("broker-urls", "localhost:9092", `List of Kafka Broker URLs, separated by ","`)
	cmd.Flags().String("aws-region", "", "The AWS region")
	cmd.Flags().String("aws-access-key-id", "", "The AWS access key ID")
	cmd.Flags().String("aws-secret-access-key", "", "The AWS secret access key")
	cmd.Flags().String("media-bucket", "", "The S3 bucket holding task media. Leaving it empty disables media uploads and transcription.")
	cmd.Flags().Duration("presign-expiry", 15*time.Minute, "Lifetime of presigned media upload URLs")
	cmd.Flags().String("transcribe-language", "es-ES", "Language code passed to AWS Transcribe")
	cmd.Flags().Duration("assignment-ttl", 10*time.Minute, "How long a worker holds an assigned task before it expires")
	cmd.Flags().Duration("dispute-window", 72*time.Hour, "How long a dispute may stay open before it is auto-approved")

	return cmd
}

// setupCrashTracker picks Sentry when a DSN is configured, dry-run otherwise.
func setupCrashTracker(ctx context.Context) crashtracker.CrashTrackerClient {
	crashTrackerType := crashtracker.CrashTrackerTypeDryRun
	if globalOptions.SentryDSN != "" {
		crashTrackerType = crashtracker.CrashTrackerTypeSentry
	}

	crashTrackerClient, err := crashtracker.GetClient(ctx, crashtracker.CrashTrackerOptions{
		CrashTrackerType: crashTrackerType,
		Environment:      globalOptions.Environment,
		GitCommit:        globalOptions.GitCommit,
		SentryDSN:        globalOptions.SentryDSN,
	})
	if err != nil {
		logger.Ctx(ctx).Fatalf("Error creating crash tracker client: %s", err.Error())
	}
	return crashTrackerClient
}
