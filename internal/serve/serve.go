package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/crowdtask/platform-backend/internal/aiservices"
	"github.com/crowdtask/platform-backend/internal/crashtracker"
	"github.com/crowdtask/platform-backend/internal/data"
	"github.com/crowdtask/platform-backend/internal/db"
	"github.com/crowdtask/platform-backend/internal/events"
	"github.com/crowdtask/platform-backend/internal/logger"
	"github.com/crowdtask/platform-backend/internal/monitor"
	"github.com/crowdtask/platform-backend/internal/serve/auth"
	"github.com/crowdtask/platform-backend/internal/serve/httperror"
	"github.com/crowdtask/platform-backend/internal/serve/httphandler"
	"github.com/crowdtask/platform-backend/internal/serve/middleware"
	"github.com/crowdtask/platform-backend/internal/services"
)

const ServiceID = "serve"

// HTTPServerConfig carries the listener settings for the API server.
type HTTPServerConfig struct {
	ListenAddr          string
	Handler             http.Handler
	ShutdownGracePeriod time.Duration
	OnStarting          func()
	OnStopping          func()
}

type HTTPServerInterface interface {
	Run(conf HTTPServerConfig)
}

// HTTPServer runs a net/http server until SIGINT/SIGTERM/SIGQUIT, then drains
// in-flight requests within the grace period.
type HTTPServer struct{}

func (h *HTTPServer) Run(conf HTTPServerConfig) {
	if conf.OnStarting != nil {
		conf.OnStarting()
	}

	srv := &http.Server{
		Addr:         conf.ListenAddr,
		Handler:      conf.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case sig := <-signalChan:
		logger.Infof("Received signal %s, shutting down...", sig)
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("error running HTTP server: %v", err)
		}
		return
	}

	gracePeriod := conf.ShutdownGracePeriod
	if gracePeriod <= 0 {
		gracePeriod = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("error shutting down HTTP server: %v", err)
	}

	if conf.OnStopping != nil {
		conf.OnStopping()
	}
}

type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	MonitorService     monitor.MonitorServiceInterface
	CrashTrackerClient crashtracker.CrashTrackerClient
	DatabaseDSN        string
	CorsAllowedOrigins []string
	RateLimitPerMinute int

	JWTSecret     string
	TokenLifetime time.Duration

	EventProducer events.Producer

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	MediaBucket        string
	PresignExpiry      time.Duration
	TranscribeLanguage string

	AssignmentTTL time.Duration
	DisputeWindow time.Duration

	Models           *data.Models
	dbConnectionPool db.DBConnectionPool
	jwtManager       *auth.JWTManager
	mediaPresigner   *aiservices.S3MediaPresigner
	transcriber      aiservices.Transcriber

	taskService       *services.TaskService
	assignmentService *services.AssignmentService
	submissionService *services.SubmissionService
	disputeService    *services.DisputeService
	walletService     *services.WalletService
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	// Set crash tracker LogAndReportErrors as DefaultReportErrorFunc
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	// Setup Database:
	dbConnectionPool, err := db.OpenDBConnectionPoolWithMetrics(opts.DatabaseDSN, opts.MonitorService)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	opts.Models, err = data.NewModels(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating models for Serve: %w", err)
	}
	opts.dbConnectionPool = dbConnectionPool

	// Setup JWT manager:
	opts.jwtManager, err = auth.NewJWTManager(opts.JWTSecret, opts.TokenLifetime)
	if err != nil {
		return fmt.Errorf("error creating JWT manager: %w", err)
	}

	// Setup AWS media services when a bucket is configured:
	if opts.MediaBucket != "" {
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(
			context.Background(),
			awsconfig.WithRegion(opts.AWSRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AWSAccessKeyID, opts.AWSSecretAccessKey, "")),
		)
		if awsErr != nil {
			return fmt.Errorf("loading AWS config: %w", awsErr)
		}

		opts.mediaPresigner, err = aiservices.NewS3MediaPresigner(s3.NewFromConfig(awsCfg), opts.MediaBucket, opts.PresignExpiry)
		if err != nil {
			return fmt.Errorf("error creating S3 media presigner: %w", err)
		}

		opts.transcriber, err = aiservices.NewTranscribeClient(transcribe.NewFromConfig(awsCfg), opts.MediaBucket, opts.TranscribeLanguage)
		if err != nil {
			return fmt.Errorf("error creating transcribe client: %w", err)
		}
	}

	// Setup services:
	opts.taskService, err = services.NewTaskService(opts.Models, opts.transcriber)
	if err != nil {
		return fmt.Errorf("error creating task service: %w", err)
	}
	opts.assignmentService, err = services.NewAssignmentService(opts.Models, opts.MonitorService, opts.AssignmentTTL)
	if err != nil {
		return fmt.Errorf("error creating assignment service: %w", err)
	}
	opts.submissionService, err = services.NewSubmissionService(opts.Models, opts.EventProducer)
	if err != nil {
		return fmt.Errorf("error creating submission service: %w", err)
	}
	opts.disputeService, err = services.NewDisputeService(opts.Models, opts.EventProducer, opts.MonitorService, opts.DisputeWindow)
	if err != nil {
		return fmt.Errorf("error creating dispute service: %w", err)
	}
	opts.walletService, err = services.NewWalletService(opts.Models)
	if err != nil {
		return fmt.Errorf("error creating wallet service: %w", err)
	}

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	// Start the server
	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := HTTPServerConfig{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		ShutdownGracePeriod: 50 * time.Second,
		OnStarting: func() {
			logger.Info("Starting Crowdtask Platform Server")
			logger.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			logger.Info("Closing the database connection...")
			err := opts.dbConnectionPool.Close()
			if err != nil {
				logger.Errorf("error closing database connection: %s", err.Error())
			}

			logger.Info("Stopping Crowdtask Platform Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	if o.RateLimitPerMinute > 0 {
		mux.Use(middleware.RateLimitMiddleware(o.RateLimitPerMinute, time.Minute))
	}

	// Authenticated Routes
	mux.Group(func(r chi.Router) {
		r.Use(middleware.AuthenticateMiddleware(o.jwtManager))

		r.With(middleware.RequireRoleMiddleware(auth.RoleWorker)).Route("/worker", func(r chi.Router) {
			workerTaskHandler := httphandler.WorkerTaskHandler{
				TaskService:       o.taskService,
				AssignmentService: o.assignmentService,
				SubmissionService: o.submissionService,
			}
			r.Get("/tasks", workerTaskHandler.ListAvailableTasks)
			r.Post("/tasks/{taskId}/assign", workerTaskHandler.AssignTask)
			r.Post("/tasks/{taskId}/submit", workerTaskHandler.SubmitAnswer)

			disputeHandler := httphandler.DisputeHandler{DisputeService: o.disputeService, Models: o.Models}
			r.Post("/disputes", disputeHandler.OpenDispute)
			r.Get("/disputes", disputeHandler.ListDisputes)

			workerHandler := httphandler.WorkerHandler{Models: o.Models}
			r.Get("/profile", workerHandler.GetProfile)
		})

		r.With(middleware.RequireRoleMiddleware(auth.RoleRequester)).Route("/requester", func(r chi.Router) {
			taskHandler := httphandler.TaskHandler{TaskService: o.taskService}
			r.Post("/tasks", taskHandler.CreateBatch)
			r.Post("/tasks/csv", taskHandler.CreateBatchCSV)
			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/batches/{batchId}/publish", taskHandler.PublishBatch)

			if o.mediaPresigner != nil {
				mediaHandler := httphandler.MediaHandler{Presigner: o.mediaPresigner}
				r.Post("/media/upload-url", mediaHandler.GetUploadURL)
			}
		})

		r.With(middleware.RequireRoleMiddleware(auth.RoleAdmin)).Route("/admin", func(r chi.Router) {
			disputeHandler := httphandler.DisputeHandler{DisputeService: o.disputeService, Models: o.Models}
			r.Get("/disputes", disputeHandler.ListOpenDisputes)
			r.Post("/disputes/{disputeId}/resolve", disputeHandler.ResolveDispute)
		})

		r.With(middleware.RequireRoleMiddleware(auth.RoleWorker, auth.RoleRequester)).Route("/wallet", func(r chi.Router) {
			walletHandler := httphandler.WalletHandler{WalletService: o.walletService}
			r.Get("/", walletHandler.GetBalance)
			r.Post("/deposit", walletHandler.Deposit)
			r.Post("/withdraw", walletHandler.Withdraw)
			r.Get("/transactions", walletHandler.ListTransactions)
		})
	})

	mux.Get("/leaderboard", httphandler.WorkerHandler{Models: o.Models}.GetLeaderboard)

	mux.Get("/health", httphandler.HealthHandler{
		ReleaseID:        o.GitCommit,
		ServiceID:        ServiceID,
		Version:          o.Version,
		DBConnectionPool: o.dbConnectionPool,
	}.ServeHTTP)

	return mux
}
