// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"

	"zencalcs-assistant/internal/analysis"
	"zencalcs-assistant/internal/api"
	"zencalcs-assistant/internal/chart"
	"zencalcs-assistant/internal/chat"
	"zencalcs-assistant/internal/common/aws"
	"zencalcs-assistant/internal/common/camunda"
	"zencalcs-assistant/internal/common/config"
	"zencalcs-assistant/internal/common/database"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/observability"
	"zencalcs-assistant/internal/layout"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/pdf"
	"zencalcs-assistant/internal/render"
	"zencalcs-assistant/internal/report"
	"zencalcs-assistant/pkg/registry"

	ac "zencalcs-assistant/internal/workers/ai-conversation/analyze-conversation"
	scm "zencalcs-assistant/internal/workers/ai-conversation/send-chat-message"
	dr "zencalcs-assistant/internal/workers/reporting/deliver-report"
	gr "zencalcs-assistant/internal/workers/reporting/generate-report"
	sr "zencalcs-assistant/internal/workers/reporting/search-reports"
)

const reportGeneratedMessage = "report-generated"

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// backends holds the optional infrastructure. Any field may be nil when the
// service is not configured.
type backends struct {
	pg      *database.PostgresClient
	records *database.ReportRecordRepository
	es      *database.ElasticsearchClient
	redis   *database.RedisClient
	zeebe   *camunda.Client
	store   *aws.ReportStore
	ses     *aws.SESClient
	sns     *aws.SNSClient
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog, err := logger.NewFromConfig(cfg.Logging)
	if err != nil {
		bootLog.Fatal("logger init failed", zap.Error(err))
	}
	defer func() { _ = zapLog.Sync() }()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ZenCalcs assistant...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	b := connectBackends(ctx, cfg, zapLog)

	// --- Language model and analysis ---
	var model *llm.Client
	if cfg.APIs.Anthropic.APIKey != "" {
		model = llm.NewClient(llm.ConfigFrom(cfg), log)
	} else {
		zapLog.Warn("ANTHROPIC_API_KEY is not set; chat and model analysis are disabled")
	}

	sourceOpts := []analysis.SourceOption{analysis.WithLogger(log)}
	if b.redis != nil {
		sourceOpts = append(sourceOpts, analysis.WithCache(
			analysis.NewCache(b.redis, time.Duration(cfg.Report.CacheTTL)*time.Second),
		))
	}

	var modelAnalysis *analysis.Service
	if model != nil {
		modelAnalysis = analysis.NewService(model, log)
	}
	switch svc := cfg.APIs.AnalysisService; {
	case svc.Enabled:
		remote := analysis.NewClient(svc.BaseURL, config.GetDuration(svc.Timeout))
		sourceOpts = append(sourceOpts, analysis.WithRemote(remote, svc.FallbackOnError))
	case modelAnalysis != nil:
		sourceOpts = append(sourceOpts, analysis.WithRemote(modelAnalysis, true))
	}
	source := analysis.NewSource(sourceOpts...)

	// --- Report pipeline ---
	measurer := pdf.NewMeasurer()
	engine := layout.NewEngine(
		layoutConfig(cfg.Report),
		measurer,
		layout.NewGridTableRenderer(measurer),
		chart.NewRenderer(),
		layout.WithLogger(log),
	)

	archiveOpts := []report.ArchiveOption{}
	if b.store != nil {
		archiveOpts = append(archiveOpts, report.WithObjects(b.store))
	}
	if b.records != nil {
		archiveOpts = append(archiveOpts, report.WithRecords(b.records))
	}
	if b.es != nil {
		archiveOpts = append(archiveOpts, report.WithIndex(b.es, cfg.Database.Elasticsearch.ReportIndex))
	}

	genOpts := []report.Option{
		report.WithArchive(report.NewArchive(log, archiveOpts...)),
		report.WithObservability(obs),
		report.WithLogger(log),
		report.PreferRemote(true),
	}
	if b.zeebe != nil {
		genOpts = append(genOpts, report.WithPublisher(b.zeebe, reportGeneratedMessage))
	}
	generator := report.NewGenerator(source, engine, pdf.NewRenderer(cfg.Report.Brand), genOpts...)

	// --- Sessions ---
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	var sessions *chat.Registry
	if model != nil {
		sessions = chat.NewRegistry(func(id string) *chat.Controller {
			return chat.NewController(id, model, generator, log)
		}, time.Duration(cfg.Server.SessionIdleTimeout)*time.Second)
		go sessions.Run(runCtx, time.Minute)
	}

	// --- Zeebe workers ---
	var workers []*camunda.CamundaWorker
	if b.zeebe != nil {
		workers = registerWorkers(cfg, b, model, source, generator, log, zapLog)
	}

	// --- HTTP API, health & metrics ---
	deps := api.Dependencies{
		Reports:  generator,
		Renderer: render.New(),
		Sessions: sessions,
		Ready:    b.ready,
		Logger:   log,
	}
	if model != nil {
		deps.Model = model
	}
	if modelAnalysis != nil {
		deps.Analysis = modelAnalysis
	}
	if b.zeebe != nil {
		deps.Workflows = b.zeebe
	}
	server := api.NewServer(cfg.Server, deps)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping API server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	stopRun()
	b.close(zapLog)

	zapLog.Info("ZenCalcs assistant stopped gracefully")
}

func connectBackends(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) *backends {
	b := &backends{}

	// --- Init Zeebe Client with retry ---
	if cfg.Camunda.Enabled {
		err := retryWithBackoff(func() error {
			var err error
			b.zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")

		if res := cfg.Camunda.DeployResources; len(res) > 0 {
			deployed, err := b.zeebe.DeployResources(ctx, res...)
			if err != nil {
				zapLog.Fatal("BPMN deployment failed", zap.Strings("resources", res), zap.Error(err))
			}
			zapLog.Info("BPMN processes deployed", zap.Strings("processes", deployed))
		}
	}

	// --- Init PostgreSQL with retry ---
	if cfg.Database.Postgres.Host != "" {
		err := retryWithBackoff(func() error {
			var err error
			b.pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return b.pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		if err := b.pg.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema setup failed", zap.Error(err))
		}
		b.records = database.NewReportRecordRepository(b.pg)
		zapLog.Info("PostgreSQL connected successfully")
	}

	// --- Init Elasticsearch with retry ---
	if cfg.Database.Elasticsearch.GetURL() != "" {
		err := retryWithBackoff(func() error {
			var err error
			b.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return b.es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis with retry ---
	if cfg.Database.Redis.Address != "" {
		err := retryWithBackoff(func() error {
			var err error
			b.redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return b.redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		zapLog.Info("Redis connected successfully")
	}

	// --- Init AWS clients ---
	awsCfg := cfg.Integrations.AWS
	if awsCfg.S3.Enabled || awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		b.connectAWS(cfg, sdkCfg)
		zapLog.Info("AWS clients initialized",
			zap.Bool("s3", b.store != nil),
			zap.Bool("ses", b.ses != nil),
			zap.Bool("sns", b.sns != nil),
		)
	}

	return b
}

func (b *backends) connectAWS(cfg *config.Config, sdkCfg sdkaws.Config) {
	awsCfg := cfg.Integrations.AWS
	if awsCfg.S3.Enabled {
		b.store = aws.NewReportStore(sdkCfg, awsCfg.S3.Endpoint, cfg.Report.Bucket, cfg.Report.KeyPrefix)
	}
	if awsCfg.SES.Enabled {
		b.ses = aws.NewSESClient(sdkCfg, awsCfg.SES.FromEmail)
	}
	if awsCfg.SNS.Enabled {
		b.sns = aws.NewSNSClient(sdkCfg)
	}
}

// ready reports the first unreachable backend.
func (b *backends) ready(ctx context.Context) error {
	if b.pg != nil {
		if err := b.pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if b.es != nil {
		if err := b.es.Ping(ctx); err != nil {
			return fmt.Errorf("elasticsearch: %w", err)
		}
	}
	if b.zeebe != nil {
		if err := b.zeebe.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *backends) close(zapLog *zap.Logger) {
	if b.zeebe != nil {
		if err := b.zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pg != nil {
		_ = b.pg.Close()
	}
}

func layoutConfig(rc config.ReportConfig) layout.Config {
	lc := layout.DefaultConfig()
	lc.Geometry.Width = rc.PageWidth
	lc.Geometry.Height = rc.PageHeight
	lc.Geometry.Margin = rc.Margin
	lc.Brand = rc.Brand
	lc.Attribution = rc.Attribution
	lc.ChartWidth = rc.ChartWidth
	lc.ChartHeight = rc.ChartHeight
	return lc
}

func registerWorkers(
	cfg *config.Config,
	b *backends,
	model *llm.Client,
	source *analysis.Source,
	generator *report.Generator,
	log logger.Logger,
	zapLog *zap.Logger,
) []*camunda.CamundaWorker {
	zc := b.zeebe.GetClient()
	var workers []*camunda.CamundaWorker
	if reg, err := registry.LoadRegistry(cfg.Registry.Path); err != nil {
		zapLog.Warn("activity registry not loaded", zap.String("path", cfg.Registry.Path), zap.Error(err))
	} else if missing := reg.Missing(scm.TaskType, ac.TaskType, gr.TaskType, dr.TaskType, sr.TaskType); len(missing) > 0 {
		zapLog.Warn("workers missing from activity registry", zap.Strings("taskTypes", missing))
	}

	// --- AI conversation workers ---
	if model != nil && config.IsWorkerEnabled(cfg, scm.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, scm.TaskType)
		handler := scm.NewHandler(
			&scm.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			model,
			&sendChatMessageLoggerAdapter{log},
		)
		workers = append(workers, startWorker(zc, scm.TaskType, wcfg, handler.Handle, zapLog))
	}

	if config.IsWorkerEnabled(cfg, ac.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, ac.TaskType)
		handler := ac.NewHandler(
			&ac.Config{Timeout: config.GetDuration(wcfg.Timeout), PreferRemote: true},
			source,
			&analyzeConversationLoggerAdapter{log},
		)
		workers = append(workers, startWorker(zc, ac.TaskType, wcfg, handler.Handle, zapLog))
	}

	// --- Reporting workers ---
	if config.IsWorkerEnabled(cfg, gr.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, gr.TaskType)
		handler := gr.NewHandler(
			&gr.Config{Timeout: config.GetDuration(wcfg.Timeout), RequireArchive: b.store != nil},
			generator,
			log,
		)
		workers = append(workers, startWorker(zc, gr.TaskType, wcfg, handler.Handle, zapLog))
	}

	if config.IsWorkerEnabled(cfg, dr.TaskType) {
		if b.store == nil || b.ses == nil {
			zapLog.Warn("deliver-report needs s3 and ses; worker not started")
		} else {
			wcfg := config.GetWorkerConfig(cfg, dr.TaskType)
			drCfg := dr.DefaultConfig()
			drCfg.Timeout = config.GetDuration(wcfg.Timeout)
			drCfg.NotifyTopicARN = cfg.Integrations.AWS.SNS.TopicARN

			deps := dr.ServiceDependencies{Store: b.store, Mailer: b.ses, Logger: log}
			if b.sns != nil {
				deps.Notifier = b.sns
			}
			handler, err := dr.NewHandler(drCfg, deps)
			if err != nil {
				zapLog.Fatal("failed to create deliver-report handler", zap.Error(err))
			}
			workers = append(workers, startWorker(zc, dr.TaskType, wcfg, handler.Handle, zapLog))
		}
	}

	if config.IsWorkerEnabled(cfg, sr.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, sr.TaskType)
		srCfg := sr.LoadConfig()
		srCfg.Timeout = config.GetDuration(wcfg.Timeout)
		srCfg.IndexName = cfg.Database.Elasticsearch.ReportIndex

		var (
			searcher sr.Searcher
			lister   sr.Lister
		)
		if b.es != nil {
			searcher = b.es
		}
		if b.records != nil {
			lister = b.records
		}
		handler := sr.NewHandler(srCfg, searcher, lister, log)
		workers = append(workers, startWorker(zc, sr.TaskType, wcfg, handler.Handle, zapLog))
	}

	zapLog.Info("workers registered", zap.Int("count", len(workers)))
	return workers
}

func startWorker(zc zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, zapLog *zap.Logger) *camunda.CamundaWorker {
	return camunda.NewWorker(zc, taskType, camunda.WorkerOptions{
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
		Concurrency:   wcfg.MaxJobsActive,
	}, handler, zapLog)
}

// Adapters for workers that declare their own narrower Logger.

type sendChatMessageLoggerAdapter struct {
	logger.Logger
}

func (a *sendChatMessageLoggerAdapter) With(fields map[string]interface{}) scm.Logger {
	return &sendChatMessageLoggerAdapter{a.Logger.With(fields)}
}

type analyzeConversationLoggerAdapter struct {
	logger.Logger
}

func (a *analyzeConversationLoggerAdapter) With(fields map[string]interface{}) ac.Logger {
	return &analyzeConversationLoggerAdapter{a.Logger.With(fields)}
}
