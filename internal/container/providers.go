package container

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/dispatcher"
	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/application/service"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/certificate"
	infraLark "github.com/garyjia/nodue-clearance/internal/infrastructure/external/lark"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/metrics"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/persistence/memory"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/persistence/repository"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/worker"
	httpapi "github.com/garyjia/nodue-clearance/internal/interfaces/http"
	"github.com/garyjia/nodue-clearance/pkg/database"
	"github.com/garyjia/nodue-clearance/pkg/utils"
)

// DatabaseBundle holds database-related components. Raw is nil for the
// memory driver.
type DatabaseBundle struct {
	Raw          *database.DB
	TxManager    port.TransactionManager
	Repositories *RepositoryBundle
}

// ExternalBundle holds adapters to systems outside the process.
type ExternalBundle struct {
	Notifier port.Notifier
	Renderer port.CertificateRenderer
	Metrics  *metrics.Recorder
}

// ProvideDatabase opens the configured backend, runs migrations and builds
// the repositories on top of it.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == DriverMemory {
		store := memory.NewStore(logger)
		return &DatabaseBundle{
			TxManager: store,
			Repositories: &RepositoryBundle{
				Request: memory.NewRequestRepository(store),
				History: memory.NewHistoryRepository(store),
			},
		}, nil
	}

	raw, err := database.New(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(raw, logger).Run(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dialect, ok := sqldb.DialectFor(raw.Driver())
	if !ok {
		raw.Close()
		return nil, fmt.Errorf("no SQL dialect for driver %q", raw.Driver())
	}
	db := sqldb.NewDB(raw.DB, dialect, logger)

	return &DatabaseBundle{
		Raw:       raw,
		TxManager: db,
		Repositories: &RepositoryBundle{
			Request: repository.NewRequestRepository(db, logger),
			History: repository.NewHistoryRepository(db, logger),
		},
	}, nil
}

// ProvideExternal creates the notifier, certificate renderer and metrics
// recorder. The recorder is nil when metrics are disabled.
func ProvideExternal(cfg *Config, logger *zap.Logger) (*ExternalBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	larkCfg := infraLark.Config{
		AppID:           cfg.Lark.AppID,
		AppSecret:       cfg.Lark.AppSecret,
		BaseURL:         cfg.Lark.BaseURL,
		DepartmentChats: cfg.Lark.DepartmentChats,
		RegistrarChatID: cfg.Lark.RegistrarChatID,
	}

	var notifier port.Notifier
	if larkCfg.Enabled() {
		messenger := infraLark.NewMessenger(infraLark.NewSDKClient(larkCfg, logger), logger)
		notifier = infraLark.NewNotifier(messenger, larkCfg, logger)
		logger.Info("Lark notifications enabled", zap.Int("department_chats", len(larkCfg.DepartmentChats)))
	} else {
		notifier = infraLark.NewLogNotifier(logger)
		logger.Info("Lark not configured, notifications will be logged")
	}

	bundle := &ExternalBundle{
		Notifier: notifier,
		Renderer: certificate.NewExcelRenderer(cfg.Certificate.InstitutionName, logger),
	}
	if cfg.Metrics.Enabled {
		bundle.Metrics = metrics.NewRecorder()
	}
	return bundle, nil
}

// ProvideEngine builds the workflow engine from the institution's stage
// template and role policy.
func ProvideEngine() (*workflow.Engine, error) {
	engine, err := workflow.NewEngine(workflow.DefaultTemplate(), workflow.DefaultPolicy())
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow engine: %w", err)
	}
	return engine, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(handlerTimeout time.Duration, logger *utils.SugarLogger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(logger)}
	if handlerTimeout > 0 {
		opts = append(opts, dispatcher.WithHandlerTimeout(handlerTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Engine     *workflow.Engine
	Database   *DatabaseBundle
	External   *ExternalBundle
	Dispatcher dispatcher.Dispatcher
	Workflow   *WorkflowConfig
	Logger     *utils.SugarLogger
}

// ProvideServices creates the application services and subscribes the
// notification handlers on the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Engine == nil || deps.Database == nil || deps.External == nil || deps.Dispatcher == nil {
		return nil, fmt.Errorf("engine, database, external adapters and dispatcher are required")
	}

	opts := []service.Option{service.WithDecideMaxAttempts(deps.Workflow.DecideMaxAttempts)}
	if deps.External.Metrics != nil {
		opts = append(opts, service.WithMetrics(deps.External.Metrics))
	}

	repos := deps.Database.Repositories
	clearance := service.NewClearanceService(
		deps.Engine,
		repos.Request,
		repos.History,
		deps.Database.TxManager,
		deps.Dispatcher,
		deps.External.Renderer,
		deps.Logger,
		opts...,
	)

	notification := service.NewNotificationService(deps.External.Notifier, deps.Logger)
	notification.Register(deps.Dispatcher)

	return &ServiceBundle{
		Clearance:    clearance,
		Notification: notification,
	}, nil
}

// ProvideWorkers creates the worker manager and registers background
// workers. No worker runs when metrics are disabled.
func ProvideWorkers(repos *RepositoryBundle, recorder *metrics.Recorder, cfg *MetricsConfig, logger *zap.Logger) (*worker.Manager, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	manager := worker.NewManager(logger)
	if recorder != nil {
		manager.Register(worker.NewRequestGaugeWorker(repos.Request, recorder, cfg.RefreshInterval, logger))
	}
	return manager, nil
}

// ProvideHTTPServer creates the HTTP server with route access control.
func ProvideHTTPServer(cfg *Config, engine *workflow.Engine, services *ServiceBundle, recorder *metrics.Recorder, logger *utils.SugarLogger) (*httpapi.Server, error) {
	access, err := httpapi.NewAccessControl(engine.Policy().ReviewerRoles())
	if err != nil {
		return nil, err
	}

	serverCfg := httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var handler http.Handler
	if recorder != nil {
		serverCfg.MetricsPath = cfg.Metrics.Path
		handler = recorder.Handler()
	}

	return httpapi.NewServer(serverCfg, services.Clearance, access, handler, logger), nil
}
