package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/nodue-clearance/internal/application/dispatcher"
	"github.com/garyjia/nodue-clearance/internal/application/port"
	"github.com/garyjia/nodue-clearance/internal/application/service"
	"github.com/garyjia/nodue-clearance/internal/domain/workflow"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/metrics"
	"github.com/garyjia/nodue-clearance/internal/infrastructure/worker"
	httpapi "github.com/garyjia/nodue-clearance/internal/interfaces/http"
	"github.com/garyjia/nodue-clearance/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and stop in reverse order.
type Container struct {
	config    *Config
	logger    *zap.Logger
	appLogger *utils.SugarLogger

	database *DatabaseBundle
	external *ExternalBundle

	engine     *workflow.Engine
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	workers *worker.Manager
	server  *httpapi.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Request port.RequestRepository
	History port.HistoryRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Clearance    service.ClearanceService
	Notification service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config:    cfg,
		logger:    logger,
		appLogger: utils.NewSugarLogger(logger),
	}, nil
}

// Start initializes all components:
// 1. Database and repositories
// 2. External adapters (Lark, certificate renderer, metrics)
// 3. Workflow engine, dispatcher and application services
// 4. Workers
// 5. HTTP server (built, not listening; see Server)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.logger.Info("Starting container initialization")

	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"database", c.initDatabase},
		{"external adapters", c.initExternal},
		{"services", c.initServices},
		{"workers", c.initWorkers},
		{"http server", c.initServer},
	}
	for _, step := range steps {
		if err := step.fn(runCtx); err != nil {
			if terr := c.teardown(); terr != nil {
				c.logger.Error("Cleanup after failed start", zap.Error(terr))
			}
			c.closed.Store(true)
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Initialized", zap.String("component", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	err := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) teardown() error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	// pending notifications drain before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.database != nil && c.database.Raw != nil {
		if err := c.database.Raw.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, message string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: message}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.database == nil:
		set("database", false, "not initialized")
	case c.database.Raw == nil:
		set("database", true, "in-memory")
	default:
		if err := c.database.Raw.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, c.database.Raw.Driver())
		}
	}

	if c.workers != nil {
		set("workers", c.workers.IsRunning(), fmt.Sprintf("worker count: %d", c.workers.Count()))
	} else {
		set("workers", false, "not initialized")
	}

	if c.dispatcher != nil {
		set("dispatcher", true, "")
	} else {
		set("dispatcher", false, "not initialized")
	}

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle
	return nil
}

func (c *Container) initExternal(ctx context.Context) error {
	bundle, err := ProvideExternal(c.config, c.logger)
	if err != nil {
		return err
	}
	c.external = bundle
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	engine, err := ProvideEngine()
	if err != nil {
		return err
	}
	c.engine = engine

	disp, err := ProvideDispatcher(c.config.Workflow.HandlerTimeout, c.appLogger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	services, err := ProvideServices(&ServiceDeps{
		Engine:     c.engine,
		Database:   c.database,
		External:   c.external,
		Dispatcher: c.dispatcher,
		Workflow:   &c.config.Workflow,
		Logger:     c.appLogger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(c.database.Repositories, c.external.Metrics, &c.config.Metrics, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

func (c *Container) initServer(ctx context.Context) error {
	server, err := ProvideHTTPServer(c.config, c.engine, c.services, c.external.Metrics, c.appLogger)
	if err != nil {
		return err
	}
	c.server = server
	return nil
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.database.Repositories
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() port.TransactionManager {
	return c.database.TxManager
}

// Engine returns the workflow engine.
func (c *Container) Engine() *workflow.Engine {
	return c.engine
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Metrics returns the metrics recorder, or nil when metrics are disabled.
func (c *Container) Metrics() *metrics.Recorder {
	return c.external.Metrics
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}
