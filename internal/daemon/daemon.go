package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"meetingintel/internal/analysis"
	"meetingintel/internal/api"
	"meetingintel/internal/config"
	"meetingintel/internal/logging"
	"meetingintel/internal/services"
	"meetingintel/internal/store"
)

// Daemon hosts the analysis service behind the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	registries *analysis.RegistryHolder
	service    *analysis.Service
	handler    http.Handler

	lockPath    string
	lock        *flock.Flock
	reloadDelay time.Duration

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	server  *httpServer
	watcher *definitionWatcher
	reloads atomic.Int64
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	APIAddress     string `json:"api_address"`
	LockFilePath   string `json:"lock_file"`
	DatabasePath   string `json:"database_path,omitempty"`
	Stages         int    `json:"stages"`
	Reloads        int64  `json:"reloads"`
	DefinitionFile string `json:"definition_file,omitempty"`
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithReloadDelay sets how long the definition file must be quiet before a
// reload.
func WithReloadDelay(d time.Duration) Option {
	return func(dm *Daemon) {
		dm.reloadDelay = d
	}
}

// New builds the stage registry, opens the history store when persistence
// is enabled, and constructs the API handler.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	reg, err := analysis.BuildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		registries: analysis.NewRegistryHolder(reg),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}

	methods, err := cfg.EnhancementMethods()
	if err != nil {
		return nil, err
	}
	svcOpts := []analysis.Option{analysis.WithLogger(logger), analysis.WithEnhancement(methods...)}
	if cfg.Pipeline.PersistResults {
		st, err := store.Open(context.Background(), cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.store = st
		svcOpts = append(svcOpts, analysis.WithHistory(st))
	}
	d.service = analysis.NewService(d.registries, svcOpts...)
	d.handler = api.NewServer(d.service, logger, api.WithToken(cfg.Paths.APIToken)).Handler()
	return d, nil
}

// Start acquires the daemon lock, starts the API server, and begins watching
// the pipeline definition file when one is configured.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another meetingd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	server := newHTTPServer(d.cfg.Paths.APIBind, d.handler, d.logger)
	if err := server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	if path := strings.TrimSpace(d.cfg.Pipeline.DefinitionFile); path != "" {
		watcher, err := newDefinitionWatcher(path, d.reloadDelay, d.reloadFromWatcher, d.logger)
		if err != nil {
			logging.WarnWithContext(d.logger, "pipeline hot reload disabled", "pipeline_watch_unavailable",
				logging.String(logging.FieldErrorHint, "check the definition file directory exists"),
				logging.String(logging.FieldImpact, "edits to the pipeline file require a daemon restart"),
				logging.Error(err),
			)
		} else {
			watcher.run(runCtx)
			d.watcher = watcher
		}
	}

	d.cancel = cancel
	d.server = server
	d.running.Store(true)
	d.logger.Info("meetingd started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("address", server.addr()),
		logging.Int("stages", d.registries.Load().Len()),
	)
	return nil
}

// Stop shuts down the API server and watcher and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.watcher != nil {
		d.watcher.close()
		d.watcher = nil
	}
	if d.server != nil {
		d.server.stop()
		d.server = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("meetingd stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close stops the daemon and releases the history store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Service exposes the analysis service backing the API.
func (d *Daemon) Service() *analysis.Service { return d.service }

// Handler returns the API handler.
func (d *Daemon) Handler() http.Handler { return d.handler }

// Addr returns the bound API address while running.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server == nil {
		return ""
	}
	return d.server.addr()
}

// Reload rebuilds the stage registry from configuration and swaps it in.
// On failure the previous registry stays active and the error is returned.
func (d *Daemon) Reload() error {
	reg, err := analysis.BuildRegistry(d.cfg, d.logger)
	if err != nil {
		logging.WarnWithContext(d.logger, "pipeline reload rejected; keeping previous stages", "pipeline_reload_failed",
			logging.String(logging.FieldErrorHint, "fix the pipeline definition file; the daemon reloads it on save"),
			logging.String(logging.FieldImpact, "new analyses use the previous stage registry"),
			logging.String("definition_file", d.cfg.Pipeline.DefinitionFile),
			logging.Error(err),
		)
		return err
	}
	previous := d.registries.Swap(reg)
	d.reloads.Add(1)
	prevLen := 0
	if previous != nil {
		prevLen = previous.Len()
	}
	d.logger.Info("pipeline reloaded",
		logging.String(logging.FieldEventType, "pipeline_reload"),
		logging.Int("stages", reg.Len()),
		logging.Int("previous_stages", prevLen),
	)
	return nil
}

func (d *Daemon) reloadFromWatcher() {
	if err := d.Reload(); err != nil && !errors.Is(err, services.ErrConfiguration) {
		d.logger.Error("pipeline reload failed", logging.Error(err))
	}
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		APIAddress:     d.Addr(),
		LockFilePath:   d.lockPath,
		Reloads:        d.reloads.Load(),
		DefinitionFile: d.cfg.Pipeline.DefinitionFile,
	}
	if d.store != nil {
		status.DatabasePath = d.store.Path()
	}
	if reg := d.registries.Load(); reg != nil {
		status.Stages = reg.Len()
	}
	return status
}
