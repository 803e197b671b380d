package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
)

// Manager coordinates all background workers. Today that's the
// revocation blocklist sweep, built so another periodic worker can
// register the same way.
type Manager struct {
	workers []Worker
	logger  *zap.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

// ManagerConfig toggles the worker manager and carries the sweep
// interval it hands to the blocklist worker.
type ManagerConfig struct {
	Enabled                bool
	BlocklistSweepInterval time.Duration
}

// Dependencies holds what background workers need to do their job.
type Dependencies struct {
	AuthCore *auth.Core
}

// NewManager creates a new worker manager.
func NewManager(cfg *ManagerConfig, deps *Dependencies, logger *zap.Logger) *Manager {
	if !cfg.Enabled {
		logger.Info("worker manager disabled")
		return &Manager{logger: logger}
	}

	ctx, cancel := context.WithCancel(context.Background())
	manager := &Manager{
		workers: make([]Worker, 0, 1),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	if deps.AuthCore != nil {
		sweeper := NewBlocklistSweeper(deps.AuthCore.Blocklist(), cfg.BlocklistSweepInterval, logger.With(zap.String("worker", "blocklist-sweep")))
		manager.workers = append(manager.workers, sweeper)
	}

	logger.Info("worker manager initialized", zap.Int("workerCount", len(manager.workers)))
	return manager
}

// Start starts all workers.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.cancel == nil {
		return nil
	}

	m.logger.Info("starting worker manager")

	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()
			if err := w.Start(m.ctx); err != nil {
				m.logger.Error("worker failed to start", zap.String("worker", w.Name()), zap.Error(err))
			}
		}(worker)
	}

	m.running = true
	m.logger.Info("worker manager started", zap.Int("workerCount", len(m.workers)))
	return nil
}

// Stop gracefully stops all workers.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.logger.Info("stopping worker manager")

	if m.cancel != nil {
		m.cancel()
	}

	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			m.logger.Error("failed to stop worker", zap.String("worker", worker.Name()), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("all workers stopped")
	case <-time.After(30 * time.Second):
		m.logger.Warn("timeout waiting for workers to stop")
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	m.logger.Info("worker manager stopped")
	return nil
}

// IsRunning returns whether the manager is running.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// GetWorkerStatus returns the status of all workers.
func (m *Manager) GetWorkerStatus() map[string]bool {
	status := make(map[string]bool)
	for _, worker := range m.workers {
		status[worker.Name()] = worker.IsRunning()
	}
	return status
}

// WorkerCount returns the number of registered workers.
func (m *Manager) WorkerCount() int {
	return len(m.workers)
}
