package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"scopehq/meridian/pkg/store"
)

// PrunerConfig contains configuration for checkpoint retention.
type PrunerConfig struct {
	// RetentionDays is how long checkpoints are kept. Zero disables
	// pruning entirely.
	RetentionDays int `yaml:"retention_days"`

	// Schedule is the cron expression for automatic pruning
	// (e.g., "0 3 * * *" for daily at 3 AM). Empty disables the
	// scheduler; manual Prune calls still work.
	Schedule string `yaml:"schedule"`
}

// Pruner deletes checkpoints older than the retention period. Decisions are
// never pruned: the audit record of what was decided is permanent, only the
// stage-by-stage trace ages out.
type Pruner struct {
	store   store.Store
	config  *PrunerConfig
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewPruner creates a checkpoint pruner.
func NewPruner(s store.Store, config *PrunerConfig) *Pruner {
	if config == nil {
		config = &PrunerConfig{}
	}
	return &Pruner{
		store:  s,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "checkpoint.pruner"),
	}
}

// Prune deletes checkpoints older than the retention period and returns the
// number deleted. A zero retention period keeps everything.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	deleted, err := p.store.DeleteCheckpointsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("checkpoint pruning failed: %w", err)
	}

	if deleted > 0 {
		p.logger.Info("pruned old checkpoints",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}
	return deleted, nil
}

// Start begins scheduled pruning based on the cron expression. If no
// schedule is configured, Start returns immediately without error.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" || p.config.RetentionDays <= 0 {
		p.logger.Info("checkpoint retention not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.Schedule, err)
	}

	_, err := p.cron.AddFunc(p.config.Schedule, func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled checkpoint pruning failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("checkpoint retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for any running job to complete.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	<-p.cron.Stop().Done()
	p.running = false
	p.logger.Info("checkpoint retention scheduler stopped")
}
