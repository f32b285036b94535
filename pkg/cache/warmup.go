package cache

import (
	"context"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

// WarmUpTask primes one set of cache entries, usually by calling a cached
// read path.
type WarmUpTask struct {
	Name string
	Run  func(ctx context.Context) error
}

type WarmUpManager struct {
	tasks  []WarmUpTask
	logger logger.Logger
}

func NewWarmUpManager(logger logger.Logger, tasks ...WarmUpTask) *WarmUpManager {
	return &WarmUpManager{tasks: tasks, logger: logger}
}

// WarmUp runs every task once. Failures are logged and counted; warm-up
// never blocks startup.
func (w *WarmUpManager) WarmUp(ctx context.Context) int {
	failed := 0
	start := time.Now()
	for _, task := range w.tasks {
		if err := task.Run(ctx); err != nil {
			failed++
			w.logger.Warn("Cache warm-up task failed", map[string]interface{}{
				"task":  task.Name,
				"error": err.Error(),
			})
		}
	}
	w.logger.Info("Cache warm-up finished", map[string]interface{}{
		"tasks":    len(w.tasks),
		"failed":   failed,
		"duration": time.Since(start).String(),
	})
	return failed
}

// ScheduledWarmUp repeats WarmUp every interval until ctx is done.
func (w *WarmUpManager) ScheduledWarmUp(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.WarmUp(ctx)
		}
	}
}
