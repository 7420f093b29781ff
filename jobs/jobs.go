package jobs

import (
	"context"
	"fmt"
	"time"

	"MamaCare/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Reconciler interface {
	Reconcile(ctx context.Context) ([]models.LoadCorrection, error)
}

/*
* Register the load reconciliation on the given cron schedule
* A run never overlaps the previous one
 */
func StartDailyScheduler(spec string, r Reconciler, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	// Runs every day at 02:15 AM by default
	_, err := c.AddFunc(spec, func() {
		log.Info("running nurse load reconciliation")
		RunReconcile(context.Background(), r, log)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}

func RunReconcile(ctx context.Context, r Reconciler, log *zap.Logger) []models.LoadCorrection {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	corrections, err := r.Reconcile(ctx)
	if err != nil {
		log.Error("nurse load reconciliation failed", zap.Error(err))
		return corrections
	}
	log.Info("nurse load reconciliation done",
		zap.Int("corrections", len(corrections)),
		zap.Duration("took", time.Since(start)),
	)
	return corrections
}

// Stop waits for a running job to finish or ctx to expire.
func Stop(ctx context.Context, c *cron.Cron) {
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}
