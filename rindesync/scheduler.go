package rindesync

import (
	"context"
	"os"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// StartScheduler runs the periodic system import until ctx is cancelled.
// Every tick queues and executes one run per syncable business across all of
// its journals, guarded by a Redis lock so only one instance ticks.
func StartScheduler(ctx context.Context, store Store) {
	log := config.GetLogger()

	minutes := 60
	if v := os.Getenv("RINDESYNC_CRON_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	interval := time.Duration(minutes) * time.Minute

	log.WithFields(logrus.Fields{"interval_minutes": minutes}).Info("rindegastos scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("rindegastos scheduler stopped")
			return
		case <-ticker.C:
			schedulerTick(ctx, store)
		}
	}
}

func schedulerTick(ctx context.Context, store Store) {
	log := config.GetLogger()

	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(ctx, "lock:rindesync-scheduler", 30*time.Second, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err != nil {
			config.LogError(log, "rindesync", "schedulerTick", "obtaining scheduler lock", nil, err)
			return
		}
		defer func() { _ = lock.Release(ctx) }()
	}

	businesses, err := store.ListSyncableBusinesses(ctx)
	if err != nil {
		config.LogError(log, "rindesync", "schedulerTick", "listing syncable businesses", nil, err)
		return
	}

	orchestrator := NewOrchestrator(store)
	for _, business := range businesses {
		run, err := orchestrator.QueueImport(ctx, business.ID.String(), 0, time.Time{}, time.Time{}, models.SyncTriggeredSystem, nil)
		if err != nil {
			config.LogError(log, "rindesync", "schedulerTick", "queueing system run", business.ID.String(), err)
			continue
		}
		if err := orchestrator.ProcessSyncRun(ctx, business.ID.String(), run.ID); err != nil {
			config.LogError(log, "rindesync", "schedulerTick", "system run failed", business.ID.String(), err)
		}
	}
}
