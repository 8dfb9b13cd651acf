package rindesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"github.com/sirupsen/logrus"
)

// Orchestrator owns the run lifecycle: queueing, executing and retrying
// import runs against a Store.
type Orchestrator struct {
	store Store
	log   *logrus.Logger
}

func NewOrchestrator(store Store) *Orchestrator {
	return &Orchestrator{store: store, log: config.GetLogger()}
}

// QueueImport records a new run in queued state. JournalId zero means every
// syncable journal of the business.
func (o *Orchestrator) QueueImport(ctx context.Context, businessId string, journalId int, since time.Time, until time.Time, triggeredBy string, parentRunId *uint) (*models.ImportSyncRun, error) {
	run := &models.ImportSyncRun{
		BusinessId:    businessId,
		Status:        models.SyncRunStatusQueued,
		TriggeredBy:   triggeredBy,
		BankJournalId: journalId,
		ParentRunId:   parentRunId,
	}
	if !since.IsZero() {
		run.Since = &since
	}
	if !until.IsZero() {
		run.Until = &until
	}
	if err := o.store.CreateSyncRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// RetrySyncRun queues a child run that re-imports the parent's journal and
// window. Only finished runs can be retried.
func (o *Orchestrator) RetrySyncRun(ctx context.Context, businessId string, runId uint) (*models.ImportSyncRun, error) {
	parent, err := o.store.GetSyncRun(ctx, businessId, runId)
	if err != nil {
		return nil, err
	}
	if parent.Status == models.SyncRunStatusQueued || parent.Status == models.SyncRunStatusRunning {
		return nil, fmt.Errorf("run %d is still %s", parent.ID, parent.Status)
	}

	since := time.Time{}
	until := time.Time{}
	if parent.Since != nil {
		since = *parent.Since
	}
	if parent.Until != nil {
		until = *parent.Until
	}
	return o.QueueImport(ctx, businessId, parent.BankJournalId, since, until, models.SyncTriggeredRetry, &parent.ID)
}

// ProcessSyncRun executes a queued run to completion. Journals are isolated:
// a failing journal is recorded against the run and the rest keep going.
// Terminal runs are skipped, so redelivered dispatches are harmless.
func (o *Orchestrator) ProcessSyncRun(ctx context.Context, businessId string, runId uint) error {
	run, err := o.store.GetSyncRun(ctx, businessId, runId)
	if err != nil {
		return err
	}
	switch run.Status {
	case models.SyncRunStatusSuccess, models.SyncRunStatusFailed, models.SyncRunStatusPartial:
		return nil
	}

	now := time.Now()
	startedAt := run.StartedAt
	if startedAt == nil {
		startedAt = &now
	}
	run.Status = models.SyncRunStatusRunning
	run.StartedAt = startedAt
	if err := o.store.UpdateSyncRun(ctx, run); err != nil {
		return err
	}

	stats := map[string]int{}
	totalSynced := 0
	errorCount := 0

	business, err := o.store.GetBusiness(ctx, businessId)
	if err == nil && business.RindegastosToken == "" {
		err = &ConfigError{Reason: fmt.Sprintf("no Rindegastos token configured for company %s", business.Name)}
	}
	if err != nil {
		return o.finishRun(ctx, run, startedAt, stats, 0, 1, err)
	}

	client := newRgClient(business.RindegastosToken)
	im := newImporter(o.store, client, businessId, run.ID)

	journals, err := o.runJournals(ctx, run)
	if err != nil {
		return o.finishRun(ctx, run, startedAt, stats, 0, 1, err)
	}

	for _, journal := range journals {
		count, skipped, err := o.processJournal(ctx, im, journal, run)
		totalSynced += count
		errorCount += skipped
		stats[journal.Name] = count
		if err != nil {
			errorCount++
			retryable := IsRemoteError(err)
			im.recordError(ctx, "journal", fmt.Sprintf("%d", journal.ID), journalErrorCode(err), err.Error(), nil, retryable)
			config.LogError(o.log, "rindesync", "ProcessSyncRun", "journal import failed", journal.Name, err)
		}
	}

	return o.finishRun(ctx, run, startedAt, stats, totalSynced, errorCount, nil)
}

func (o *Orchestrator) runJournals(ctx context.Context, run *models.ImportSyncRun) ([]*models.BankJournal, error) {
	if run.BankJournalId != 0 {
		journal, err := o.store.GetBankJournal(ctx, run.BusinessId, run.BankJournalId)
		if err != nil {
			return nil, err
		}
		return []*models.BankJournal{journal}, nil
	}
	return o.store.ListSyncableBankJournals(ctx, run.BusinessId)
}

// processJournal runs one journal's flow end to end: import then the draft
// sweep. The subject's configuration decides whether it is the report feed
// or the legacy movement feed.
func (o *Orchestrator) processJournal(ctx context.Context, im *importer, journal *models.BankJournal, run *models.ImportSyncRun) (int, int, error) {
	flow, userId, err := resolveSubject(ctx, o.store, journal)
	if err != nil {
		return 0, 0, err
	}

	query := fetchQuery{UserId: userId}
	if run.Since != nil {
		query.Since = run.Since.Format(time.DateOnly)
	}
	if run.Until != nil {
		query.Until = run.Until.Format(time.DateOnly)
	}

	switch flow {
	case flowReports:
		created, skipped, err := im.importReports(ctx, journal, query)
		if err != nil {
			return created, skipped, err
		}
		return created, skipped, im.materializeDraftReports(ctx, journal)
	default:
		created, skipped, err := im.importMovements(ctx, journal, query)
		if err != nil {
			return created, skipped, err
		}
		return created, skipped, im.materializeDraftMovements(ctx, journal)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, run *models.ImportSyncRun, startedAt *time.Time, stats map[string]int, totalSynced int, errorCount int, fatal error) error {
	finishedAt := time.Now()

	status := models.SyncRunStatusSuccess
	if errorCount > 0 && totalSynced == 0 {
		status = models.SyncRunStatusFailed
	} else if errorCount > 0 {
		status = models.SyncRunStatusPartial
	}

	if fatal != nil {
		status = models.SyncRunStatusFailed
		im := newImporter(o.store, nil, run.BusinessId, run.ID)
		im.recordError(ctx, "run", "", journalErrorCode(fatal), fatal.Error(), nil, IsRemoteError(fatal))
	}

	statsJSON, _ := json.Marshal(stats)
	run.Status = status
	run.FinishedAt = &finishedAt
	run.DurationMs = finishedAt.Sub(*startedAt).Milliseconds()
	run.RecordsSynced = totalSynced
	run.ErrorCount = errorCount
	run.StatsJSON = statsJSON
	if err := o.store.UpdateSyncRun(ctx, run); err != nil {
		return err
	}

	o.log.WithFields(logrus.Fields{
		"run_id":         run.ID,
		"status":         status,
		"records_synced": totalSynced,
		"error_count":    errorCount,
		"duration_ms":    run.DurationMs,
	}).Info("rindegastos import run finished")
	return fatal
}

func journalErrorCode(err error) string {
	switch {
	case IsConfigError(err):
		return "missing_configuration"
	case IsRemoteError(err):
		return "remote_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "sync_failed"
	}
}
