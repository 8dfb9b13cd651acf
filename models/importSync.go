package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"gorm.io/gorm"
)

// ImportSyncRun is one execution of the Rindegastos import pipeline, manual
// or scheduled. Stats and errors are kept for the operator-facing history.
type ImportSyncRun struct {
	ID            uint       `gorm:"primary_key" json:"id"`
	BusinessId    string     `gorm:"index;not null" json:"business_id"`
	Status        string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy   string     `gorm:"size:20" json:"triggered_by"`
	BankJournalId int        `gorm:"index" json:"bank_journal_id"`
	Since         *time.Time `gorm:"type:date" json:"since"`
	Until         *time.Time `gorm:"type:date" json:"until"`
	StatsJSON     []byte     `gorm:"type:json" json:"stats"`
	RecordsSynced int        `json:"records_synced"`
	ErrorCount    int        `json:"error_count"`
	ParentRunId   *uint      `gorm:"index" json:"parent_run_id"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type ImportSyncError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id"`
	EntityType  string    `gorm:"size:50" json:"entity_type"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateImportSyncRun(ctx context.Context, run *ImportSyncRun) error {
	db := config.GetDB()

	if run.Status == "" {
		run.Status = SyncRunStatusQueued
	}
	return db.WithContext(ctx).Create(run).Error
}

func UpdateImportSyncRun(ctx context.Context, run *ImportSyncRun) error {
	db := config.GetDB()
	return db.WithContext(ctx).Save(run).Error
}

func GetImportSyncRun(ctx context.Context, businessId string, id uint) (*ImportSyncRun, error) {
	db := config.GetDB()

	var result ImportSyncRun
	err := db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessId).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// ListImportSyncRuns returns the business's runs newest first, capped.
func ListImportSyncRuns(ctx context.Context, businessId string, limit int) ([]*ImportSyncRun, error) {
	db := config.GetDB()

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var results []*ImportSyncRun
	err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("id desc").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func CreateImportSyncError(ctx context.Context, errRec *ImportSyncError) error {
	db := config.GetDB()
	return db.WithContext(ctx).Create(errRec).Error
}

func ListImportSyncErrors(ctx context.Context, businessId string, runId uint) ([]*ImportSyncError, error) {
	db := config.GetDB()

	var results []*ImportSyncError
	err := db.WithContext(ctx).
		Where("business_id = ? AND sync_run_id = ?", businessId, runId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
