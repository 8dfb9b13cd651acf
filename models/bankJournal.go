package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"gorm.io/gorm"
)

const (
	BankFeedTypeManual      = "manual"
	BankFeedTypeRindegastos = "rindegastos"
)

// BankJournal is the ledger channel imported movements land on. Each journal
// designates exactly one responsible identity on the Rindegastos side: either
// a directly configured user id (legacy movement feed) or a linked employee
// whose RindegastosUserId is used (report feed).
type BankJournal struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id" binding:"required"`
	Name       string `gorm:"size:255;not null" json:"name" binding:"required"`
	FeedType   string `gorm:"size:20;default:manual" json:"feed_type"`
	// Accounts backing the draft entry behind every statement line. Both are
	// required before anything can be materialized on this journal.
	SuspenseAccountId int `gorm:"index" json:"suspense_account_id"`
	DefaultAccountId  int `gorm:"index" json:"default_account_id"`
	// EmployeeId links the responsible employee (report flow).
	EmployeeId int `gorm:"index" json:"employee_id"`
	// RindegastosUserId is the journal-direct subject id (legacy movement flow).
	RindegastosUserId string    `gorm:"size:64" json:"rindegastos_user_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetBankJournal(ctx context.Context, businessId string, id int) (*BankJournal, error) {
	db := config.GetDB()

	var result BankJournal
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

// ListSyncableBankJournals returns every journal on the rindegastos feed for
// the business. The caller decides per journal which flow applies based on
// how the responsible subject is configured.
func ListSyncableBankJournals(ctx context.Context, businessId string) ([]*BankJournal, error) {
	db := config.GetDB()

	var results []*BankJournal
	err := db.WithContext(ctx).
		Where("business_id = ? AND feed_type = ?", businessId, BankFeedTypeRindegastos).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
