package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankMovement is the earlier, report-unaware import variant kept for
// journals that still sync through their own RindegastosUserId instead of a
// linked employee. Same shape as Expense minus the report linkage.
type BankMovement struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Reference     string          `gorm:"index;size:64;not null" json:"reference" binding:"required"`
	Date          time.Time       `gorm:"type:date;not null" json:"date" binding:"required"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Description   string          `gorm:"type:text" json:"description"`
	FileURL       string          `gorm:"size:2048" json:"file_url"`
	BankJournalId int             `gorm:"index;not null" json:"bank_journal_id"`
	ContactId     int             `gorm:"index" json:"contact_id"`
	MoveId        int             `gorm:"index" json:"move_id"`
	State         string          `gorm:"size:10;default:draft" json:"state"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func FindBankMovementByNaturalKey(ctx context.Context, businessId string, reference string, journalId int, date time.Time, amount decimal.Decimal) (*BankMovement, error) {
	db := config.GetDB()

	var result BankMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference = ? AND bank_journal_id = ? AND date = ? AND amount = ?",
			businessId, reference, journalId, date, amount).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func CreateBankMovement(ctx context.Context, movement *BankMovement) error {
	db := config.GetDB()

	if movement.State == "" {
		movement.State = RecordStateDraft
	}
	return db.WithContext(ctx).Create(movement).Error
}

func LinkBankMovementMove(ctx context.Context, movement *BankMovement, moveId int) error {
	db := config.GetDB()

	movement.MoveId = moveId
	movement.State = RecordStateDraft
	return db.WithContext(ctx).
		Model(&BankMovement{}).
		Where("id = ?", movement.ID).
		Updates(map[string]interface{}{"move_id": moveId, "state": RecordStateDraft}).Error
}

func ListDraftBankMovements(ctx context.Context, businessId string, journalId int) ([]*BankMovement, error) {
	db := config.GetDB()

	var results []*BankMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND bank_journal_id = ? AND state = ?", businessId, journalId, RecordStateDraft).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
