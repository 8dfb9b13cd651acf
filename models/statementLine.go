package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankStatementLine is the ledger line produced from an imported record.
// Creating one also creates the draft AccountEntry behind it; an accountant
// later posts that entry by hand.
type BankStatementLine struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id" binding:"required"`
	BankJournalId int             `gorm:"index;not null" json:"bank_journal_id" binding:"required"`
	Date          time.Time       `gorm:"type:date;not null" json:"date" binding:"required"`
	PaymentRef    string          `gorm:"size:512" json:"payment_ref"`
	Ref           string          `gorm:"index;size:64" json:"ref"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ContactId     int             `gorm:"index" json:"contact_id"`
	FileURL       string          `gorm:"size:2048" json:"file_url"`
	MoveId        int             `gorm:"index" json:"move_id"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBankStatementLine struct {
	BusinessId    string
	BankJournalId int
	Date          time.Time
	PaymentRef    string
	Ref           string
	Amount        decimal.Decimal
	ContactId     int
	FileURL       string
}

// FindBankStatementLine checks whether a line already exists for the
// materialization key (ref, journal, date, amount). Nil means none.
func FindBankStatementLine(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*BankStatementLine, error) {
	db := config.GetDB()

	var result BankStatementLine
	err := db.WithContext(ctx).
		Where("business_id = ? AND ref = ? AND bank_journal_id = ? AND date = ? AND amount = ?",
			businessId, ref, journalId, date, amount).
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// CreateBankStatementLine creates the line and its draft counterpart entry in
// one transaction. The entry balances the journal's default account against
// its suspense account for the line amount. A line that cannot get an entry
// is an error, never a silent partial write.
func CreateBankStatementLine(ctx context.Context, journal *BankJournal, input *NewBankStatementLine) (*BankStatementLine, error) {
	db := config.GetDB()

	line := &BankStatementLine{
		BusinessId:    input.BusinessId,
		BankJournalId: input.BankJournalId,
		Date:          input.Date,
		PaymentRef:    input.PaymentRef,
		Ref:           input.Ref,
		Amount:        input.Amount,
		ContactId:     input.ContactId,
		FileURL:       input.FileURL,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(line).Error; err != nil {
			return err
		}

		entry, err := createEntryForStatementLine(tx, journal, line)
		if err != nil {
			return err
		}
		if entry == nil || entry.ID == 0 {
			return fmt.Errorf("no account entry was generated for statement line %s", line.PaymentRef)
		}

		line.MoveId = entry.ID
		return tx.Model(&BankStatementLine{}).
			Where("id = ?", line.ID).
			Update("move_id", entry.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}
