package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EntryStateDraft  = "draft"
	EntryStatePosted = "posted"
)

// AccountEntry is the draft accounting entry generated behind a bank
// statement line. It stays in draft until posted manually in the books.
type AccountEntry struct {
	ID            int                `gorm:"primary_key" json:"id"`
	BusinessId    string             `gorm:"index;not null" json:"business_id" binding:"required"`
	BankJournalId int                `gorm:"index;not null" json:"bank_journal_id"`
	EntryDate     time.Time          `gorm:"type:date;not null" json:"entry_date"`
	Reference     string             `gorm:"size:64" json:"reference"`
	Narration     string             `gorm:"size:512" json:"narration"`
	State         string             `gorm:"size:10;default:draft" json:"state"`
	Lines         []AccountEntryLine `gorm:"foreignKey:AccountEntryId" json:"lines"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type AccountEntryLine struct {
	ID             int             `gorm:"primary_key" json:"id"`
	AccountEntryId int             `gorm:"index;not null" json:"account_entry_id"`
	AccountId      int             `gorm:"index;not null" json:"account_id"`
	Description    string          `gorm:"size:255" json:"description"`
	Debit          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
}

// createEntryForStatementLine builds the two-line draft entry: the journal's
// default (bank) account against its suspense account. A positive line amount
// debits the bank account; a negative one credits it.
func createEntryForStatementLine(tx *gorm.DB, journal *BankJournal, line *BankStatementLine) (*AccountEntry, error) {
	amount := line.Amount
	bankDebit, bankCredit := amount, decimal.Zero
	if amount.IsNegative() {
		bankDebit, bankCredit = decimal.Zero, amount.Neg()
	}

	entry := &AccountEntry{
		BusinessId:    line.BusinessId,
		BankJournalId: journal.ID,
		EntryDate:     line.Date,
		Reference:     line.Ref,
		Narration:     line.PaymentRef,
		State:         EntryStateDraft,
		Lines: []AccountEntryLine{
			{
				AccountId:   journal.DefaultAccountId,
				Description: line.PaymentRef,
				Debit:       bankDebit,
				Credit:      bankCredit,
			},
			{
				AccountId:   journal.SuspenseAccountId,
				Description: line.PaymentRef,
				Debit:       bankCredit,
				Credit:      bankDebit,
			},
		},
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}
