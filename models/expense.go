package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is an individual approved expense imported from Rindegastos.
// Amount is stored negated (outflow). ReportId links the parent ExpenseReport
// when one was imported before this expense; zero means no link was resolved.
type Expense struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Reference     string          `gorm:"index;size:64;not null" json:"reference" binding:"required"`
	Date          time.Time       `gorm:"type:date;not null" json:"date" binding:"required"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Description   string          `gorm:"type:text" json:"description"`
	FileURL       string          `gorm:"size:2048" json:"file_url"`
	BankJournalId int             `gorm:"index;not null" json:"bank_journal_id"`
	ReportId      int             `gorm:"index" json:"report_id"`
	ContactId     int             `gorm:"index" json:"contact_id"`
	MoveId        int             `gorm:"index" json:"move_id"`
	State         string          `gorm:"size:10;default:draft" json:"state"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func FindExpenseByNaturalKey(ctx context.Context, businessId string, reference string, journalId int, date time.Time, amount decimal.Decimal) (*Expense, error) {
	db := config.GetDB()

	var result Expense
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

func CreateExpense(ctx context.Context, expense *Expense) error {
	db := config.GetDB()

	if expense.State == "" {
		expense.State = RecordStateDraft
	}
	return db.WithContext(ctx).Create(expense).Error
}

func LinkExpenseMove(ctx context.Context, expense *Expense, moveId int) error {
	db := config.GetDB()

	expense.MoveId = moveId
	expense.State = RecordStateDraft
	return db.WithContext(ctx).
		Model(&Expense{}).
		Where("id = ?", expense.ID).
		Updates(map[string]interface{}{"move_id": moveId, "state": RecordStateDraft}).Error
}

// ListDraftExpensesByReport returns the report's unposted expenses pending
// materialization, oldest first.
func ListDraftExpensesByReport(ctx context.Context, businessId string, reportId int) ([]*Expense, error) {
	db := config.GetDB()

	var results []*Expense
	err := db.WithContext(ctx).
		Where("business_id = ? AND report_id = ? AND state = ?", businessId, reportId, RecordStateDraft).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListExpensesForExport feeds the XLSX export: every imported expense on the
// journal within the window, oldest first.
func ListExpensesForExport(ctx context.Context, businessId string, journalId int, since time.Time, until time.Time) ([]*Expense, error) {
	db := config.GetDB()

	query := db.WithContext(ctx).
		Where("business_id = ? AND bank_journal_id = ?", businessId, journalId)
	if !since.IsZero() {
		query = query.Where("date >= ?", since)
	}
	if !until.IsZero() {
		query = query.Where("date <= ?", until)
	}

	var results []*Expense
	if err := query.Order("date, id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
