package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseReport is an approved Rindegastos expense report imported into the
// books. Reference is the remote id, stringified. Amount carries ReportTotal
// and ApprovedAmount carries ReportTotalApproved; their difference is derived
// on read and never stored.
type ExpenseReport struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id" binding:"required"`
	Reference      string          `gorm:"index;size:64;not null" json:"reference" binding:"required"`
	Date           time.Time       `gorm:"type:date;not null" json:"date" binding:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ApprovedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"approved_amount"`
	Note           string          `gorm:"type:text" json:"note"`
	Title          string          `gorm:"size:255" json:"title"`
	ReportNumber   string          `gorm:"size:64" json:"report_number"`
	PolicyName     string          `gorm:"size:255" json:"policy_name"`
	FileURL        string          `gorm:"size:2048" json:"file_url"`
	BankJournalId  int             `gorm:"index;not null" json:"bank_journal_id"`
	MoveId         int             `gorm:"index" json:"move_id"`
	State          string          `gorm:"size:10;default:draft" json:"state"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// TotalDifference is the gap between what was declared and what was approved.
func (r *ExpenseReport) TotalDifference() decimal.Decimal {
	return r.Amount.Sub(r.ApprovedAmount)
}

// FindExpenseReportByNaturalKey looks a report up by its dedupe identity:
// (reference, journal, date, amount). Nil means not yet imported.
func FindExpenseReportByNaturalKey(ctx context.Context, businessId string, reference string, journalId int, date time.Time, amount decimal.Decimal) (*ExpenseReport, error) {
	db := config.GetDB()

	var result ExpenseReport
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

// FindExpenseReportByReference resolves a report by remote id alone, used to
// link child expenses imported in the same run.
func FindExpenseReportByReference(ctx context.Context, businessId string, reference string) (*ExpenseReport, error) {
	db := config.GetDB()

	var result ExpenseReport
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference = ?", businessId, reference).
		Order("id").
		First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func CreateExpenseReport(ctx context.Context, report *ExpenseReport) error {
	db := config.GetDB()

	if report.State == "" {
		report.State = RecordStateDraft
	}
	return db.WithContext(ctx).Create(report).Error
}

// LinkExpenseReportMove records the produced entry on the report. The state
// stays draft; posting is a manual accounting step.
func LinkExpenseReportMove(ctx context.Context, report *ExpenseReport, moveId int) error {
	db := config.GetDB()

	report.MoveId = moveId
	report.State = RecordStateDraft
	return db.WithContext(ctx).
		Model(&ExpenseReport{}).
		Where("id = ?", report.ID).
		Updates(map[string]interface{}{"move_id": moveId, "state": RecordStateDraft}).Error
}

// ListDraftExpenseReports returns unposted reports for the journal, oldest
// first, pending materialization.
func ListDraftExpenseReports(ctx context.Context, businessId string, journalId int) ([]*ExpenseReport, error) {
	db := config.GetDB()

	var results []*ExpenseReport
	err := db.WithContext(ctx).
		Where("business_id = ? AND bank_journal_id = ? AND state = ?", businessId, journalId, RecordStateDraft).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
