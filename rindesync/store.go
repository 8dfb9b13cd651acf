package rindesync

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"github.com/shopspring/decimal"
)

// Store is the persistence surface the import pipeline runs against. The
// production implementation delegates to the models package; tests swap in
// an in-memory fake.
type Store interface {
	GetBusiness(ctx context.Context, businessId string) (*models.Business, error)
	ListSyncableBusinesses(ctx context.Context) ([]*models.Business, error)
	GetBankJournal(ctx context.Context, businessId string, id int) (*models.BankJournal, error)
	ListSyncableBankJournals(ctx context.Context, businessId string) ([]*models.BankJournal, error)
	GetEmployee(ctx context.Context, businessId string, id int) (*models.Employee, error)
	UpdateEmployeeUserId(ctx context.Context, businessId string, id int, userId string) error
	FindContactByTaxId(ctx context.Context, businessId string, taxId string) (*models.Contact, error)

	FindBankMovement(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.BankMovement, error)
	CreateBankMovement(ctx context.Context, movement *models.BankMovement) error
	LinkBankMovementMove(ctx context.Context, movement *models.BankMovement, moveId int) error
	ListDraftBankMovements(ctx context.Context, businessId string, journalId int) ([]*models.BankMovement, error)

	FindExpense(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.Expense, error)
	CreateExpense(ctx context.Context, expense *models.Expense) error
	LinkExpenseMove(ctx context.Context, expense *models.Expense, moveId int) error
	ListDraftExpensesByReport(ctx context.Context, businessId string, reportId int) ([]*models.Expense, error)

	FindExpenseReport(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.ExpenseReport, error)
	FindExpenseReportByReference(ctx context.Context, businessId string, ref string) (*models.ExpenseReport, error)
	CreateExpenseReport(ctx context.Context, report *models.ExpenseReport) error
	LinkExpenseReportMove(ctx context.Context, report *models.ExpenseReport, moveId int) error
	ListDraftExpenseReports(ctx context.Context, businessId string, journalId int) ([]*models.ExpenseReport, error)

	FindStatementLine(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.BankStatementLine, error)
	CreateStatementLine(ctx context.Context, journal *models.BankJournal, input *models.NewBankStatementLine) (*models.BankStatementLine, error)

	CreateSyncRun(ctx context.Context, run *models.ImportSyncRun) error
	UpdateSyncRun(ctx context.Context, run *models.ImportSyncRun) error
	GetSyncRun(ctx context.Context, businessId string, id uint) (*models.ImportSyncRun, error)
	ListSyncRuns(ctx context.Context, businessId string, limit int) ([]*models.ImportSyncRun, error)
	CreateSyncError(ctx context.Context, errRec *models.ImportSyncError) error
	ListSyncErrors(ctx context.Context, businessId string, runId uint) ([]*models.ImportSyncError, error)
}

type gormStore struct{}

// NewStore returns the database-backed Store.
func NewStore() Store { return gormStore{} }

func (gormStore) GetBusiness(ctx context.Context, businessId string) (*models.Business, error) {
	return models.GetBusinessById(ctx, businessId)
}

func (gormStore) ListSyncableBusinesses(ctx context.Context) ([]*models.Business, error) {
	return models.ListSyncableBusinesses(ctx)
}

func (gormStore) GetBankJournal(ctx context.Context, businessId string, id int) (*models.BankJournal, error) {
	return models.GetBankJournal(ctx, businessId, id)
}

func (gormStore) ListSyncableBankJournals(ctx context.Context, businessId string) ([]*models.BankJournal, error) {
	return models.ListSyncableBankJournals(ctx, businessId)
}

func (gormStore) GetEmployee(ctx context.Context, businessId string, id int) (*models.Employee, error) {
	return models.GetEmployee(ctx, businessId, id)
}

func (gormStore) UpdateEmployeeUserId(ctx context.Context, businessId string, id int, userId string) error {
	return models.UpdateEmployeeRindegastosUserId(ctx, businessId, id, userId)
}

func (gormStore) FindContactByTaxId(ctx context.Context, businessId string, taxId string) (*models.Contact, error) {
	return models.FindContactByTaxId(ctx, businessId, taxId)
}

func (gormStore) FindBankMovement(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.BankMovement, error) {
	return models.FindBankMovementByNaturalKey(ctx, businessId, ref, journalId, date, amount)
}

func (gormStore) CreateBankMovement(ctx context.Context, movement *models.BankMovement) error {
	return models.CreateBankMovement(ctx, movement)
}

func (gormStore) LinkBankMovementMove(ctx context.Context, movement *models.BankMovement, moveId int) error {
	return models.LinkBankMovementMove(ctx, movement, moveId)
}

func (gormStore) ListDraftBankMovements(ctx context.Context, businessId string, journalId int) ([]*models.BankMovement, error) {
	return models.ListDraftBankMovements(ctx, businessId, journalId)
}

func (gormStore) FindExpense(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.Expense, error) {
	return models.FindExpenseByNaturalKey(ctx, businessId, ref, journalId, date, amount)
}

func (gormStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	return models.CreateExpense(ctx, expense)
}

func (gormStore) LinkExpenseMove(ctx context.Context, expense *models.Expense, moveId int) error {
	return models.LinkExpenseMove(ctx, expense, moveId)
}

func (gormStore) ListDraftExpensesByReport(ctx context.Context, businessId string, reportId int) ([]*models.Expense, error) {
	return models.ListDraftExpensesByReport(ctx, businessId, reportId)
}

func (gormStore) FindExpenseReport(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.ExpenseReport, error) {
	return models.FindExpenseReportByNaturalKey(ctx, businessId, ref, journalId, date, amount)
}

func (gormStore) FindExpenseReportByReference(ctx context.Context, businessId string, ref string) (*models.ExpenseReport, error) {
	return models.FindExpenseReportByReference(ctx, businessId, ref)
}

func (gormStore) CreateExpenseReport(ctx context.Context, report *models.ExpenseReport) error {
	return models.CreateExpenseReport(ctx, report)
}

func (gormStore) LinkExpenseReportMove(ctx context.Context, report *models.ExpenseReport, moveId int) error {
	return models.LinkExpenseReportMove(ctx, report, moveId)
}

func (gormStore) ListDraftExpenseReports(ctx context.Context, businessId string, journalId int) ([]*models.ExpenseReport, error) {
	return models.ListDraftExpenseReports(ctx, businessId, journalId)
}

func (gormStore) FindStatementLine(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.BankStatementLine, error) {
	return models.FindBankStatementLine(ctx, businessId, ref, journalId, date, amount)
}

func (gormStore) CreateStatementLine(ctx context.Context, journal *models.BankJournal, input *models.NewBankStatementLine) (*models.BankStatementLine, error) {
	return models.CreateBankStatementLine(ctx, journal, input)
}

func (gormStore) CreateSyncRun(ctx context.Context, run *models.ImportSyncRun) error {
	return models.CreateImportSyncRun(ctx, run)
}

func (gormStore) UpdateSyncRun(ctx context.Context, run *models.ImportSyncRun) error {
	return models.UpdateImportSyncRun(ctx, run)
}

func (gormStore) GetSyncRun(ctx context.Context, businessId string, id uint) (*models.ImportSyncRun, error) {
	return models.GetImportSyncRun(ctx, businessId, id)
}

func (gormStore) ListSyncRuns(ctx context.Context, businessId string, limit int) ([]*models.ImportSyncRun, error) {
	return models.ListImportSyncRuns(ctx, businessId, limit)
}

func (gormStore) CreateSyncError(ctx context.Context, errRec *models.ImportSyncError) error {
	return models.CreateImportSyncError(ctx, errRec)
}

func (gormStore) ListSyncErrors(ctx context.Context, businessId string, runId uint) ([]*models.ImportSyncError, error) {
	return models.ListImportSyncErrors(ctx, businessId, runId)
}
