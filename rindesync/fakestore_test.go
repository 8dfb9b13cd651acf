package rindesync

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"bitbucket.org/mmdatafocus/gastos_backend/utils"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store. Tests of the import pipeline run against
// it so they need neither MySQL nor Redis.
type fakeStore struct {
	business  *models.Business
	journals  map[int]*models.BankJournal
	employees map[int]*models.Employee
	contacts  []*models.Contact

	movements []*models.BankMovement
	expenses  []*models.Expense
	reports   []*models.ExpenseReport
	lines     []*models.BankStatementLine
	runs      map[uint]*models.ImportSyncRun
	syncErrs  []*models.ImportSyncError

	nextId    int
	nextRunId uint
	// failEntry simulates the ledger refusing to generate an entry for a
	// statement line.
	failEntry bool
}

func newFakeStore(business *models.Business) *fakeStore {
	return &fakeStore{
		business:  business,
		journals:  map[int]*models.BankJournal{},
		employees: map[int]*models.Employee{},
		runs:      map[uint]*models.ImportSyncRun{},
	}
}

func (s *fakeStore) nextID() int {
	s.nextId++
	return s.nextId
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func (s *fakeStore) GetBusiness(ctx context.Context, businessId string) (*models.Business, error) {
	if s.business == nil || s.business.ID.String() != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	return s.business, nil
}

func (s *fakeStore) ListSyncableBusinesses(ctx context.Context) ([]*models.Business, error) {
	if s.business == nil || s.business.RindegastosToken == "" {
		return nil, nil
	}
	return []*models.Business{s.business}, nil
}

func (s *fakeStore) GetBankJournal(ctx context.Context, businessId string, id int) (*models.BankJournal, error) {
	journal, ok := s.journals[id]
	if !ok || journal.BusinessId != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	return journal, nil
}

func (s *fakeStore) ListSyncableBankJournals(ctx context.Context, businessId string) ([]*models.BankJournal, error) {
	var out []*models.BankJournal
	for _, j := range s.journals {
		if j.BusinessId == businessId && j.FeedType == models.BankFeedTypeRindegastos {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *fakeStore) GetEmployee(ctx context.Context, businessId string, id int) (*models.Employee, error) {
	employee, ok := s.employees[id]
	if !ok || employee.BusinessId != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	return employee, nil
}

func (s *fakeStore) UpdateEmployeeUserId(ctx context.Context, businessId string, id int, userId string) error {
	employee, ok := s.employees[id]
	if !ok || employee.BusinessId != businessId {
		return utils.ErrorRecordNotFound
	}
	employee.RindegastosUserId = userId
	return nil
}

func (s *fakeStore) FindContactByTaxId(ctx context.Context, businessId string, taxId string) (*models.Contact, error) {
	for _, c := range s.contacts {
		if c.BusinessId == businessId && c.TaxId == taxId {
			return c, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindBankMovement(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.BankMovement, error) {
	for _, m := range s.movements {
		if m.BusinessId == businessId && m.Reference == ref && m.BankJournalId == journalId &&
			sameDay(m.Date, date) && m.Amount.Equal(amount) {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateBankMovement(ctx context.Context, movement *models.BankMovement) error {
	movement.ID = s.nextID()
	s.movements = append(s.movements, movement)
	return nil
}

func (s *fakeStore) LinkBankMovementMove(ctx context.Context, movement *models.BankMovement, moveId int) error {
	movement.MoveId = moveId
	movement.State = models.RecordStateDraft
	return nil
}

func (s *fakeStore) ListDraftBankMovements(ctx context.Context, businessId string, journalId int) ([]*models.BankMovement, error) {
	var out []*models.BankMovement
	for _, m := range s.movements {
		if m.BusinessId == businessId && m.BankJournalId == journalId && m.State == models.RecordStateDraft {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeStore) FindExpense(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.Expense, error) {
	for _, e := range s.expenses {
		if e.BusinessId == businessId && e.Reference == ref && e.BankJournalId == journalId &&
			sameDay(e.Date, date) && e.Amount.Equal(amount) {
			return e, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	expense.ID = s.nextID()
	s.expenses = append(s.expenses, expense)
	return nil
}

func (s *fakeStore) LinkExpenseMove(ctx context.Context, expense *models.Expense, moveId int) error {
	expense.MoveId = moveId
	expense.State = models.RecordStateDraft
	return nil
}

func (s *fakeStore) ListDraftExpensesByReport(ctx context.Context, businessId string, reportId int) ([]*models.Expense, error) {
	var out []*models.Expense
	for _, e := range s.expenses {
		if e.BusinessId == businessId && e.ReportId == reportId && e.State == models.RecordStateDraft {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) FindExpenseReport(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.ExpenseReport, error) {
	for _, r := range s.reports {
		if r.BusinessId == businessId && r.Reference == ref && r.BankJournalId == journalId &&
			sameDay(r.Date, date) && r.Amount.Equal(amount) {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) FindExpenseReportByReference(ctx context.Context, businessId string, ref string) (*models.ExpenseReport, error) {
	for _, r := range s.reports {
		if r.BusinessId == businessId && r.Reference == ref {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateExpenseReport(ctx context.Context, report *models.ExpenseReport) error {
	report.ID = s.nextID()
	s.reports = append(s.reports, report)
	return nil
}

func (s *fakeStore) LinkExpenseReportMove(ctx context.Context, report *models.ExpenseReport, moveId int) error {
	report.MoveId = moveId
	report.State = models.RecordStateDraft
	return nil
}

func (s *fakeStore) ListDraftExpenseReports(ctx context.Context, businessId string, journalId int) ([]*models.ExpenseReport, error) {
	var out []*models.ExpenseReport
	for _, r := range s.reports {
		if r.BusinessId == businessId && r.BankJournalId == journalId && r.State == models.RecordStateDraft {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) FindStatementLine(ctx context.Context, businessId string, ref string, journalId int, date time.Time, amount decimal.Decimal) (*models.BankStatementLine, error) {
	for _, l := range s.lines {
		if l.BusinessId == businessId && l.Ref == ref && l.BankJournalId == journalId &&
			sameDay(l.Date, date) && l.Amount.Equal(amount) {
			return l, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) CreateStatementLine(ctx context.Context, journal *models.BankJournal, input *models.NewBankStatementLine) (*models.BankStatementLine, error) {
	if s.failEntry {
		return nil, fmt.Errorf("no account entry was generated for statement line %s", input.PaymentRef)
	}
	line := &models.BankStatementLine{
		ID:            s.nextID(),
		BusinessId:    input.BusinessId,
		BankJournalId: input.BankJournalId,
		Date:          input.Date,
		PaymentRef:    input.PaymentRef,
		Ref:           input.Ref,
		Amount:        input.Amount,
		ContactId:     input.ContactId,
		FileURL:       input.FileURL,
	}
	line.MoveId = s.nextID()
	s.lines = append(s.lines, line)
	return line, nil
}

func (s *fakeStore) CreateSyncRun(ctx context.Context, run *models.ImportSyncRun) error {
	s.nextRunId++
	run.ID = s.nextRunId
	if run.Status == "" {
		run.Status = models.SyncRunStatusQueued
	}
	s.runs[run.ID] = run
	return nil
}

func (s *fakeStore) UpdateSyncRun(ctx context.Context, run *models.ImportSyncRun) error {
	s.runs[run.ID] = run
	return nil
}

func (s *fakeStore) GetSyncRun(ctx context.Context, businessId string, id uint) (*models.ImportSyncRun, error) {
	run, ok := s.runs[id]
	if !ok || run.BusinessId != businessId {
		return nil, utils.ErrorRecordNotFound
	}
	return run, nil
}

func (s *fakeStore) ListSyncRuns(ctx context.Context, businessId string, limit int) ([]*models.ImportSyncRun, error) {
	var out []*models.ImportSyncRun
	for id := s.nextRunId; id >= 1; id-- {
		if run, ok := s.runs[id]; ok && run.BusinessId == businessId {
			out = append(out, run)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) CreateSyncError(ctx context.Context, errRec *models.ImportSyncError) error {
	errRec.ID = uint(s.nextID())
	s.syncErrs = append(s.syncErrs, errRec)
	return nil
}

func (s *fakeStore) ListSyncErrors(ctx context.Context, businessId string, runId uint) ([]*models.ImportSyncError, error) {
	var out []*models.ImportSyncError
	for _, e := range s.syncErrs {
		if e.BusinessId == businessId && e.SyncRunId == runId {
			out = append(out, e)
		}
	}
	return out, nil
}
