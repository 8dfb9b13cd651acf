package rindesync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testBusiness() *models.Business {
	active := true
	return &models.Business{
		ID:               uuid.New(),
		Name:             "Acme SpA",
		BaseCurrencyCode: "CLP",
		RindegastosToken: "tok-acme",
		IsActive:         &active,
	}
}

func reportFlowFixture(t *testing.T) (*fakeStore, *models.BankJournal) {
	t.Helper()
	store := newFakeStore(testBusiness())
	businessId := store.business.ID.String()

	store.employees[1] = &models.Employee{
		ID: 1, BusinessId: businessId, Name: "Ana", WorkEmail: "ana@acme.cl", RindegastosUserId: "777",
	}
	journal := &models.BankJournal{
		ID: 4, BusinessId: businessId, Name: "Rindegastos Ana",
		FeedType: models.BankFeedTypeRindegastos, EmployeeId: 1,
		SuspenseAccountId: 101, DefaultAccountId: 102,
	}
	store.journals[4] = journal
	store.contacts = append(store.contacts, &models.Contact{
		ID: 30, BusinessId: businessId, Name: "Taxi Oficial", TaxId: "76.123.456-7",
	})
	return store, journal
}

// rindegastosStub serves getExpenseReports with one approved report and
// getExpenses with its single child expense, like the real API would for a
// clean window.
func rindegastosStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/getExpenseReports", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("UserId"); got != "777" {
			t.Errorf("getExpenseReports UserId = %q", got)
		}
		w.Write([]byte(`{
			"ExpenseReports":[{
				"Id":"55","SendDate":"2024-03-20",
				"ReportTotal":30000,"ReportTotalApproved":28000,
				"ReportNumber":"12","Title":"Viaje Santiago","Note":"gastos marzo",
				"PolicyName":"Viajes",
				"Files":[{"Large":"https://files.example/55.pdf"}]
			}],
			"Records":{"Pages":1}}`))
	})
	mux.HandleFunc("/getExpenses", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ReportId"); got != "55" {
			t.Errorf("getExpenses ReportId = %q, want 55", got)
			w.Write([]byte(`{"Expenses":[],"Records":{"Pages":1}}`))
			return
		}
		if r.URL.Query().Has("Since") || r.URL.Query().Has("Until") {
			t.Error("getExpenses must not carry Since/Until when ReportId is set")
		}
		w.Write([]byte(`{
			"Expenses":[{
				"Id":"9","IssueDate":"2024-03-15","Total":12500,
				"Category":"Transporte","Supplier":"Taxi Oficial","ReportId":"55",
				"ExtraFields":[
					{"Name":"Tipo de Documento","Value":"Factura Afecta"},
					{"Name":"Numero de Documento","Value":"F-778"},
					{"Name":"Rut Proveedor","Value":"76.123.456-7"}
				],
				"Files":[{"Large":"https://files.example/9.jpg"}]
			}],
			"Records":{"Pages":1}}`))
	})
	return httptest.NewServer(mux)
}

func queueTestRun(t *testing.T, o *Orchestrator, businessId string, journalId int) *models.ImportSyncRun {
	t.Helper()
	since, _ := time.Parse(time.DateOnly, "2024-03-01")
	until, _ := time.Parse(time.DateOnly, "2024-03-31")
	run, err := o.QueueImport(context.Background(), businessId, journalId, since, until, models.SyncTriggeredManual, nil)
	if err != nil {
		t.Fatalf("QueueImport: %v", err)
	}
	return run
}

func TestProcessSyncRun_ReportFlow(t *testing.T) {
	srv := rindegastosStub(t)
	defer srv.Close()
	t.Setenv("RINDEGASTOS_API_BASE_URL", srv.URL)

	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	orchestrator := NewOrchestrator(store)

	run := queueTestRun(t, orchestrator, businessId, journal.ID)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, run.ID); err != nil {
		t.Fatalf("ProcessSyncRun: %v", err)
	}

	if len(store.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(store.reports))
	}
	report := store.reports[0]
	if !report.Amount.Equal(decimal.NewFromInt(30000)) || !report.ApprovedAmount.Equal(decimal.NewFromInt(28000)) {
		t.Fatalf("report amounts = %s / %s", report.Amount, report.ApprovedAmount)
	}
	if !report.TotalDifference().Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("TotalDifference = %s", report.TotalDifference())
	}

	if len(store.expenses) != 1 {
		t.Fatalf("expenses = %d, want 1", len(store.expenses))
	}
	expense := store.expenses[0]
	if !expense.Amount.Equal(decimal.NewFromInt(-12500)) {
		t.Fatalf("expense amount = %s, want -12500", expense.Amount)
	}
	if expense.ReportId != report.ID {
		t.Fatalf("expense.ReportId = %d, want %d", expense.ReportId, report.ID)
	}
	if expense.ContactId != 30 {
		t.Fatalf("expense.ContactId = %d, want 30", expense.ContactId)
	}

	// Report line first, booking the approved total, then the child's line.
	if len(store.lines) != 2 {
		t.Fatalf("statement lines = %d, want 2", len(store.lines))
	}
	if store.lines[0].Ref != "55" || store.lines[1].Ref != "9" {
		t.Fatalf("line order = [%s %s], want [55 9]", store.lines[0].Ref, store.lines[1].Ref)
	}
	if !store.lines[0].Amount.Equal(decimal.NewFromInt(28000)) {
		t.Fatalf("report line amount = %s, want 28000", store.lines[0].Amount)
	}
	if store.lines[0].PaymentRef != "Informe 55-12: Viaje Santiago" {
		t.Fatalf("report line payment ref = %q", store.lines[0].PaymentRef)
	}

	if report.MoveId == 0 || expense.MoveId == 0 {
		t.Fatal("imported records must link their generated entries")
	}
	if report.State != models.RecordStateDraft || expense.State != models.RecordStateDraft {
		t.Fatal("materialized records must stay in draft")
	}

	final := store.runs[run.ID]
	if final.Status != models.SyncRunStatusSuccess {
		t.Fatalf("run status = %s, want success", final.Status)
	}
	if final.RecordsSynced != 2 || final.ErrorCount != 0 {
		t.Fatalf("records/errors = %d/%d", final.RecordsSynced, final.ErrorCount)
	}
	if final.FinishedAt == nil || final.StartedAt == nil {
		t.Fatal("run timestamps not set")
	}
}

func TestProcessSyncRun_SecondRunIsIdempotent(t *testing.T) {
	srv := rindegastosStub(t)
	defer srv.Close()
	t.Setenv("RINDEGASTOS_API_BASE_URL", srv.URL)

	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	orchestrator := NewOrchestrator(store)

	first := queueTestRun(t, orchestrator, businessId, journal.ID)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, first.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second := queueTestRun(t, orchestrator, businessId, journal.ID)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, second.ID); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.reports) != 1 || len(store.expenses) != 1 || len(store.lines) != 2 {
		t.Fatalf("duplicates created: %d reports, %d expenses, %d lines",
			len(store.reports), len(store.expenses), len(store.lines))
	}
	if got := store.runs[second.ID].Status; got != models.SyncRunStatusSuccess {
		t.Fatalf("second run status = %s, want success", got)
	}
}

func TestProcessSyncRun_TerminalRunIsSkipped(t *testing.T) {
	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	orchestrator := NewOrchestrator(store)

	run := queueTestRun(t, orchestrator, businessId, journal.ID)
	run.Status = models.SyncRunStatusSuccess
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, run.ID); err != nil {
		t.Fatalf("ProcessSyncRun: %v", err)
	}
	if len(store.reports) != 0 {
		t.Fatal("terminal run must not execute again")
	}
}

func TestProcessSyncRun_MovementFlow(t *testing.T) {
	reportsCalled := false
	mux := http.NewServeMux()
	mux.HandleFunc("/getExpenseReports", func(w http.ResponseWriter, r *http.Request) {
		reportsCalled = true
		w.Write([]byte(`{"ExpenseReports":[],"Records":{"Pages":1}}`))
	})
	mux.HandleFunc("/getExpenses", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("UserId"); got != "888" {
			t.Errorf("UserId = %q, want 888", got)
		}
		if !r.URL.Query().Has("Since") || !r.URL.Query().Has("Until") {
			t.Error("movement fetch must carry the date window")
		}
		w.Write([]byte(`{
			"Expenses":[{"Id":"301","IssueDate":"2024-03-10","Total":4990,"Category":"Comida"}],
			"Records":{"Pages":1}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv("RINDEGASTOS_API_BASE_URL", srv.URL)

	store := newFakeStore(testBusiness())
	businessId := store.business.ID.String()
	journal := &models.BankJournal{
		ID: 7, BusinessId: businessId, Name: "Rindegastos Movimientos",
		FeedType: models.BankFeedTypeRindegastos, RindegastosUserId: "888",
		SuspenseAccountId: 101, DefaultAccountId: 102,
	}
	store.journals[7] = journal

	orchestrator := NewOrchestrator(store)
	run := queueTestRun(t, orchestrator, businessId, journal.ID)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, run.ID); err != nil {
		t.Fatalf("ProcessSyncRun: %v", err)
	}

	if reportsCalled {
		t.Fatal("movement flow must not fetch expense reports")
	}
	if len(store.movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(store.movements))
	}
	movement := store.movements[0]
	if !movement.Amount.Equal(decimal.NewFromInt(-4990)) {
		t.Fatalf("movement amount = %s, want -4990", movement.Amount)
	}
	if len(store.lines) != 1 || store.lines[0].Ref != "301" {
		t.Fatalf("lines = %v", store.lines)
	}
	if movement.MoveId == 0 || movement.State != models.RecordStateDraft {
		t.Fatalf("movement not materialized: move_id=%d state=%s", movement.MoveId, movement.State)
	}
	if got := store.runs[run.ID].Status; got != models.SyncRunStatusSuccess {
		t.Fatalf("run status = %s, want success", got)
	}
}

func TestProcessSyncRun_MissingSubjectIsConfigError(t *testing.T) {
	store := newFakeStore(testBusiness())
	businessId := store.business.ID.String()
	store.journals[9] = &models.BankJournal{
		ID: 9, BusinessId: businessId, Name: "Sin Sujeto",
		FeedType: models.BankFeedTypeRindegastos,
		SuspenseAccountId: 101, DefaultAccountId: 102,
	}

	orchestrator := NewOrchestrator(store)
	run := queueTestRun(t, orchestrator, businessId, 9)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, run.ID); err != nil {
		t.Fatalf("ProcessSyncRun: %v", err)
	}

	final := store.runs[run.ID]
	if final.Status != models.SyncRunStatusFailed {
		t.Fatalf("run status = %s, want failed", final.Status)
	}
	errs, _ := store.ListSyncErrors(context.Background(), businessId, run.ID)
	if len(errs) != 1 || errs[0].ErrorCode != "missing_configuration" {
		t.Fatalf("errors = %+v", errs)
	}
}

func TestProcessSyncRun_RemoteDownIsFailedRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	t.Setenv("RINDEGASTOS_API_BASE_URL", srv.URL)

	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	orchestrator := NewOrchestrator(store)

	run := queueTestRun(t, orchestrator, businessId, journal.ID)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, run.ID); err != nil {
		t.Fatalf("ProcessSyncRun: %v", err)
	}

	final := store.runs[run.ID]
	if final.Status != models.SyncRunStatusFailed {
		t.Fatalf("run status = %s, want failed", final.Status)
	}
	errs, _ := store.ListSyncErrors(context.Background(), businessId, run.ID)
	if len(errs) != 1 || errs[0].ErrorCode != "remote_unavailable" || !errs[0].Retryable {
		t.Fatalf("errors = %+v", errs)
	}
}

func TestProcessSyncRun_InvalidRecordsAreSkippedAndLogged(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/getExpenseReports", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ExpenseReports":[],"Records":{"Pages":1}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	t.Setenv("RINDEGASTOS_API_BASE_URL", srv.URL)

	store, _ := reportFlowFixture(t)
	businessId := store.business.ID.String()

	// Movement journal fed a mix of one valid and two invalid expenses.
	mux.HandleFunc("/getExpenses", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"Expenses":[
				{"Id":"1","IssueDate":"2024-03-01","Total":100},
				{"Id":"2","IssueDate":"bad-date","Total":100},
				{"Id":"3","IssueDate":"2024-03-01","Total":0}
			],
			"Records":{"Pages":1}}`))
	})
	store.journals[8] = &models.BankJournal{
		ID: 8, BusinessId: businessId, Name: "Mixto",
		FeedType: models.BankFeedTypeRindegastos, RindegastosUserId: "888",
		SuspenseAccountId: 101, DefaultAccountId: 102,
	}

	orchestrator := NewOrchestrator(store)
	run := queueTestRun(t, orchestrator, businessId, 8)
	if err := orchestrator.ProcessSyncRun(context.Background(), businessId, run.ID); err != nil {
		t.Fatalf("ProcessSyncRun: %v", err)
	}

	if len(store.movements) != 1 || store.movements[0].Reference != "1" {
		t.Fatalf("movements = %+v", store.movements)
	}
	final := store.runs[run.ID]
	if final.Status != models.SyncRunStatusPartial {
		t.Fatalf("run status = %s, want partial", final.Status)
	}
	errs, _ := store.ListSyncErrors(context.Background(), businessId, run.ID)
	if len(errs) != 2 {
		t.Fatalf("sync errors = %d, want 2", len(errs))
	}
}

func TestRetrySyncRun(t *testing.T) {
	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	orchestrator := NewOrchestrator(store)

	parent := queueTestRun(t, orchestrator, businessId, journal.ID)
	parent.Status = models.SyncRunStatusFailed

	child, err := orchestrator.RetrySyncRun(context.Background(), businessId, parent.ID)
	if err != nil {
		t.Fatalf("RetrySyncRun: %v", err)
	}
	if child.ParentRunId == nil || *child.ParentRunId != parent.ID {
		t.Fatalf("child.ParentRunId = %v", child.ParentRunId)
	}
	if child.TriggeredBy != models.SyncTriggeredRetry {
		t.Fatalf("TriggeredBy = %s", child.TriggeredBy)
	}
	if child.BankJournalId != parent.BankJournalId {
		t.Fatalf("journal scope not carried over")
	}
	if child.Since == nil || parent.Since == nil || !child.Since.Equal(*parent.Since) {
		t.Fatal("window not carried over")
	}
}

func TestRetrySyncRun_RunningRunIsRejected(t *testing.T) {
	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	orchestrator := NewOrchestrator(store)

	parent := queueTestRun(t, orchestrator, businessId, journal.ID)
	parent.Status = models.SyncRunStatusRunning

	if _, err := orchestrator.RetrySyncRun(context.Background(), businessId, parent.ID); err == nil {
		t.Fatal("expected error retrying a running run")
	}
}
