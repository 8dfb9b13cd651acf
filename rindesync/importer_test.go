package rindesync

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"github.com/shopspring/decimal"
)

func TestValidateJournalAccounts(t *testing.T) {
	journal := &models.BankJournal{Name: "J"}
	if err := validateJournalAccounts(journal); !IsConfigError(err) {
		t.Fatalf("no suspense account: err = %v, want ConfigError", err)
	}
	journal.SuspenseAccountId = 101
	if err := validateJournalAccounts(journal); !IsConfigError(err) {
		t.Fatalf("no default account: err = %v, want ConfigError", err)
	}
	journal.DefaultAccountId = 102
	if err := validateJournalAccounts(journal); err != nil {
		t.Fatalf("fully configured: err = %v", err)
	}
}

func TestMaterializeReport_MissingEntryIsFatal(t *testing.T) {
	store, journal := reportFlowFixture(t)
	store.failEntry = true
	im := newImporter(store, nil, store.business.ID.String(), 1)

	date, _ := time.Parse(time.DateOnly, "2024-03-20")
	report := &models.ExpenseReport{
		ID: 1, BusinessId: store.business.ID.String(), Reference: "55",
		Date: date, ApprovedAmount: decimal.NewFromInt(28000),
		BankJournalId: journal.ID, State: models.RecordStateDraft,
	}
	if err := im.materializeReport(context.Background(), journal, report); err == nil {
		t.Fatal("expected error when no entry is generated for the line")
	}
	if report.MoveId != 0 {
		t.Fatal("report must not link an entry that was never created")
	}
}

func TestMaterializeExpense_ExistingLineIsNotDuplicated(t *testing.T) {
	store, journal := reportFlowFixture(t)
	businessId := store.business.ID.String()
	im := newImporter(store, nil, businessId, 1)

	date, _ := time.Parse(time.DateOnly, "2024-03-15")
	amount := decimal.NewFromInt(-12500)
	store.lines = append(store.lines, &models.BankStatementLine{
		ID: 1, BusinessId: businessId, BankJournalId: journal.ID,
		Ref: "9", Date: date, Amount: amount, MoveId: 2,
	})

	expense := &models.Expense{
		ID: 3, BusinessId: businessId, Reference: "9", Date: date,
		Amount: amount, BankJournalId: journal.ID, State: models.RecordStateDraft,
	}
	if err := im.materializeExpense(context.Background(), journal, expense); err != nil {
		t.Fatalf("materializeExpense: %v", err)
	}
	if len(store.lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(store.lines))
	}
}

func TestMaterializeExpense_PostedIsSkipped(t *testing.T) {
	store, journal := reportFlowFixture(t)
	im := newImporter(store, nil, store.business.ID.String(), 1)

	expense := &models.Expense{
		ID: 3, BusinessId: store.business.ID.String(), Reference: "9",
		BankJournalId: journal.ID, State: models.RecordStatePosted,
	}
	if err := im.materializeExpense(context.Background(), journal, expense); err != nil {
		t.Fatalf("materializeExpense: %v", err)
	}
	if len(store.lines) != 0 {
		t.Fatal("posted records must not be re-materialized")
	}
}
