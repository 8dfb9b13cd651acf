package rindesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/gastos_backend/config"
	"bitbucket.org/mmdatafocus/gastos_backend/models"
	"github.com/sirupsen/logrus"
)

// importer carries the per-run state shared by every entity importer: the
// business scope, the remote client for its token, and the run id errors are
// attached to.
type importer struct {
	store      Store
	client     *rgClient
	log        *logrus.Logger
	businessId string
	runId      uint
}

func newImporter(store Store, client *rgClient, businessId string, runId uint) *importer {
	return &importer{
		store:      store,
		client:     client,
		log:        config.GetLogger(),
		businessId: businessId,
		runId:      runId,
	}
}

// validateJournalAccounts guards materialization: without a suspense and a
// default account no entry can be balanced.
func validateJournalAccounts(journal *models.BankJournal) error {
	if journal.SuspenseAccountId == 0 {
		return &ConfigError{Reason: fmt.Sprintf("journal %s has no suspense account configured", journal.Name)}
	}
	if journal.DefaultAccountId == 0 {
		return &ConfigError{Reason: fmt.Sprintf("journal %s has no default account configured", journal.Name)}
	}
	return nil
}

func (im *importer) recordError(ctx context.Context, entityType string, externalId string, code string, message string, payload any, retryable bool) {
	var payloadJSON []byte
	if payload != nil {
		payloadJSON, _ = json.Marshal(payload)
	}
	errRec := &models.ImportSyncError{
		SyncRunId:   im.runId,
		BusinessId:  im.businessId,
		EntityType:  entityType,
		ExternalId:  externalId,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payloadJSON,
		Retryable:   retryable,
	}
	if err := im.store.CreateSyncError(ctx, errRec); err != nil {
		config.LogError(im.log, "rindesync", "recordError", "persisting sync error", errRec, err)
	}
}

func (im *importer) recordInvalid(ctx context.Context, ie *InvalidRecordError, payload any) {
	im.log.WithFields(logrus.Fields{
		"entity_type": ie.EntityType,
		"external_id": ie.ExternalId,
		"error_code":  ie.Code,
	}).Warn(ie.Reason)
	im.recordError(ctx, ie.EntityType, ie.ExternalId, ie.Code, ie.Reason, payload, false)
}

// resolveContact maps a supplier RUT to a contact id. A missing contact is a
// warning, never an error; the record simply stays unlinked.
func (im *importer) resolveContact(ctx context.Context, rut string, externalId string) int {
	if rut == "" {
		return 0
	}
	contact, err := im.store.FindContactByTaxId(ctx, im.businessId, rut)
	if err != nil {
		config.LogError(im.log, "rindesync", "resolveContact", "looking up contact by tax id", rut, err)
		return 0
	}
	if contact == nil {
		im.log.WithFields(logrus.Fields{"tax_id": rut, "external_id": externalId}).
			Warn("no contact found for supplier tax id, record left unlinked")
		return 0
	}
	return contact.ID
}

// resolveReportLink maps the remote report id carried on an expense to the
// locally imported report. Reports import before their expenses, so in the
// normal flow this resolves; a miss degrades to an unlinked expense.
func (im *importer) resolveReportLink(ctx context.Context, reportRef string, expenseRef string) int {
	if reportRef == "" {
		return 0
	}
	report, err := im.store.FindExpenseReportByReference(ctx, im.businessId, reportRef)
	if err != nil {
		config.LogError(im.log, "rindesync", "resolveReportLink", "looking up report by reference", reportRef, err)
		return 0
	}
	if report == nil {
		im.log.WithFields(logrus.Fields{"report_ref": reportRef, "expense_ref": expenseRef}).
			Warn("no imported report found for expense, link not created")
		return 0
	}
	return report.ID
}

// importExpenses pulls every approved expense matching the query into the
// journal, deduplicating on (reference, journal, date, amount). Returns the
// number of newly created rows; invalid records are skipped and logged.
func (im *importer) importExpenses(ctx context.Context, journal *models.BankJournal, query fetchQuery) (int, int, error) {
	created := 0
	skipped := 0

	err := im.client.forEachExpense(ctx, query, func(raw rgExpense) error {
		norm, err := normalizeExpense(raw)
		if err != nil {
			var ie *InvalidRecordError
			if errors.As(err, &ie) {
				im.recordInvalid(ctx, ie, raw)
				skipped++
				return nil
			}
			return err
		}

		existing, err := im.store.FindExpense(ctx, im.businessId, norm.Reference, journal.ID, norm.Date, norm.Amount)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		expense := &models.Expense{
			BusinessId:    im.businessId,
			Reference:     norm.Reference,
			Date:          norm.Date,
			Amount:        norm.Amount,
			Description:   norm.Description,
			FileURL:       norm.FileURL,
			BankJournalId: journal.ID,
			ReportId:      im.resolveReportLink(ctx, norm.ReportRef, norm.Reference),
			ContactId:     im.resolveContact(ctx, norm.SupplierRut, norm.Reference),
			State:         models.RecordStateDraft,
		}
		if err := im.store.CreateExpense(ctx, expense); err != nil {
			im.recordError(ctx, "expense", norm.Reference, "persist_failed", err.Error(), raw, true)
			skipped++
			return nil
		}
		created++
		return nil
	})
	return created, skipped, err
}

// importMovements is the report-unaware variant feeding journals configured
// with a direct Rindegastos user id.
func (im *importer) importMovements(ctx context.Context, journal *models.BankJournal, query fetchQuery) (int, int, error) {
	created := 0
	skipped := 0

	err := im.client.forEachExpense(ctx, query, func(raw rgExpense) error {
		norm, err := normalizeExpense(raw)
		if err != nil {
			var ie *InvalidRecordError
			if errors.As(err, &ie) {
				im.recordInvalid(ctx, ie, raw)
				skipped++
				return nil
			}
			return err
		}

		existing, err := im.store.FindBankMovement(ctx, im.businessId, norm.Reference, journal.ID, norm.Date, norm.Amount)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		movement := &models.BankMovement{
			BusinessId:    im.businessId,
			Reference:     norm.Reference,
			Date:          norm.Date,
			Amount:        norm.Amount,
			Description:   norm.Description,
			FileURL:       norm.FileURL,
			BankJournalId: journal.ID,
			ContactId:     im.resolveContact(ctx, norm.SupplierRut, norm.Reference),
			State:         models.RecordStateDraft,
		}
		if err := im.store.CreateBankMovement(ctx, movement); err != nil {
			im.recordError(ctx, "movement", norm.Reference, "persist_failed", err.Error(), raw, true)
			skipped++
			return nil
		}
		created++
		return nil
	})
	return created, skipped, err
}

// importReports pulls the approved reports for the window. Each new report
// immediately imports its own expenses (ReportId scoped, dates ignored by the
// remote), then materializes the report line and its children's lines.
func (im *importer) importReports(ctx context.Context, journal *models.BankJournal, query fetchQuery) (int, int, error) {
	created := 0
	skipped := 0

	err := im.client.forEachReport(ctx, query, func(raw rgReport) error {
		norm, err := normalizeReport(raw)
		if err != nil {
			var ie *InvalidRecordError
			if errors.As(err, &ie) {
				im.recordInvalid(ctx, ie, raw)
				skipped++
				return nil
			}
			return err
		}

		existing, err := im.store.FindExpenseReport(ctx, im.businessId, norm.Reference, journal.ID, norm.Date, norm.Amount)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		report := &models.ExpenseReport{
			BusinessId:     im.businessId,
			Reference:      norm.Reference,
			Date:           norm.Date,
			Amount:         norm.Amount,
			ApprovedAmount: norm.ApprovedAmount,
			Note:           norm.Note,
			Title:          norm.Title,
			ReportNumber:   norm.ReportNumber,
			PolicyName:     norm.PolicyName,
			FileURL:        norm.FileURL,
			BankJournalId:  journal.ID,
			State:          models.RecordStateDraft,
		}
		if err := im.store.CreateExpenseReport(ctx, report); err != nil {
			im.recordError(ctx, "report", norm.Reference, "persist_failed", err.Error(), raw, true)
			skipped++
			return nil
		}
		created++

		childQuery := fetchQuery{UserId: query.UserId, ReportId: norm.Reference}
		childCreated, childSkipped, err := im.importExpenses(ctx, journal, childQuery)
		created += childCreated
		skipped += childSkipped
		if err != nil {
			return err
		}

		// Report line first, then its children's lines.
		if err := im.materializeReport(ctx, journal, report); err != nil {
			return err
		}
		children, err := im.store.ListDraftExpensesByReport(ctx, im.businessId, report.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := im.materializeExpense(ctx, journal, child); err != nil {
				return err
			}
		}
		return nil
	})
	return created, skipped, err
}

// materializeReport creates the statement line booking the approved total
// and links the resulting draft entry. Already-materialized lines (matched
// by ref, journal, date, amount) are left untouched.
func (im *importer) materializeReport(ctx context.Context, journal *models.BankJournal, report *models.ExpenseReport) error {
	if report.State == models.RecordStatePosted {
		return nil
	}
	if err := validateJournalAccounts(journal); err != nil {
		return err
	}

	existing, err := im.store.FindStatementLine(ctx, im.businessId, report.Reference, journal.ID, report.Date, report.ApprovedAmount)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	line, err := im.store.CreateStatementLine(ctx, journal, &models.NewBankStatementLine{
		BusinessId:    im.businessId,
		BankJournalId: journal.ID,
		Date:          report.Date,
		PaymentRef:    reportLabel(report.Reference, report.ReportNumber, report.Title, report.Note),
		Ref:           report.Reference,
		Amount:        report.ApprovedAmount,
		FileURL:       report.FileURL,
	})
	if err != nil {
		return err
	}
	return im.store.LinkExpenseReportMove(ctx, report, line.MoveId)
}

// materializeExpense books an imported expense (amount already negative).
func (im *importer) materializeExpense(ctx context.Context, journal *models.BankJournal, expense *models.Expense) error {
	if expense.State == models.RecordStatePosted {
		return nil
	}
	if err := validateJournalAccounts(journal); err != nil {
		return err
	}

	existing, err := im.store.FindStatementLine(ctx, im.businessId, expense.Reference, journal.ID, expense.Date, expense.Amount)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	paymentRef := expense.Description
	if paymentRef == "" {
		paymentRef = expense.Reference
	}
	line, err := im.store.CreateStatementLine(ctx, journal, &models.NewBankStatementLine{
		BusinessId:    im.businessId,
		BankJournalId: journal.ID,
		Date:          expense.Date,
		PaymentRef:    paymentRef,
		Ref:           expense.Reference,
		Amount:        expense.Amount,
		ContactId:     expense.ContactId,
		FileURL:       expense.FileURL,
	})
	if err != nil {
		return err
	}
	return im.store.LinkExpenseMove(ctx, expense, line.MoveId)
}

func (im *importer) materializeMovement(ctx context.Context, journal *models.BankJournal, movement *models.BankMovement) error {
	if movement.State == models.RecordStatePosted {
		return nil
	}
	if err := validateJournalAccounts(journal); err != nil {
		return err
	}

	existing, err := im.store.FindStatementLine(ctx, im.businessId, movement.Reference, journal.ID, movement.Date, movement.Amount)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	paymentRef := movement.Description
	if paymentRef == "" {
		paymentRef = movement.Reference
	}
	line, err := im.store.CreateStatementLine(ctx, journal, &models.NewBankStatementLine{
		BusinessId:    im.businessId,
		BankJournalId: journal.ID,
		Date:          movement.Date,
		PaymentRef:    paymentRef,
		Ref:           movement.Reference,
		Amount:        movement.Amount,
		ContactId:     movement.ContactId,
		FileURL:       movement.FileURL,
	})
	if err != nil {
		return err
	}
	return im.store.LinkBankMovementMove(ctx, movement, line.MoveId)
}

// materializeDraftReports sweeps any report still in draft on the journal,
// report line first, then its pending child expenses. Covers records left
// over when a previous run stopped between import and materialization.
func (im *importer) materializeDraftReports(ctx context.Context, journal *models.BankJournal) error {
	reports, err := im.store.ListDraftExpenseReports(ctx, im.businessId, journal.ID)
	if err != nil {
		return err
	}
	for _, report := range reports {
		if err := im.materializeReport(ctx, journal, report); err != nil {
			return err
		}
		children, err := im.store.ListDraftExpensesByReport(ctx, im.businessId, report.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := im.materializeExpense(ctx, journal, child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (im *importer) materializeDraftMovements(ctx context.Context, journal *models.BankJournal) error {
	movements, err := im.store.ListDraftBankMovements(ctx, im.businessId, journal.ID)
	if err != nil {
		return err
	}
	for _, movement := range movements {
		if err := im.materializeMovement(ctx, journal, movement); err != nil {
			return err
		}
	}
	return nil
}
