package rindesync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	labelNoCategory = "Sin categoría"
	labelNoSupplier = "Sin proveedor"
	labelNoDocType  = "Sin tipo"
)

const (
	extraFieldDocType     = "Tipo de Documento"
	extraFieldDocNumber   = "Numero de Documento"
	extraFieldSupplierRut = "Rut Proveedor"
)

// contactDocTypes are the document types that carry a supplier RUT worth
// resolving against the contact book.
var contactDocTypes = map[string]bool{
	"Factura Afecta": true,
	"Factura Exenta": true,
	"Honorarios":     true,
}

// normalizedExpense is an approved expense already validated and converted,
// ready to be persisted. Amount is negated: expenses are money going out.
type normalizedExpense struct {
	Reference   string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	DocType     string
	SupplierRut string
	ReportRef   string
	FileURL     string
}

// normalizedReport mirrors normalizedExpense for expense reports. Amount is
// ReportTotal as sent; ApprovedAmount is what actually gets booked.
type normalizedReport struct {
	Reference      string
	Date           time.Time
	Amount         decimal.Decimal
	ApprovedAmount decimal.Decimal
	Note           string
	Title          string
	ReportNumber   string
	PolicyName     string
	FileURL        string
}

func extraField(fields []rgExtraField, name string) string {
	for _, f := range fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func firstLargeFile(files []rgFile) string {
	if len(files) == 0 {
		return ""
	}
	return files[0].Large
}

func parseDateOnly(s string) (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseAmount(n json.Number) (decimal.Decimal, bool) {
	s := n.String()
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeExpense validates and converts one raw expense. It returns an
// InvalidRecordError when the record lacks an id, a parseable issue date or
// a non-zero total.
func normalizeExpense(raw rgExpense) (*normalizedExpense, error) {
	ref := raw.Id.String()
	if ref == "" || ref == "0" {
		return nil, &InvalidRecordError{
			EntityType: "expense", ExternalId: ref,
			Code: "missing_id", Reason: "expense has no id",
		}
	}
	date, ok := parseDateOnly(raw.IssueDate)
	if !ok {
		return nil, &InvalidRecordError{
			EntityType: "expense", ExternalId: ref,
			Code: "invalid_date", Reason: fmt.Sprintf("unparseable issue date %q", raw.IssueDate),
		}
	}
	total, ok := parseAmount(raw.Total)
	if !ok {
		return nil, &InvalidRecordError{
			EntityType: "expense", ExternalId: ref,
			Code: "invalid_total", Reason: fmt.Sprintf("missing or zero total %q", raw.Total.String()),
		}
	}

	category := raw.Category
	if category == "" {
		category = labelNoCategory
	}
	supplier := raw.Supplier
	if supplier == "" {
		supplier = labelNoSupplier
	}
	docType := ""
	if v := extraField(raw.ExtraFields, extraFieldDocType); v != "" {
		docType = v
	} else if hasExtraField(raw.ExtraFields, extraFieldDocType) {
		docType = labelNoDocType
	}

	label := fmt.Sprintf("%s %s %s", category, supplier, docType)
	if num := extraField(raw.ExtraFields, extraFieldDocNumber); num != "" {
		label += " - " + num
	}

	rut := ""
	if contactDocTypes[docType] {
		rut = extraField(raw.ExtraFields, extraFieldSupplierRut)
	}

	reportRef := raw.ReportId.String()
	if reportRef == "0" {
		reportRef = ""
	}

	return &normalizedExpense{
		Reference:   ref,
		Date:        date,
		Amount:      total.Neg(),
		Description: label,
		DocType:     docType,
		SupplierRut: rut,
		ReportRef:   reportRef,
		FileURL:     firstLargeFile(raw.Files),
	}, nil
}

func hasExtraField(fields []rgExtraField, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// normalizeReport validates and converts one raw expense report.
func normalizeReport(raw rgReport) (*normalizedReport, error) {
	ref := raw.Id.String()
	if ref == "" || ref == "0" {
		return nil, &InvalidRecordError{
			EntityType: "report", ExternalId: ref,
			Code: "missing_id", Reason: "report has no id",
		}
	}
	date, ok := parseDateOnly(raw.SendDate)
	if !ok {
		return nil, &InvalidRecordError{
			EntityType: "report", ExternalId: ref,
			Code: "invalid_date", Reason: fmt.Sprintf("unparseable send date %q", raw.SendDate),
		}
	}
	total, ok := parseAmount(raw.ReportTotal)
	if !ok {
		return nil, &InvalidRecordError{
			EntityType: "report", ExternalId: ref,
			Code: "invalid_total", Reason: fmt.Sprintf("missing or zero report total %q", raw.ReportTotal.String()),
		}
	}
	approved := decimal.Zero
	if a, ok := parseAmount(raw.ReportTotalApproved); ok {
		approved = a
	}

	number := raw.ReportNumber.String()
	if number == "0" {
		number = ""
	}

	return &normalizedReport{
		Reference:      ref,
		Date:           date,
		Amount:         total,
		ApprovedAmount: approved,
		Note:           raw.Note,
		Title:          raw.Title,
		ReportNumber:   number,
		PolicyName:     raw.PolicyName,
		FileURL:        firstLargeFile(raw.Files),
	}, nil
}

// reportLabel is the payment reference written to the statement line for a
// report. With both a number and a title it reads like
// "Informe 55-12: Viaje Santiago"; otherwise the note, then the bare id.
func reportLabel(ref string, number string, title string, note string) string {
	if number != "" && title != "" {
		return fmt.Sprintf("Informe %s-%s: %s", ref, number, title)
	}
	if note != "" {
		return note
	}
	return ref
}
