package rindesync

import (
	"encoding/json"
	"time"
)

// Raw shapes returned by the Rindegastos API. Numeric fields come as
// json.Number because the API is not consistent about quoting them.

type rgRecords struct {
	Pages int `json:"Pages"`
}

type rgExtraField struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type rgFile struct {
	Original string `json:"Original"`
	Medium   string `json:"Medium"`
	Small    string `json:"Small"`
	Large    string `json:"Large"`
}

type rgExpense struct {
	Id          json.Number    `json:"Id"`
	IssueDate   string         `json:"IssueDate"`
	Total       json.Number    `json:"Total"`
	Category    string         `json:"Category"`
	Supplier    string         `json:"Supplier"`
	ReportId    json.Number    `json:"ReportId"`
	ExtraFields []rgExtraField `json:"ExtraFields"`
	Files       []rgFile       `json:"Files"`
}

type rgReport struct {
	Id                  json.Number `json:"Id"`
	SendDate            string      `json:"SendDate"`
	ReportTotal         json.Number `json:"ReportTotal"`
	ReportTotalApproved json.Number `json:"ReportTotalApproved"`
	ReportNumber        json.Number `json:"ReportNumber"`
	Note                string      `json:"Note"`
	PolicyName          string      `json:"PolicyName"`
	Title               string      `json:"Title"`
	Files               []rgFile    `json:"Files"`
}

type rgUser struct {
	Id    json.Number `json:"Id"`
	Email string      `json:"Email"`
}

type expensesResponse struct {
	Expenses []rgExpense `json:"Expenses"`
	Records  rgRecords   `json:"Records"`
}

type reportsResponse struct {
	ExpenseReports []rgReport `json:"ExpenseReports"`
	Records        rgRecords  `json:"Records"`
}

// Handler DTOs.

type ImportRequest struct {
	JournalId int    `json:"journalId" validate:"required"`
	Since     string `json:"since" validate:"required,dateonly"`
	Until     string `json:"until" validate:"required,dateonly"`
	// Inline runs the import synchronously in the request instead of
	// queueing it, mirroring the old wizard behavior.
	Inline bool `json:"inline"`
}

type SyncRunResponse struct {
	ID            uint    `json:"id"`
	Status        string  `json:"status"`
	TriggeredBy   string  `json:"triggeredBy"`
	BankJournalId int     `json:"bankJournalId"`
	StartedAt     *string `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
	DurationMs    int64   `json:"durationMs"`
	RecordsSynced int     `json:"recordsSynced"`
	ErrorCount    int     `json:"errorCount"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	EntityType string `json:"entityType"`
	ExternalId string `json:"externalId"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Errors []SyncErrorResponse `json:"errors"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncRunPayload struct {
	RunId      uint   `json:"run_id"`
	BusinessId string `json:"business_id"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
