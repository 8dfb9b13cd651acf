package rindesync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func newTestClient(baseUrl string, token string) *rgClient {
	c := newRgClient(token)
	c.baseUrl = baseUrl
	return c
}

func TestFetchQueryValues_DateWindow(t *testing.T) {
	q := fetchQuery{UserId: "77", Since: "2024-01-01", Until: "2024-01-31"}
	v := q.values(3)

	if got := v.Get("Status"); got != "1" {
		t.Fatalf("Status = %q, want 1", got)
	}
	if got := v.Get("ResultsPerPage"); got != "100" {
		t.Fatalf("ResultsPerPage = %q, want 100", got)
	}
	if got := v.Get("Page"); got != "3" {
		t.Fatalf("Page = %q, want 3", got)
	}
	if got := v.Get("UserId"); got != "77" {
		t.Fatalf("UserId = %q, want 77", got)
	}
	if v.Get("Since") != "2024-01-01" || v.Get("Until") != "2024-01-31" {
		t.Fatalf("date window not forwarded: %v", v)
	}
}

func TestFetchQueryValues_ReportIdSupersedesDates(t *testing.T) {
	q := fetchQuery{UserId: "77", Since: "2024-01-01", Until: "2024-01-31", ReportId: "55"}
	v := q.values(1)

	if got := v.Get("ReportId"); got != "55" {
		t.Fatalf("ReportId = %q, want 55", got)
	}
	if v.Has("Since") || v.Has("Until") {
		t.Fatalf("Since/Until must be dropped when ReportId is set: %v", v)
	}
}

func TestForEachExpense_PaginatesUntilReportedPageCount(t *testing.T) {
	var pagesSeen []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("Page"))
		pagesSeen = append(pagesSeen, page)
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case 1:
			w.Write([]byte(`{"Expenses":[{"Id":"1","IssueDate":"2024-02-01","Total":100}],"Records":{"Pages":2}}`))
		default:
			w.Write([]byte(`{"Expenses":[{"Id":"2","IssueDate":"2024-02-02","Total":200}],"Records":{"Pages":2}}`))
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok-123")
	var refs []string
	err := client.forEachExpense(context.Background(), fetchQuery{UserId: "9"}, func(e rgExpense) error {
		refs = append(refs, e.Id.String())
		return nil
	})
	if err != nil {
		t.Fatalf("forEachExpense: %v", err)
	}
	if len(pagesSeen) != 2 || pagesSeen[0] != 1 || pagesSeen[1] != 2 {
		t.Fatalf("pages fetched = %v, want [1 2]", pagesSeen)
	}
	if len(refs) != 2 || refs[0] != "1" || refs[1] != "2" {
		t.Fatalf("refs = %v", refs)
	}
}

func TestForEachExpense_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"Expenses":[],"Records":{"Pages":5}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	err := client.forEachExpense(context.Background(), fetchQuery{}, func(e rgExpense) error {
		t.Fatal("callback must not run for an empty page")
		return nil
	})
	if err != nil {
		t.Fatalf("forEachExpense: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestGetJson_Non2xxIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	err := client.forEachReport(context.Background(), fetchQuery{}, func(rgReport) error { return nil })
	if !IsRemoteError(err) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("Email"); got != "ana@acme.cl" {
			t.Errorf("Email = %q", got)
		}
		w.Write([]byte(`{"Id":321,"Email":"ana@acme.cl"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	userId, err := client.getUserByEmail(context.Background(), "ana@acme.cl")
	if err != nil {
		t.Fatalf("getUserByEmail: %v", err)
	}
	if userId != "321" {
		t.Fatalf("userId = %q, want 321", userId)
	}
}

func TestGetUserByEmail_UnknownUserIsBlank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Id":0}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL, "tok")
	userId, err := client.getUserByEmail(context.Background(), "nobody@acme.cl")
	if err != nil {
		t.Fatalf("getUserByEmail: %v", err)
	}
	if userId != "" {
		t.Fatalf("userId = %q, want empty", userId)
	}
}
