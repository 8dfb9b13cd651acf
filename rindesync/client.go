package rindesync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

const defaultApiBaseUrl = "https://api.rindegastos.com/v1"

const resultsPerPage = 100

// rgClient talks to the Rindegastos REST API for a single business token.
type rgClient struct {
	baseUrl string
	token   string
	http    *http.Client
}

func newRgClient(token string) *rgClient {
	baseUrl := os.Getenv("RINDEGASTOS_API_BASE_URL")
	if baseUrl == "" {
		baseUrl = defaultApiBaseUrl
	}
	return &rgClient{
		baseUrl: baseUrl,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// fetchQuery carries the filters the remote endpoints accept. When ReportId
// is set the date window is ignored, the API treats them as exclusive.
type fetchQuery struct {
	UserId   string
	Since    string
	Until    string
	ReportId string
}

func (q fetchQuery) values(page int) url.Values {
	v := url.Values{}
	v.Set("Status", "1")
	v.Set("ResultsPerPage", strconv.Itoa(resultsPerPage))
	v.Set("Page", strconv.Itoa(page))
	if q.UserId != "" {
		v.Set("UserId", q.UserId)
	}
	if q.ReportId != "" {
		v.Set("ReportId", q.ReportId)
	} else {
		if q.Since != "" {
			v.Set("Since", q.Since)
		}
		if q.Until != "" {
			v.Set("Until", q.Until)
		}
	}
	return v
}

func (c *rgClient) getJson(ctx context.Context, endpoint string, query url.Values, out any) error {
	reqUrl := c.baseUrl + "/" + endpoint
	if len(query) > 0 {
		reqUrl += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl, nil)
	if err != nil {
		return &RemoteError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &RemoteError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RemoteError{
			Endpoint: endpoint,
			Err:      fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Endpoint: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// forEachExpense walks every page of getExpenses for the query and calls fn
// for each approved expense. Pagination stops on an empty page or once the
// reported page count is reached.
func (c *rgClient) forEachExpense(ctx context.Context, query fetchQuery, fn func(rgExpense) error) error {
	for page := 1; ; page++ {
		var resp expensesResponse
		if err := c.getJson(ctx, "getExpenses", query.values(page), &resp); err != nil {
			return err
		}
		if len(resp.Expenses) == 0 {
			return nil
		}
		for _, exp := range resp.Expenses {
			if err := fn(exp); err != nil {
				return err
			}
		}
		if page >= resp.Records.Pages {
			return nil
		}
	}
}

// forEachReport walks every page of getExpenseReports for the query.
func (c *rgClient) forEachReport(ctx context.Context, query fetchQuery, fn func(rgReport) error) error {
	for page := 1; ; page++ {
		var resp reportsResponse
		if err := c.getJson(ctx, "getExpenseReports", query.values(page), &resp); err != nil {
			return err
		}
		if len(resp.ExpenseReports) == 0 {
			return nil
		}
		for _, rep := range resp.ExpenseReports {
			if err := fn(rep); err != nil {
				return err
			}
		}
		if page >= resp.Records.Pages {
			return nil
		}
	}
}

// getUserByEmail resolves the Rindegastos user id for an employee email.
// Returns "" when the remote answers with no usable id.
func (c *rgClient) getUserByEmail(ctx context.Context, email string) (string, error) {
	v := url.Values{}
	v.Set("Email", email)
	var user rgUser
	if err := c.getJson(ctx, "getUser", v, &user); err != nil {
		return "", err
	}
	id := user.Id.String()
	if id == "" || id == "0" {
		return "", nil
	}
	return id, nil
}
