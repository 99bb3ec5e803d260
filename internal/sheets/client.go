// Package sheets implements a minimal Google Sheets values client used as
// the tabular store behind the schedule and registration endpoints.  Only
// the two value operations the service needs are exposed: reading a fixed
// range and appending a row.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://sheets.googleapis.com"

// Client talks to the Sheets values API for a single spreadsheet.  All
// requests carry a bearer token minted from the service-account key.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	tokens        *tokenSource
}

// NewClient builds a Client for the given spreadsheet.  When httpClient is
// nil a default client with a request timeout is used.
func NewClient(account *ServiceAccount, spreadsheetID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       defaultBaseURL,
		spreadsheetID: spreadsheetID,
		tokens:        newTokenSource(account, httpClient),
	}
}

// valueRange mirrors the values.get response body.  The API returns every
// cell as its formatted string value, so a string matrix is sufficient.
type valueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

// ReadRange fetches the cell values for an A1-notation range such as
// "Schedules!A2:D".  A range with no data rows yields an empty slice, not
// an error.
func (c *Client) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(a1))
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("sheets: decode values response: %w", err)
	}
	return vr.Values, nil
}

// AppendRow appends a single row to the table located at the given range.
// The API finds the first empty row of the table and writes there, which
// is the only write primitive the registration flow needs.
func (c *Client) AppendRow(ctx context.Context, a1 string, row []string) error {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, url.PathEscape(c.spreadsheetID), url.PathEscape(a1))
	payload, err := json.Marshal(map[string]any{"values": [][]string{row}})
	if err != nil {
		return err
	}
	if _, err := c.do(ctx, http.MethodPost, endpoint, payload); err != nil {
		return err
	}
	return nil
}

// do issues an authenticated request and returns the response body.  Any
// non-2xx status is converted into an error carrying the status line and a
// snippet of the body so callers can surface a descriptive message.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sheets: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, fmt.Errorf("sheets: %s %s: %s", resp.Status, a1FromEndpoint(endpoint), snippet)
	}
	return body, nil
}

// a1FromEndpoint extracts the escaped range from a values endpoint for
// error messages.  Best effort only.
func a1FromEndpoint(endpoint string) string {
	i := strings.Index(endpoint, "/values/")
	if i < 0 {
		return endpoint
	}
	tail := endpoint[i+len("/values/"):]
	if j := strings.IndexAny(tail, ":?"); j >= 0 {
		tail = tail[:j]
	}
	if unescaped, err := url.PathUnescape(tail); err == nil {
		return unescaped
	}
	return tail
}
