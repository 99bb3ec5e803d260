// Package client wraps HTTP access to the registration API for the
// terminal booking client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/open-day-registration/internal/registration"
	"github.com/iliyamo/open-day-registration/internal/schedule"
)

const defaultBaseURL = "http://localhost:8080"

// Client talks to the registration API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// APIError is returned when the API answers with an error envelope or a
// non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "registration api error"
	}
	return fmt.Sprintf("registration api error: %s", e.Message)
}

// IsSeatConflict reports whether the error is the 409 returned when the
// requested seat was booked by someone else first.
func IsSeatConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// New creates a Client for the given base URL.  An empty base URL targets
// a local server; a nil httpClient gets a default with a timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Schedule is the decoded schedule read response.
type Schedule struct {
	Schedule   *schedule.ScheduleMap
	TotalSeats int
}

// FetchSchedule retrieves the selectable dates and times plus the total
// declared capacity.  The schedule's JSON key order is preserved by the
// ScheduleMap decoder, so Dates()[0] is the server's first date.
func (c *Client) FetchSchedule(ctx context.Context) (Schedule, error) {
	var out struct {
		Status   string                `json:"status"`
		Message  string                `json:"message"`
		Schedule *schedule.ScheduleMap `json:"schedule"`
		Total    string                `json:"total"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/api/schedule", &out); err != nil {
		return Schedule{}, err
	}
	if out.Status != "success" {
		return Schedule{}, &APIError{Message: orDefault(out.Message, "schedule fetch failed")}
	}
	total, err := strconv.Atoi(strings.TrimSpace(out.Total))
	if err != nil {
		total = 0
	}
	if out.Schedule == nil {
		out.Schedule = schedule.NewScheduleMap()
	}
	return Schedule{Schedule: out.Schedule, TotalSeats: total}, nil
}

// FetchTakenSeats retrieves the taken-seat set for one session.
func (c *Client) FetchTakenSeats(ctx context.Context, date, start string) ([]int, int, error) {
	q := url.Values{"date": {date}, "time": {start}}
	var out struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		TakenSeats []int  `json:"takenSeats"`
		Count      int    `json:"count"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/api/register?"+q.Encode(), &out); err != nil {
		return nil, 0, err
	}
	if out.Status != "success" {
		return nil, 0, &APIError{Message: orDefault(out.Message, "availability fetch failed")}
	}
	return out.TakenSeats, out.Count, nil
}

// Register submits a registration.  A seat conflict surfaces as an
// APIError with status 409; use IsSeatConflict to detect it.
func (c *Client) Register(ctx context.Context, reg registration.Registration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/register", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	if out.Status != "success" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    orDefault(out.Message, resp.Status),
		}
	}
	return nil
}

// getJSON issues a GET and decodes the JSON body.  Non-2xx responses with
// a decodable error envelope keep the server's message.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return json.Unmarshal(body, out)
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
