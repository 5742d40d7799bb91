package healthapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/healthwatch/healthwatch/application/port/outbound"
	"github.com/healthwatch/healthwatch/domain"
	"github.com/healthwatch/healthwatch/infrastructure/service/logger"
)

// Doer abstracts the HTTP client so tests can substitute a fake.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the event-source collaborator over HTTP under the
// delegated credentials of the account being synced. Every endpoint that
// pages uses an opaque next_token; an empty token means the final page.
type Client struct {
	baseURL    string
	httpClient Doer
	logger     logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// NewClientWithDoer is used by tests.
func NewClientWithDoer(baseURL string, doer Doer, log logger.Logger) *Client {
	return &Client{baseURL: baseURL, httpClient: doer, logger: log}
}

func setCredentials(req *http.Request, creds *domain.DelegatedCredentials) {
	req.Header.Set("X-Access-Key-Id", creds.AccessKeyID)
	req.Header.Set("X-Secret-Access-Key", creds.SecretAccessKey)
	req.Header.Set("X-Session-Token", creds.SessionToken)
}

type describeEventsRequest struct {
	From                time.Time `json:"from"`
	To                  time.Time `json:"to"`
	EventStatusCodes    []string  `json:"event_status_codes"`
	Services            []string  `json:"services,omitempty"`
	Regions             []string  `json:"regions,omitempty"`
	EventTypeCodes      []string  `json:"event_type_codes,omitempty"`
	EventTypeCategories []string  `json:"event_type_categories,omitempty"`
	NextToken           string    `json:"next_token,omitempty"`
}

type describeEventsResponse struct {
	Events    []domain.EventSummary `json:"events"`
	NextToken string                `json:"next_token,omitempty"`
}

func (c *Client) DescribeEvents(ctx context.Context, creds *domain.DelegatedCredentials, window domain.Window, filter outbound.EventFilter, nextToken string) (*outbound.EventPage, error) {
	body := describeEventsRequest{
		From: window.From,
		To:   window.To,
		// The catalog tracks the full lifecycle, so every status is
		// requested; filters only ever narrow the window.
		EventStatusCodes:    []string{domain.StatusOpen, domain.StatusUpcoming, domain.StatusClosed},
		Services:            filter.Services,
		Regions:             filter.Regions,
		EventTypeCodes:      filter.EventTypeCodes,
		EventTypeCategories: filter.EventTypeCategories,
		NextToken:           nextToken,
	}

	var result describeEventsResponse
	if err := c.post(ctx, creds, "/v1/events/describe", body, &result); err != nil {
		return nil, err
	}
	return &outbound.EventPage{Events: result.Events, NextToken: result.NextToken}, nil
}

type describeDetailsRequest struct {
	EventArns []string `json:"event_arns"`
}

type describeDetailsResponse struct {
	Successful []domain.EventDetail `json:"successful"`
	FailedArns []string             `json:"failed_arns,omitempty"`
}

func (c *Client) DescribeEventDetails(ctx context.Context, creds *domain.DelegatedCredentials, eventArns []string) (*outbound.DetailResult, error) {
	if len(eventArns) > outbound.DetailBatchLimit {
		return nil, fmt.Errorf("detail request exceeds batch limit: %d > %d", len(eventArns), outbound.DetailBatchLimit)
	}

	var result describeDetailsResponse
	if err := c.post(ctx, creds, "/v1/events/details", describeDetailsRequest{EventArns: eventArns}, &result); err != nil {
		return nil, err
	}
	return &outbound.DetailResult{Details: result.Successful, FailedArns: result.FailedArns}, nil
}

type affectedAccountsResponse struct {
	AccountIDs []string `json:"account_ids"`
	NextToken  string   `json:"next_token,omitempty"`
}

func (c *Client) DescribeAffectedAccounts(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, nextToken string) (*outbound.AccountPage, error) {
	params := url.Values{}
	params.Set("event_arn", eventArn)
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	var result affectedAccountsResponse
	if err := c.get(ctx, creds, "/v1/events/affected-accounts", params, &result); err != nil {
		return nil, err
	}
	return &outbound.AccountPage{AccountIDs: result.AccountIDs, NextToken: result.NextToken}, nil
}

type affectedEntitiesResponse struct {
	Entities  []domain.AffectedEntity `json:"entities"`
	NextToken string                  `json:"next_token,omitempty"`
}

func (c *Client) DescribeAffectedEntities(ctx context.Context, creds *domain.DelegatedCredentials, eventArn, accountID, nextToken string) (*outbound.EntityPage, error) {
	params := url.Values{}
	params.Set("event_arn", eventArn)
	params.Set("account_id", accountID)
	if nextToken != "" {
		params.Set("next_token", nextToken)
	}

	var result affectedEntitiesResponse
	if err := c.get(ctx, creds, "/v1/events/affected-entities", params, &result); err != nil {
		return nil, err
	}
	return &outbound.EntityPage{Entities: result.Entities, NextToken: result.NextToken}, nil
}

func (c *Client) post(ctx context.Context, creds *domain.DelegatedCredentials, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setCredentials(req, creds)

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, creds *domain.DelegatedCredentials, path string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	setCredentials(req, creds)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("event source unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event source returned %d for %s", resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode event source response: %w", err)
	}
	return nil
}
