// Package salesforce is a minimal Salesforce REST client covering the
// two operations the synchronizer needs: upsert-by-external-id and SOQL
// query. Sessions are established with the username/password/security
// token SOAP login, the same flow the previous tooling used.
package salesforce

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

// Config holds the credentials and endpoints for one Salesforce session.
type Config struct {
	Username      string
	Password      string
	SecurityToken string

	// Domain selects the login host: "login" for production, "test" for
	// sandboxes, or a My Domain prefix.
	Domain string

	// ClientID, when set, is reported as the API client in login call
	// options.
	ClientID string

	// APIVersion is the REST API version, e.g. "59.0".
	APIVersion string

	Timeout time.Duration

	// LoginURL overrides the derived login endpoint. Used in tests.
	LoginURL string
}

// Client is an authenticated Salesforce REST API session.
type Client struct {
	httpClient  *http.Client
	instanceURL string
	sessionID   string
	apiVersion  string
}

// UpsertResult reports the outcome of an upsert-by-external-id call.
// ID is only populated when the record was created; updates return no
// identifier and callers needing one must query by external id.
type UpsertResult struct {
	Created bool
	ID      string
}

// QueryResult holds the records returned by a SOQL query.
type QueryResult struct {
	TotalSize int              `json:"totalSize"`
	Done      bool             `json:"done"`
	Records   []map[string]any `json:"records"`
}

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int
	Messages   []APIMessage
}

// APIMessage is one error entry from the API response body.
type APIMessage struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("salesforce: HTTP %d", e.StatusCode)
	}
	parts := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		parts[i] = fmt.Sprintf("%s: %s", m.ErrorCode, m.Message)
	}
	return fmt.Sprintf("salesforce: HTTP %d: %s", e.StatusCode, strings.Join(parts, "; "))
}

// Login authenticates against the SOAP login endpoint and returns a
// REST client bound to the instance the login response names.
func Login(ctx context.Context, cfg Config) (*Client, error) {
	loginURL := cfg.LoginURL
	if loginURL == "" {
		loginURL = fmt.Sprintf("https://%s.salesforce.com/services/Soap/u/%s", cfg.Domain, cfg.APIVersion)
	}

	body := loginEnvelope(cfg.Username, cfg.Password+cfg.SecurityToken, cfg.ClientID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("salesforce login: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", "login")

	httpClient := &http.Client{Timeout: cfg.Timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("salesforce login: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("salesforce login: read response: %w", err)
	}

	result, err := parseLoginResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("salesforce login: %w", err)
	}

	instanceURL, err := instanceFromServerURL(result.serverURL)
	if err != nil {
		return nil, fmt.Errorf("salesforce login: %w", err)
	}

	return &Client{
		httpClient:  httpClient,
		instanceURL: instanceURL,
		sessionID:   result.sessionID,
		apiVersion:  cfg.APIVersion,
	}, nil
}

// InstanceURL returns the base URL of the instance this session is
// bound to.
func (c *Client) InstanceURL() string { return c.instanceURL }

// Upsert creates or updates one record keyed by an external id field.
// Repeated calls with an identical body converge to the same stored
// state: HTTP 201 reports a create, 200/204 report an update.
func (c *Client) Upsert(ctx context.Context, object, externalIDField, externalID string, body map[string]any) (UpsertResult, error) {
	endpoint := fmt.Sprintf("%s/services/data/v%s/sobjects/%s/%s/%s",
		c.instanceURL, c.apiVersion, object, externalIDField, url.PathEscape(externalID))

	payload, err := json.Marshal(body)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("salesforce upsert %s: %w", object, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("salesforce upsert %s: %w", object, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("salesforce upsert %s: %w", object, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var out struct {
			ID      string `json:"id"`
			Created bool   `json:"created"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
			return UpsertResult{}, fmt.Errorf("salesforce upsert %s: decode response: %w", object, err)
		}
		created := out.Created || resp.StatusCode == http.StatusCreated
		return UpsertResult{Created: created, ID: out.ID}, nil

	case http.StatusNoContent:
		// Updated an existing record; the response carries no id.
		return UpsertResult{Created: false}, nil

	default:
		return UpsertResult{}, c.apiError(resp)
	}
}

// Query runs a SOQL query and returns the first page of records.
func (c *Client) Query(ctx context.Context, soql string) (QueryResult, error) {
	endpoint := fmt.Sprintf("%s/services/data/v%s/query?q=%s",
		c.instanceURL, c.apiVersion, url.QueryEscape(soql))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return QueryResult{}, fmt.Errorf("salesforce query: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return QueryResult{}, fmt.Errorf("salesforce query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return QueryResult{}, c.apiError(resp)
	}

	var out QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return QueryResult{}, fmt.Errorf("salesforce query: decode response: %w", err)
	}
	return out, nil
}

// apiError drains a non-2xx response into an APIError.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(resp.Body)
	if err == nil && len(raw) > 0 {
		// The API returns an array of messages; a decode failure still
		// leaves the status code.
		_ = json.Unmarshal(raw, &apiErr.Messages)
	}
	return apiErr
}

// EscapeSOQL escapes a string for interpolation into a single-quoted
// SOQL string literal.
func EscapeSOQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}
