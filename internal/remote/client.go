// Package remote is the console's gateway to the incapacity server: one
// HTTP client with a base address and a bearer-credential interceptor, plus
// a typed wrapper per server resource. Requests are never retried and never
// cancelled beyond the caller's context; every failure is terminal for the
// user action that triggered it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"incaweb/internal/domain/finance"
	"incaweb/internal/domain/incapacity"
)

// Client talks to the remote REST API. The access token is pushed in by the
// session store on login, rehydration and logout; every request that has
// one attached carries it as a bearer credential. The token is swapped
// while handler goroutines have requests in flight, so access is locked.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu          sync.RWMutex
	accessToken string
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	client.httpClient.Transport = &bearerTransport{client: client, next: http.DefaultTransport}
	return client
}

// SetAccessToken swaps the credential attached to outgoing requests. An
// empty token means requests go out unauthenticated.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// bearerTransport attaches the current access token to every outgoing
// request, uniformly, the way a request interceptor would.
type bearerTransport struct {
	client *Client
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.client.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return t.next.RoundTrip(req)
}

// Login exchanges credentials for an access/refresh pair.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	var pair TokenPair
	payload := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token/", payload, &pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// ListIncapacities fetches all records. The server may answer with a bare
// array or a results envelope; both are accepted.
func (c *Client) ListIncapacities(ctx context.Context) ([]incapacity.Incapacity, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/incapacities/", nil, &raw); err != nil {
		return nil, err
	}

	var records []incapacity.Incapacity
	if err := json.Unmarshal(raw, &records); err == nil {
		return records, nil
	}
	var envelope struct {
		Results []incapacity.Incapacity `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode incapacity list: %w", err)
	}
	return envelope.Results, nil
}

func (c *Client) CreateIncapacity(ctx context.Context, input CreateIncapacityInput) (incapacity.Incapacity, error) {
	var created incapacity.Incapacity
	if err := c.do(ctx, http.MethodPost, "/incapacities/", input, &created); err != nil {
		return incapacity.Incapacity{}, err
	}
	return created, nil
}

func (c *Client) GetIncapacity(ctx context.Context, id int64) (incapacity.Incapacity, error) {
	var record incapacity.Incapacity
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/incapacities/%d/", id), nil, &record); err != nil {
		return incapacity.Incapacity{}, err
	}
	return record, nil
}

// ChangeStatus submits a workflow transition. The server is the sole
// arbiter of whether it is legal.
func (c *Client) ChangeStatus(ctx context.Context, id int64, status incapacity.Status, observation string) error {
	payload := changeStatusRequest{Status: string(status), Observation: observation}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/incapacities/%d/change_status/", id), payload, nil)
}

func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	if err := c.do(ctx, http.MethodGet, "/incapacities/dashboard_stats/", nil, &stats); err != nil {
		return DashboardStats{}, err
	}
	return stats, nil
}

// UploadDocument uploads one support file tagged to a record.
func (c *Client) UploadDocument(ctx context.Context, incapacityID int64, docType, filename string, content io.Reader) (incapacity.Document, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("incapacity", fmt.Sprintf("%d", incapacityID)); err != nil {
		return incapacity.Document{}, fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.WriteField("document_type", docType); err != nil {
		return incapacity.Document{}, fmt.Errorf("build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return incapacity.Document{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return incapacity.Document{}, fmt.Errorf("copy upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return incapacity.Document{}, fmt.Errorf("finish upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/", &body)
	if err != nil {
		return incapacity.Document{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return incapacity.Document{}, fmt.Errorf("upload document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return incapacity.Document{}, c.parseError(resp)
	}

	var doc incapacity.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return incapacity.Document{}, fmt.Errorf("decode upload response: %w", err)
	}
	return doc, nil
}

func (c *Client) GetReconciliation(ctx context.Context, incapacityID int64) (finance.ReconciliationSummary, error) {
	var summary finance.ReconciliationSummary
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/finance/reconciliation/%d/", incapacityID), nil, &summary); err != nil {
		return finance.ReconciliationSummary{}, err
	}
	return summary, nil
}

func (c *Client) RegisterPayment(ctx context.Context, payment finance.Payment) error {
	return c.do(ctx, http.MethodPost, "/finance/", payment, nil)
}

// do runs one JSON request against the server. out may be nil when the
// caller does not care about the response body.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// parseError turns a non-2xx response into an APIError, keeping whatever
// structured body the server sent.
func (c *Client) parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 {
		var parsed map[string]any
		if json.Unmarshal(data, &parsed) == nil {
			apiErr.Body = parsed
		}
	}
	return apiErr
}
