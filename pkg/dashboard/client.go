package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/importer"
	"github.com/GTDGit/gtd_dashboard/internal/models"
)

// BusinessHeader selects the tenant of every scoped request.
const BusinessHeader = "X-Business-Id"

// Client is a typed HTTP client for the dashboard API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	businessID int
	debug      bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDebug logs every request and response body at debug level.
func WithDebug(debug bool) Option {
	return func(c *Client) { c.debug = debug }
}

// NewClient constructs a client for the API at baseURL acting on businessID.
func NewClient(baseURL, token string, businessID int, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		businessID: businessID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BusinessID returns the tenant the client acts on.
func (c *Client) BusinessID() int { return c.businessID }

// APIError is an error envelope returned by the API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Pagination mirrors the list metadata of the envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    struct {
		Pagination *Pagination `json:"pagination"`
	} `json:"meta"`
}

// ListOptions narrows list calls.
type ListOptions struct {
	Search string
	Page   int
	Limit  int
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	return v
}

// ExportLink is a temporary download link for an export.
type ExportLink struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Draft is a stored form draft.
type Draft struct {
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
	SavedAt time.Time       `json:"savedAt"`
}

// ListCustomers returns one page of customers.
func (c *Client) ListCustomers(ctx context.Context, opts ListOptions) ([]models.Customer, *Pagination, error) {
	var out []models.Customer
	meta, err := c.do(ctx, http.MethodGet, "/v1/customers", opts.values(), nil, "", &out)
	return out, meta, err
}

// ImportCustomers uploads a CSV, JSON or XLSX file of customers.
func (c *Client) ImportCustomers(ctx context.Context, filename string, r io.Reader) (*importer.Result, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	var out importer.Result
	if _, err := c.do(ctx, http.MethodPost, "/v1/customers/import", nil, &body, w.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportCustomers asks for a CSV export and returns its download link.
func (c *Client) ExportCustomers(ctx context.Context) (*ExportLink, error) {
	var out ExportLink
	if _, err := c.do(ctx, http.MethodPost, "/v1/customers/export", nil, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListChats returns one page of chat threads.
func (c *Client) ListChats(ctx context.Context, opts ListOptions) ([]models.Chat, *Pagination, error) {
	var out []models.Chat
	meta, err := c.do(ctx, http.MethodGet, "/v1/chats", opts.values(), nil, "", &out)
	return out, meta, err
}

// Messages returns messages of a chat older than before (0 for the newest page).
func (c *Client) Messages(ctx context.Context, chatID, before, limit int) ([]models.Message, error) {
	q := url.Values{}
	if before > 0 {
		q.Set("before", strconv.Itoa(before))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []models.Message
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/chats/%d/messages", chatID), q, nil, "", &out)
	return out, err
}

// SendMessage posts a message to a chat as the signed-in user.
func (c *Client) SendMessage(ctx context.Context, chatID int, body string) (*models.Message, error) {
	var out models.Message
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/v1/chats/%d/messages", chatID), map[string]string{"body": body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDraft loads the draft of the given kind.
func (c *Client) GetDraft(ctx context.Context, kind string) (*Draft, error) {
	var out Draft
	if _, err := c.do(ctx, http.MethodGet, "/v1/drafts/"+url.PathEscape(kind), nil, nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveDraft stores data, which must be a JSON document, as the draft of kind.
func (c *Client) SaveDraft(ctx context.Context, kind string, data json.RawMessage) (*Draft, error) {
	var out Draft
	if _, err := c.do(ctx, http.MethodPut, "/v1/drafts/"+url.PathEscape(kind), nil, bytes.NewReader(data), "application/json", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearDraft deletes the draft of kind.
func (c *Client) ClearDraft(ctx context.Context, kind string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/drafts/"+url.PathEscape(kind), nil, nil, "", nil)
	return err
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	_, err = c.do(ctx, method, path, nil, bytes.NewReader(payload), "application/json", result)
	return err
}

// do sends one request and decodes the envelope's data into result.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, result any) (*Pagination, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.businessID > 0 {
		req.Header.Set(BusinessHeader, strconv.Itoa(c.businessID))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("response", string(respBody)).
			Msg("dashboard api call")
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: env.Message}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	if result != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return nil, fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return env.Meta.Pagination, nil
}
