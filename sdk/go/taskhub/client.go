// Package taskhub is a Go client for the TaskHub REST API.
package taskhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the TaskHub REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Task mirrors the server's task record.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tags        []string  `json:"tags"`
	Priority    string    `json:"priority"`
}

// TaskCreate is the payload for creating a task.
type TaskCreate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskUpdate carries the fields to change; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// ListParams selects a page of tasks. Zero values are omitted from the query.
type ListParams struct {
	Completed *bool
	Page      int
	PerPage   int
	// Sort is a directive such as "created_at:desc" or "priority:asc".
	Sort string
}

// Page is one page of a listing.
type Page struct {
	Items   []Task `json:"items"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

// SearchResult is returned by the tag and priority searches.
type SearchResult struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}

// TagCount is one entry of the tag distribution.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats summarises the stored tasks.
type Stats struct {
	Total           int        `json:"total"`
	Completed       int        `json:"completed"`
	Incomplete      int        `json:"incomplete"`
	TagDistribution []TagCount `json:"tag_distribution"`
	OldestCreatedAt *time.Time `json:"oldest_created_at"`
	NewestCreatedAt *time.Time `json:"newest_created_at"`
}

// RowError reports why one imported record was rejected. Row is set for CSV
// input (1-based), Index for JSON input (0-based).
type RowError struct {
	Row   *int   `json:"row,omitempty"`
	Index *int   `json:"index,omitempty"`
	Error string `json:"error"`
}

// ImportReport is the partial-success result of an import.
type ImportReport struct {
	Imported int        `json:"imported"`
	Failed   int        `json:"failed"`
	Errors   []RowError `json:"errors"`
	Tasks    []Task     `json:"tasks"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("taskhub api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("taskhub api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the TaskHub API. When httpClient is nil,
// a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in TaskCreate) (Task, error) {
	var out Task
	err := c.sendJSON(ctx, http.MethodPost, "/tasks", nil, in, &out)
	return out, err
}

// ListTasks returns one page of tasks.
func (c *Client) ListTasks(ctx context.Context, params ListParams) (Page, error) {
	query := url.Values{}
	if params.Completed != nil {
		query.Set("completed", strconv.FormatBool(*params.Completed))
	}
	if params.Page > 0 {
		query.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}
	if params.Sort != "" {
		query.Set("sort", params.Sort)
	}
	var out Page
	err := c.sendJSON(ctx, http.MethodGet, "/tasks", query, nil, &out)
	return out, err
}

// GetTask fetches a task by identifier.
func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &out)
	return out.Task, err
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	err := c.sendJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, upd, &out)
	return out.Task, err
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.sendJSON(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

// BulkDelete removes every listed task it can and returns how many were deleted.
func (c *Client) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if ids == nil {
		ids = []string{}
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.sendJSON(ctx, http.MethodDelete, "/tasks", nil, ids, &out)
	return out.Deleted, err
}

// Count returns the number of stored tasks.
func (c *Client) Count(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/count", nil, nil, &out)
	return out.Count, err
}

// Stats returns aggregate statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/stats", nil, nil, &out)
	return out, err
}

// SetTags replaces the tag set of a task.
func (c *Client) SetTags(ctx context.Context, id string, tags []string) (Task, error) {
	if tags == nil {
		tags = []string{}
	}
	var out struct {
		Task Task `json:"task"`
	}
	body := map[string][]string{"tags": tags}
	err := c.sendJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id)+"/tags", nil, body, &out)
	return out.Task, err
}

// GetTags returns the tags of a task.
func (c *Client) GetTags(ctx context.Context, id string) ([]string, error) {
	var out struct {
		Tags []string `json:"tags"`
	}
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/tags", nil, nil, &out)
	return out.Tags, err
}

// SearchByTag finds tasks carrying tag, ignoring case.
func (c *Client) SearchByTag(ctx context.Context, tag string) (SearchResult, error) {
	var out SearchResult
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/search/by_tag", url.Values{"tag": {tag}}, nil, &out)
	return out, err
}

// SetPriority sets the priority of a task ("low", "medium", "high" or "critical").
func (c *Client) SetPriority(ctx context.Context, id, priority string) (Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	body := map[string]string{"priority": priority}
	err := c.sendJSON(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id)+"/priority", nil, body, &out)
	return out.Task, err
}

// GetPriority returns the priority of a task.
func (c *Client) GetPriority(ctx context.Context, id string) (string, error) {
	var out struct {
		Priority string `json:"priority"`
	}
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/priority", nil, nil, &out)
	return out.Priority, err
}

// SearchByPriority finds tasks with the given priority.
func (c *Client) SearchByPriority(ctx context.Context, priority string) (SearchResult, error) {
	var out SearchResult
	err := c.sendJSON(ctx, http.MethodGet, "/tasks/search/by_priority", url.Values{"priority": {priority}}, nil, &out)
	return out, err
}

// Import uploads raw JSON or CSV content; contentType selects the format.
func (c *Client) Import(ctx context.Context, contentType string, body []byte) (ImportReport, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/tasks/import", nil, bytes.NewReader(body))
	if err != nil {
		return ImportReport{}, err
	}
	req.Header.Set("Content-Type", contentType)
	var out ImportReport
	err = c.do(req, &out)
	return out, err
}

// ImportFile uploads CSV content as a multipart form file named "file".
func (c *Client) ImportFile(ctx context.Context, filename string, csv io.Reader) (ImportReport, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return ImportReport{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return ImportReport{}, fmt.Errorf("copy csv: %w", err)
	}
	if err := form.Close(); err != nil {
		return ImportReport{}, fmt.Errorf("close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/tasks/import/file", nil, &buf)
	if err != nil {
		return ImportReport{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	var out ImportReport
	err = c.do(req, &out)
	return out, err
}

// Health reports whether the server answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
