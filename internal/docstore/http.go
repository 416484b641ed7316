package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/specialistvlad/gridflow/internal/ctxlog"
	"github.com/specialistvlad/gridflow/internal/runresult"
)

// DefaultHTTPTimeout bounds a single backend call.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPStore talks to the workflow backend's REST API.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

var (
	_ Store  = (*HTTPStore)(nil)
	_ Runner = (*HTTPStore)(nil)
)

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) HTTPOption {
	return func(s *HTTPStore) { s.token = strings.TrimSpace(token) }
}

// NewHTTP creates a client for the backend rooted at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTPStore, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid backend url '%s': %w", baseURL, err)
	}
	s := &HTTPStore{
		baseURL: base,
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalid
	}
	return nil
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FlowData    any    `json:"flow_data"`
}

func (s *HTTPStore) Create(ctx context.Context, w Workflow) (Workflow, error) {
	if err := validate(w); err != nil {
		return Workflow{}, err
	}
	var out Workflow
	err := s.do(ctx, http.MethodPost, "/workflows/", createRequest{
		Name:        w.Name,
		Description: w.Description,
		FlowData:    w.FlowData,
	}, &out)
	return out, err
}

func (s *HTTPStore) Get(ctx context.Context, id string) (Workflow, error) {
	var out Workflow
	err := s.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (s *HTTPStore) Update(ctx context.Context, id string, p Patch) (Workflow, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return Workflow{}, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	var out Workflow
	err := s.do(ctx, http.MethodPut, "/workflows/"+url.PathEscape(id), p, &out)
	return out, err
}

func (s *HTTPStore) Delete(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/workflows/"+url.PathEscape(id), nil, nil)
}

// List ignores owner; the backend scopes listings to the token's user.
func (s *HTTPStore) List(ctx context.Context, owner string) ([]Workflow, error) {
	var out []Workflow
	if err := s.do(ctx, http.MethodGet, "/workflows/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveRun is not exposed by the backend; runs are written by its executor.
func (s *HTTPStore) SaveRun(ctx context.Context, run runresult.Run) error {
	return fmt.Errorf("save run: %w", ErrUnsupported)
}

func (s *HTTPStore) ListRuns(ctx context.Context, workflowID string) ([]runresult.Run, error) {
	var out []runresult.Run
	if err := s.do(ctx, http.MethodGet, "/workflows/"+url.PathEscape(workflowID)+"/runs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run starts an execution and returns the backend's run record.
func (s *HTTPStore) Run(ctx context.Context, workflowID string) (runresult.Run, error) {
	var out runresult.Run
	err := s.do(ctx, http.MethodPost, "/workflows/"+url.PathEscape(workflowID)+"/run", nil, &out)
	return out, err
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any) error {
	logger := ctxlog.FromContext(ctx)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	logger.Debug("Calling workflow backend.", "method", method, "path", path)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Detail: errorDetail(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorDetail extracts {"detail": ...}. Validation errors carry a list
// of objects with a "msg" field.
func errorDetail(data []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &env); err != nil || len(env.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}
	var text string
	if err := json.Unmarshal(env.Detail, &text); err == nil {
		return text
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(env.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(env.Detail)
}

// IsStatus reports whether err is a backend response with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
