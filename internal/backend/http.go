package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"spm/internal/model"
)

// HTTPClient implements Client over the JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithToken sends a bearer token on every call.
func WithToken(token string) Option {
	return func(c *HTTPClient) { c.token = token }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client for the API rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) AnalyzeRequest(ctx context.Context, requestID int64) (*model.AnalysisResult, error) {
	var out model.AnalysisResult
	path := fmt.Sprintf("/api/solicitudes/%d/analisis-tratamiento", requestID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SourcingOptions accepts either a bare array or an {"opciones": [...]} envelope.
func (c *HTTPClient) SourcingOptions(ctx context.Context, requestID int64, itemIndex int) ([]model.SourcingOption, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/api/solicitudes/%d/items/%d/opciones-abastecimiento", requestID, itemIndex)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '[' {
		var opts []model.SourcingOption
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		return opts, nil
	}
	var env struct {
		Options []model.SourcingOption `json:"opciones"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return env.Options, nil
}

func (c *HTTPClient) SaveTreatment(ctx context.Context, t model.Treatment) error {
	path := fmt.Sprintf("/api/solicitudes/%d/tratamiento", t.RequestID)
	return c.do(ctx, http.MethodPost, path, t, nil)
}

func (c *HTTPClient) RejectRequest(ctx context.Context, requestID int64, reason string) error {
	body := map[string]string{"motivo": reason}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/solicitudes/%d/rechazar", requestID), body, nil)
}

func (c *HTTPClient) AddComment(ctx context.Context, requestID int64, text string, requiresResponse bool) error {
	body := map[string]any{"comentario": text, "requiere_respuesta": requiresResponse}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/solicitudes/%d/comentarios", requestID), body, nil)
}

func (c *HTTPClient) SendMessage(ctx context.Context, msg DirectMessage) error {
	return c.do(ctx, http.MethodPost, "/api/mensajes", msg, nil)
}

func (c *HTTPClient) UpdateStatus(ctx context.Context, requestID int64, status string) error {
	body := map[string]string{"estado": status}
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/solicitudes/%d/estado", requestID), body, nil)
}

// do sends in as JSON (when non-nil) and decodes the answer into out (when
// non-nil). Non-2xx answers become *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return newAPIError(resp.StatusCode, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w (body: %s)", err, string(body))
	}
	return nil
}
