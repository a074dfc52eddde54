package admin

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/danmuck/mgmtd/internal/mbean"
)

var ErrRemote = errors.New("admin: remote error")

// StatusError is a non-2xx answer from the façade.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("admin: status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrRemote
}

// Client talks to a running admin façade.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient binds a client to baseURL, e.g. "http://127.0.0.1:7070".
// A bare host:port gets an http scheme.
func NewClient(baseURL, token string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewTLSClient is NewClient for an HTTPS façade whose certificate is
// signed by the CA in caFile. A bare host:port gets an https scheme.
func NewTLSClient(baseURL, token, caFile string) (*Client, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("admin: read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("admin: no certificates in %s", caFile)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	c := NewClient(baseURL, token)
	c.http.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:    pool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return c, nil
}

// List describes registered objects, optionally limited to one domain.
func (c *Client) List(ctx context.Context, domain string) ([]mbean.Info, error) {
	path := "/mbeans"
	if domain = strings.TrimSpace(domain); domain != "" {
		path += "?domain=" + url.QueryEscape(domain)
	}
	var out struct {
		MBeans []mbean.Info `json:"mbeans"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.MBeans, nil
}

func (c *Client) GetAttribute(ctx context.Context, name mbean.Name, attr string) (any, error) {
	var out struct {
		Value any `json:"value"`
	}
	path := "/mbeans/" + url.PathEscape(name.String()) + "/attributes/" + url.PathEscape(attr)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) Invoke(ctx context.Context, name mbean.Name, op string, args map[string]string) (any, error) {
	var out struct {
		Result any `json:"result"`
	}
	path := "/mbeans/" + url.PathEscape(name.String()) + "/operations/" + url.PathEscape(op)
	if err := c.do(ctx, http.MethodPost, path, InvokeRequest{Args: args}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) Features(ctx context.Context) (map[string]any, error) {
	var out struct {
		Features map[string]any `json:"features"`
	}
	if err := c.do(ctx, http.MethodGet, "/features", nil, &out); err != nil {
		return nil, err
	}
	return out.Features, nil
}

// Ready reports the façade readiness probe. A 503 is not an error.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	var out struct {
		Ready bool `json:"ready"`
	}
	err := c.do(ctx, http.MethodGet, "/ready", nil, &out)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusServiceUnavailable {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Ready, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("admin: base url required")
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
