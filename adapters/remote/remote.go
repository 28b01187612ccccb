// Package remote fetches environment documents over HTTP(S) and file URLs.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/artpar/envspec/ports"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultSchemes are the URL schemes a client handles unless configured.
var DefaultSchemes = []string{"http", "https", "file"}

// DefaultMaxBytes caps the size of a fetched document.
const DefaultMaxBytes = 10 << 20

// Client provides HTTP communication with document hosts.
type Client struct {
	httpClient *http.Client
	schemes    []string
	apiKey     string
	headers    map[string]string
	maxBytes   int64
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	Schemes  []string
	APIKey   string // sent as a bearer token when set
	Timeout  time.Duration
	Headers  map[string]string
	MaxBytes int64
	// FileRoot is the directory file:// URLs resolve against. Defaults to "/".
	FileRoot string
}

// NewClient creates a new remote client. When "file" is among the schemes,
// file:// URLs are served from FileRoot through the same client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	schemes := cfg.Schemes
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	for _, s := range schemes {
		if strings.EqualFold(s, "file") {
			root := cfg.FileRoot
			if root == "" {
				root = "/"
			}
			transport.RegisterProtocol("file", http.NewFileTransport(http.Dir(root)))
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		schemes:    append([]string(nil), schemes...),
		apiKey:     cfg.APIKey,
		headers:    cfg.Headers,
		maxBytes:   maxBytes,
	}
}

// Schemes lists the URL schemes the client handles.
func (c *Client) Schemes() []string {
	return append([]string(nil), c.schemes...)
}

// FetchText retrieves url and decodes the body using the charset of its
// Content-Type, defaulting to UTF-8.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-yaml, application/yaml, text/yaml, text/plain, */*")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}
	if int64(len(body)) > c.maxBytes {
		return "", fmt.Errorf("response exceeds %d bytes", c.maxBytes)
	}
	return decode(body, resp.Header.Get("Content-Type"))
}

func decode(body []byte, contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	charset := params["charset"]
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return string(body), nil
	}
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return "", fmt.Errorf("unsupported charset %q", charset)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decode %s body: %w", charset, err)
	}
	return string(out), nil
}

// RemoteError represents an error status from the remote host.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode == http.StatusNotFound
	}
	return false
}

// Ensure interface compliance.
var _ ports.Transport = (*Client)(nil)
