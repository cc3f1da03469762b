package client

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
	"strings"
	"time"

	"github.com/annolab/apidoctor/internal/models"
)

// Outcome is the normalised result of one probe against the target.
// StatusCode is 0 when no response arrived (connection refused, DNS
// failure, timeout); Err then explains why. Body holds the parsed JSON
// object when the response decoded as one; otherwise Raw keeps the bytes
// and Err carries a malformed-body error.
type Outcome struct {
	StatusCode int
	Body       models.Document
	Raw        []byte
	Elapsed    time.Duration
	Err        error
}

// Responded reports whether the target answered at all.
func (o Outcome) Responded() bool { return o.StatusCode != 0 }

// Client issues authenticated requests against the target service. It is
// read-only after construction and safe for concurrent probes.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New constructs a client for the target base URL. The timeout applies to
// every request unless the per-call context expires first.
func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetTransport swaps the underlying transport, primarily for tests.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.httpClient.Transport = rt
}

// BaseURL returns the configured target address.
func (c *Client) BaseURL() string { return c.baseURL }

// Token returns the configured bearer token.
func (c *Client) Token() string { return c.token }

// Get performs a GET probe against the relative path and returns the
// outcome. Network and decode failures are folded into the Outcome; the
// error return is reserved for misuse (empty base URL, bad path).
func (c *Client) Get(ctx context.Context, relPath string) Outcome {
	return c.do(ctx, http.MethodGet, relPath, "", nil)
}

// PostJSON performs a POST probe with a JSON payload.
func (c *Client) PostJSON(ctx context.Context, relPath string, payload any) Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{Err: fmt.Errorf("marshal payload: %w", err)}
	}
	return c.do(ctx, http.MethodPost, relPath, "application/json", bytes.NewReader(body))
}

// PostMultipart submits a multipart form with a single file part plus
// ordinary fields, matching the job submission endpoint's contract.
func (c *Client) PostMultipart(ctx context.Context, relPath, fileField, fileName string, fileBody []byte, fields map[string]string) Outcome {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return Outcome{Err: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := part.Write(fileBody); err != nil {
		return Outcome{Err: fmt.Errorf("write form file: %w", err)}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return Outcome{Err: fmt.Errorf("write form field %s: %w", key, err)}
		}
	}
	if err := writer.Close(); err != nil {
		return Outcome{Err: fmt.Errorf("close multipart writer: %w", err)}
	}

	return c.do(ctx, http.MethodPost, relPath, writer.FormDataContentType(), &buf)
}

func (c *Client) do(ctx context.Context, method, relPath, contentType string, body io.Reader) Outcome {
	endpoint := c.resolvePath(relPath)
	if endpoint == "" {
		return Outcome{Err: fmt.Errorf("target base URL not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return Outcome{Err: fmt.Errorf("build request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Outcome{Elapsed: elapsed, Err: err}
	}
	defer resp.Body.Close()

	outcome := Outcome{StatusCode: resp.StatusCode, Elapsed: elapsed}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome.Err = fmt.Errorf("read response body: %w", err)
		return outcome
	}
	outcome.Raw = raw

	if len(raw) > 0 {
		var doc models.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			outcome.Err = fmt.Errorf("malformed body: %w", err)
		} else {
			outcome.Body = doc
		}
	}
	return outcome
}

// DecodeInto re-decodes the raw response body into a typed destination.
// It reports a malformed-body error when the payload does not fit.
func (o Outcome) DecodeInto(dest any) error {
	if len(o.Raw) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(o.Raw, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	// path.Join would eat the query string, so split it off first. It
	// also strips trailing slashes, which some endpoints are strict about.
	rel, query, hasQuery := strings.Cut(cleaned, "?")
	u.Path = path.Join(u.Path, rel)
	if strings.HasSuffix(rel, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if hasQuery {
		u.RawQuery = query
	}
	return u.String()
}
