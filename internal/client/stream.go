package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// StreamOutcome is the result of attempting to read the first event from a
// line-oriented event stream. TimedOut distinguishes "connected but no
// data within the deadline" from hard failures, because a missing stream
// implementation is an acceptable condition for this harness.
type StreamOutcome struct {
	StatusCode int
	Event      string
	TimedOut   bool
	Err        error
}

// Stream opens the event stream at relPath and waits up to timeout for the
// first `data:` line. The connection is closed as soon as one event is
// read; the harness only verifies that the stream produces output.
func (c *Client) Stream(ctx context.Context, relPath string, timeout time.Duration) StreamOutcome {
	endpoint := c.resolvePath(relPath)
	if endpoint == "" {
		return StreamOutcome{Err: fmt.Errorf("target base URL not configured")}
	}

	streamCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StreamOutcome{Err: fmt.Errorf("build request: %w", err)}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// The shared client enforces a whole-request timeout, which would
	// race the stream deadline; use a transport-only client here.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return StreamOutcome{TimedOut: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StreamOutcome{StatusCode: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "data:") {
			return StreamOutcome{
				StatusCode: resp.StatusCode,
				Event:      strings.TrimSpace(strings.TrimPrefix(line, "data:")),
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return StreamOutcome{StatusCode: resp.StatusCode, TimedOut: isTimeout(err), Err: err}
	}
	return StreamOutcome{StatusCode: resp.StatusCode, Err: fmt.Errorf("stream closed before first event")}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
