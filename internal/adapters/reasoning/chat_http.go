package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	maxReplyBytes = 1 << 20
	maxErrorBytes = 4 << 10
)

// httpStatusError is a backend answer with a 4xx or 5xx status.
type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// replyDecodeError is a 2xx answer whose body is not the expected JSON.
type replyDecodeError struct {
	err error
}

func (e *replyDecodeError) Error() string { return "decode reply: " + e.err.Error() }
func (e *replyDecodeError) Unwrap() error { return e.err }

// postJSON makes one authenticated POST to the backend and decodes the JSON reply into out.
// There is no retry: a failed call ends in the fallback decision.
func (g *ChatGateway) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplyBytes)).Decode(out); err != nil {
		// A body cut short by the deadline is a timeout, not a malformed reply.
		if ctx.Err() != nil {
			return err
		}
		return &replyDecodeError{err: err}
	}
	return nil
}
