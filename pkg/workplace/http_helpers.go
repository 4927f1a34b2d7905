package workplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// do performs one request under the client timeout and decodes a 2xx body
// into target (which may be nil).
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, target any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.accessToken)
	if c.proof != "" {
		query.Set("appsecret_proof", c.proof)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("workplace %s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), reader)
	if err != nil {
		return fmt.Errorf("workplace %s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapTransport(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return wrapTransport(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseErrorResponse(op, resp.StatusCode, raw)
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("workplace %s: decode response: %w", op, err)
	}
	return nil
}

func parseErrorResponse(op string, status int, raw []byte) error {
	apiErr := &APIError{Op: op, StatusCode: status}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Type = env.Error.Type
		apiErr.Code = env.Error.Code
		apiErr.TraceID = env.Error.FBTraceID
		return apiErr
	}

	if len(raw) > 0 {
		apiErr.Message = string(raw)
	}
	return apiErr
}
