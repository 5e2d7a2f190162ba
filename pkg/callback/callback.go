// Package callback implements the optional result/error notification
// protocol: when a callback server is configured, every finished or failed
// job is reported to it, and its reply decides whether the local output is
// kept or deleted.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// Reply values the callback server may send back after a result POST.
// Anything else is treated the same as Delete, matching the original
// "unrecognized reply means delete" behavior.
const (
	ReplyKeep   = "KEEP"
	ReplyDelete = "DELETE"
)

// Client posts job results and errors to a configured callback server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client posting to baseURL. An empty baseURL yields a Client
// whose methods are no-ops, so callers don't need to branch on whether a
// callback server was configured.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// Configured reports whether a callback server was set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// SendResult posts the tagger's output for id to the callback server's
// /result endpoint and reports whether the reply asked the caller to keep
// the local copy. A non-2xx reply is reported as an error, with keep true.
func (c *Client) SendResult(ctx context.Context, id, outputPath string) (bool, error) {
	if !c.Configured() {
		return true, nil
	}

	f, err := os.Open(outputPath)
	if err != nil {
		return true, fmt.Errorf("open output for callback: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("file_id", id); err != nil {
		return true, fmt.Errorf("write file_id field: %w", err)
	}

	part, err := writer.CreateFormFile("file", id+filenameExt(outputPath))
	if err != nil {
		return true, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return true, fmt.Errorf("copy output into form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return true, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/result", body)
	if err != nil {
		return true, fmt.Errorf("build result request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return true, fmt.Errorf("post result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return true, fmt.Errorf("callback server returned status %d", resp.StatusCode)
	}

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("read callback reply: %w", err)
	}

	return strings.Contains(string(reply), ReplyKeep), nil
}

// errorPayload is the JSON body posted to /error.
type errorPayload struct {
	FileID  string `json:"file_id"`
	Message string `json:"message"`
}

// SendError notifies the callback server that processing id failed.
func (c *Client) SendError(ctx context.Context, id, message string) error {
	if !c.Configured() {
		return nil
	}

	body, err := json.Marshal(errorPayload{FileID: id, Message: message})
	if err != nil {
		return fmt.Errorf("marshal error payload: %w", err)
	}

	endpoint := c.baseURL + "/error?" + url.Values{"file_id": {id}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build error request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback server returned status %d", resp.StatusCode)
	}
	return nil
}

func filenameExt(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
