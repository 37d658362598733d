package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpFetchMaxBody caps how much of a response body is returned to the
// model; the rest is dropped with a truncation marker.
const httpFetchMaxBody = 10_000

// HTTPFetchTool performs a GET request and returns the response body.
type HTTPFetchTool struct {
	client *http.Client
}

func NewHTTPFetchTool() *HTTPFetchTool {
	return &HTTPFetchTool{client: &http.Client{Timeout: 60 * time.Second}}
}

func (t *HTTPFetchTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "http_fetch",
		Description: "Fetch content from a URL via HTTP GET",
		Parameters: []ToolParameter{
			{
				Name:        "url",
				Type:        "string",
				Description: "The URL to fetch",
				Required:    true,
			},
		},
	}
}

type httpFetchArgs struct {
	URL string `json:"url"`
}

// Run fetches the URL. Request-level failures return an error so the
// activity retry policy can take another pass at transient network trouble;
// HTTP-level failures (4xx/5xx) are results the model should see.
func (t *HTTPFetchTool) Run(ctx context.Context, call ToolCall) (ToolResult, error) {
	start := time.Now()

	var args httpFetchArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return failedResult(fmt.Sprintf("error: invalid http_fetch arguments: %v", err), start), nil
	}
	if args.URL == "" {
		return failedResult("error: url cannot be empty", start), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
	if err != nil {
		return failedResult(fmt.Sprintf("error: invalid url: %v", err), start), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ToolResult{}, ctx.Err()
		}
		return ToolResult{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ToolResult{}, fmt.Errorf("read response body: %w", err)
	}

	body := string(raw)
	if len(body) > httpFetchMaxBody {
		body = fmt.Sprintf("%s... [truncated, %d total bytes]", body[:httpFetchMaxBody], len(raw))
	}

	exitCode := 0
	if resp.StatusCode >= 400 {
		exitCode = 1
	}
	output := fmt.Sprintf("HTTP %d\n\n%s", resp.StatusCode, body)
	return ToolResult{Output: output, ExitCode: exitCode, DurationSeconds: time.Since(start).Seconds()}, nil
}
