package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raphaelgruber/vroomie/internal/wire"
)

// Ask performs a single history-free query against the server's fallback
// endpoint and returns the normalized answer.
func Ask(ctx context.Context, serverURL, content string) (string, error) {
	httpClient := &http.Client{Timeout: 2 * time.Minute}
	return postQuery(ctx, httpClient, strings.TrimRight(serverURL, "/")+"/api/query", content)
}

// postQuery runs one request/response exchange on the fallback endpoint.
func postQuery(ctx context.Context, httpClient *http.Client, url, content string) (string, error) {
	body, err := json.Marshal(wire.QueryRequest{Content: content})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	var qr wire.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return qr.Content, nil
}
