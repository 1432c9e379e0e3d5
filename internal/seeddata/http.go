package seeddata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/kenshin/pkg/logger"
)

// checkServiceHealth verifies the service answers before seeding.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := &http.Client{Timeout: config.Timeout}
	url := config.BaseURL + "/healthz"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("service unreachable at %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check answered %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy", logger.String("url", url))
	return nil
}

// postCSV uploads a CSV body and decodes the JSON response into out.
func postCSV(ctx context.Context, config *Config, path string, body []byte, out any) error {
	client := &http.Client{Timeout: config.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "text/csv")
	return do(client, req, path, out)
}

// postJSON sends a JSON body (nil means empty body) and decodes the
// response into out. Credentials are attached when withAuth is set.
func postJSON(ctx context.Context, config *Config, path string, body, out any, withAuth bool) error {
	client := &http.Client{Timeout: config.Timeout}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body for %s: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		req.SetBasicAuth(config.User, config.Password)
	}
	return do(client, req, path, out)
}

// getJSON fetches a path and decodes the response into out.
func getJSON(ctx context.Context, config *Config, path string, out any) error {
	client := &http.Client{Timeout: config.Timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	return do(client, req, path, out)
}

func do(client *http.Client, req *http.Request, path string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response from %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s answered %d: %s", path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}
