package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/infra/metrics"
)

func defaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// postJSON sends payload to url with a bearer key and decodes the JSON reply into out.
// Transport errors and non-2xx replies wrap domain.ErrProviderUnavailable.
func postJSON(ctx context.Context, client *http.Client, method, url, apiKey, lang string, payload, out any) error {
	start := time.Now()
	ok := false
	defer func() { metrics.ObserveProviderCall(method, ok, time.Since(start).Seconds()) }()

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept-Language", lang)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s api status %d", domain.ErrProviderUnavailable, method, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s decode: %v", domain.ErrProviderUnavailable, method, err)
	}
	ok = true
	return nil
}
