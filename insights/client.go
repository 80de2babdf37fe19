package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TriggerPurchaseWebhook tags generation requests that originate from a
// first-time purchase.
const TriggerPurchaseWebhook = "purchase_webhook"

// Client calls the insights-generation endpoint. The endpoint itself is an
// external collaborator; this client only requests a run and reads the status.
type Client struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

type generateRequest struct {
	UserID  string `json:"userId"`
	Trigger string `json:"trigger"`
}

// Generate requests an insights run for the user. The response body is
// discarded; only a non-2xx status is an error.
func (c *Client) Generate(ctx context.Context, userID, trigger string) error {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	body, err := json.Marshal(generateRequest{UserID: userID, Trigger: trigger})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("insights status %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}
