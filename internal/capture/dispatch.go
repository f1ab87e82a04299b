package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"presence-tracker-backend/internal/store"
)

// HTTPDispatcher posts captured submissions to the presence service's
// /scan endpoint.
type HTTPDispatcher struct {
	url    string
	client *http.Client
}

// NewHTTPDispatcher creates a dispatcher for the service at baseURL.
func NewHTTPDispatcher(baseURL string) *HTTPDispatcher {
	return &HTTPDispatcher{
		url: strings.TrimRight(baseURL, "/") + "/scan",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type scanPayload struct {
	Token       string `json:"token"`
	LocationID  int64  `json:"location_id"`
	Action      string `json:"action"`
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// Dispatch submits one scan and returns the server's receipt. Any error
// means the event was not confirmed durable; the dispatcher never
// retries, that decision belongs to the operator.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, sub Submission) (store.ScanReceipt, error) {
	payload, err := json.Marshal(scanPayload{
		Token:       sub.Token,
		LocationID:  sub.LocationID,
		Action:      string(sub.Action),
		SubmittedBy: sub.SubmittedBy,
	})
	if err != nil {
		return store.ScanReceipt{}, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return store.ScanReceipt{}, fmt.Errorf("failed to build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return store.ScanReceipt{}, fmt.Errorf("scan submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return store.ScanReceipt{}, fmt.Errorf("scan rejected: %s", apiErr.Error)
		}
		return store.ScanReceipt{}, fmt.Errorf("scan submission failed with status %d", resp.StatusCode)
	}

	var receipt store.ScanReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return store.ScanReceipt{}, fmt.Errorf("failed to decode scan receipt: %w", err)
	}
	return receipt, nil
}
