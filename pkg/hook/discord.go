package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/utils"
)

// Discord posts failure alerts to a Discord compatible webhook
type Discord struct {
	hookURL  string
	location *time.Location
	client   *http.Client
}

func New(hookURL string, location *time.Location) *Discord {
	if location == nil {
		location = time.UTC
	}

	return &Discord{
		hookURL:  hookURL,
		location: location,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured
func (d *Discord) Enabled() bool {
	return d != nil && d.hookURL != ""
}

// SendFailure reports a failed run, a no-op without a webhook URL
func (d *Discord) SendFailure(ctx context.Context, at time.Time, runErr error) error {
	if !d.Enabled() {
		return nil
	}

	message := fmt.Sprintf("⛈	**Weather report failed** %s\n%v", utils.FormatDateTime(at, d.location), runErr)
	return d.sendWebhook(ctx, message)
}

func (d *Discord) sendWebhook(ctx context.Context, message string) error {
	body := struct {
		Content string `json:"content"`
	}{
		Content: message,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("could not marshal data for webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.hookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("could not create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("could not send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("invalid response code from webhook: %d", resp.StatusCode)
	}

	return nil
}
