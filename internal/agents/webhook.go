package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"reminder-service/internal/models"
)

// WebhookAgent POSTs the notification payload as JSON to the URL in the
// subscription configuration. An optional "secret" is sent as a token header
// for the receiver to verify; signature verification itself happens on the
// receiving side.
type WebhookAgent struct {
	client *http.Client
}

func NewWebhookAgent() *WebhookAgent {
	return &WebhookAgent{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *WebhookAgent) Send(ctx context.Context, sub models.ChannelSubscription, payload models.NotificationPayload) models.AgentResult {
	return a.post(ctx, sub, payload)
}

func (a *WebhookAgent) HandleCommand(ctx context.Context, sub models.ChannelSubscription, cmd models.AgentCommand) models.AgentResult {
	// Commands are echoed to the same endpoint so the receiver can react.
	return a.post(ctx, sub, cmd)
}

func (a *WebhookAgent) Test(ctx context.Context, sub models.ChannelSubscription) models.AgentResult {
	return a.post(ctx, sub, map[string]any{"test": true, "message": "reminder-service webhook test"})
}

func (a *WebhookAgent) post(ctx context.Context, sub models.ChannelSubscription, body any) models.AgentResult {
	url, _ := sub.Configuration["url"].(string)
	if url == "" {
		return models.AgentFailure("url not set in webhook configuration for user %d", sub.UserID)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return models.AgentFailure("failed to encode webhook body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return models.AgentFailure("failed to build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret, _ := sub.Configuration["secret"].(string); secret != "" {
		req.Header.Set("X-Webhook-Token", secret)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return models.AgentFailure("webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.AgentFailure("webhook returned status %d", resp.StatusCode)
	}
	return models.AgentResult{
		Success:  true,
		Metadata: map[string]any{"status_code": resp.StatusCode},
	}
}

var _ Agent = (*WebhookAgent)(nil)
