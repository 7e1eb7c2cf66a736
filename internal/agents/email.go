package agents

import (
	"context"
	"fmt"

	"reminder-service/internal/models"
	"reminder-service/pkg/email"
)

// EmailAgent delivers via SMTP to the address in the subscription
// configuration.
type EmailAgent struct {
	sender email.Sender
}

func NewEmailAgent(sender email.Sender) *EmailAgent {
	return &EmailAgent{sender: sender}
}

func (a *EmailAgent) Send(ctx context.Context, sub models.ChannelSubscription, payload models.NotificationPayload) models.AgentResult {
	to, _ := sub.Configuration["email"].(string)
	if to == "" {
		return models.AgentFailure("email not set in configuration for user %d", sub.UserID)
	}

	subject := fmt.Sprintf("[Reminder] %s", payload.Title)
	body := fmt.Sprintf("%s\n\nEscalation tier: %d\nImportance: %s",
		payload.Message, payload.EscalationTier, payload.Importance)
	if err := a.sender.Send(to, subject, body); err != nil {
		return models.AgentFailure("failed to send email to %s: %v", to, err)
	}
	return models.AgentSuccess()
}

func (a *EmailAgent) HandleCommand(ctx context.Context, sub models.ChannelSubscription, cmd models.AgentCommand) models.AgentResult {
	// Email has no inbound command path; replies land in the webhook layer.
	return models.AgentFailure("email channel does not support commands")
}

func (a *EmailAgent) Test(ctx context.Context, sub models.ChannelSubscription) models.AgentResult {
	to, _ := sub.Configuration["email"].(string)
	if to == "" {
		return models.AgentFailure("email not set in configuration for user %d", sub.UserID)
	}
	if err := a.sender.Send(to, "Reminder service test", "Your email channel is working."); err != nil {
		return models.AgentFailure("failed to send test email to %s: %v", to, err)
	}
	return models.AgentSuccess()
}

var _ Agent = (*EmailAgent)(nil)
