package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"reminder-service/internal/models"
)

// SMSAgent delivers through the Twilio messaging API.
type SMSAgent struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewSMSAgent(accountSID, authToken, fromNumber string) *SMSAgent {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSAgent{client: client, fromNumber: fromNumber}
}

func (a *SMSAgent) Send(ctx context.Context, sub models.ChannelSubscription, payload models.NotificationPayload) models.AgentResult {
	body := fmt.Sprintf("%s\n%s", payload.Title, payload.Message)
	return a.deliver(sub, body)
}

func (a *SMSAgent) HandleCommand(ctx context.Context, sub models.ChannelSubscription, cmd models.AgentCommand) models.AgentResult {
	return a.deliver(sub, fmt.Sprintf("Got it: %s", cmd.Command))
}

func (a *SMSAgent) Test(ctx context.Context, sub models.ChannelSubscription) models.AgentResult {
	return a.deliver(sub, "Your SMS channel is working.")
}

func (a *SMSAgent) deliver(sub models.ChannelSubscription, body string) models.AgentResult {
	to, _ := sub.Configuration["phone_number"].(string)
	if to == "" {
		return models.AgentFailure("phone_number not set in configuration for user %d", sub.UserID)
	}
	if !strings.HasPrefix(to, "+") {
		return models.AgentFailure("invalid phone number: %s", to)
	}
	if a.fromNumber == "" {
		return models.AgentFailure("sms sender not configured")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(a.fromNumber)
	params.SetBody(body)

	resp, err := a.client.Api.CreateMessage(params)
	if err != nil {
		return models.AgentFailure("failed to send SMS to %s: %v", to, err)
	}
	res := models.AgentSuccess()
	if resp.Sid != nil {
		res.Metadata = map[string]any{"message_sid": *resp.Sid}
	}
	return res
}

var _ Agent = (*SMSAgent)(nil)
