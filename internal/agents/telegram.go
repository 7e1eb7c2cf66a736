package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"reminder-service/internal/models"
	"reminder-service/internal/utils"
)

// TelegramAgent delivers through the Telegram Bot API. Sends are rate limited
// globally and retried a bounded number of times.
type TelegramAgent struct {
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewTelegramAgent(ratePerSecond int, logger *logrus.Logger) *TelegramAgent {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	return &TelegramAgent{
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}
}

type telegramConfig struct {
	botToken string
	chatID   int64
}

func (a *TelegramAgent) config(sub models.ChannelSubscription) (telegramConfig, error) {
	var cfg telegramConfig
	cfg.botToken, _ = sub.Configuration["bot_token"].(string)
	if cfg.botToken == "" {
		return cfg, fmt.Errorf("missing bot_token in telegram configuration for user %d", sub.UserID)
	}
	// JSONB numbers decode as float64
	switch v := sub.Configuration["chat_id"].(type) {
	case float64:
		cfg.chatID = int64(v)
	case int64:
		cfg.chatID = v
	}
	if cfg.chatID == 0 {
		return cfg, fmt.Errorf("missing chat_id in telegram configuration for user %d", sub.UserID)
	}
	return cfg, nil
}

func (a *TelegramAgent) Send(ctx context.Context, sub models.ChannelSubscription, payload models.NotificationPayload) models.AgentResult {
	text := fmt.Sprintf("*%s*\n%s\n\n_Tier %d · %s_\nReply with /snooze, /dismiss or /complete.",
		payload.Title, payload.Message, payload.EscalationTier, payload.Importance)
	if err := a.deliver(ctx, sub, text); err != nil {
		return models.AgentFailure("%v", err)
	}
	return models.AgentSuccess()
}

func (a *TelegramAgent) HandleCommand(ctx context.Context, sub models.ChannelSubscription, cmd models.AgentCommand) models.AgentResult {
	// Acknowledge the command in the same chat. The domain effect of the
	// command (snooze, complete, re-enable) is applied by the caller.
	ack := fmt.Sprintf("Got it: %s", cmd.Command)
	if err := a.deliver(ctx, sub, ack); err != nil {
		return models.AgentFailure("%v", err)
	}
	return models.AgentResult{Success: true, Metadata: map[string]any{"command": cmd.Command}}
}

func (a *TelegramAgent) Test(ctx context.Context, sub models.ChannelSubscription) models.AgentResult {
	if err := a.deliver(ctx, sub, "Your telegram channel is working."); err != nil {
		return models.AgentFailure("%v", err)
	}
	return models.AgentSuccess()
}

func (a *TelegramAgent) deliver(ctx context.Context, sub models.ChannelSubscription, text string) error {
	cfg, err := a.config(sub)
	if err != nil {
		return err
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	return utils.Retry(a.logger, 3, time.Second, func() error {
		b, err := bot.New(cfg.botToken)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		params := &bot.SendMessageParams{
			ChatID:    cfg.chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := b.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send telegram message to chat %d: %w", cfg.chatID, err)
		}
		return nil
	})
}

var _ Agent = (*TelegramAgent)(nil)
