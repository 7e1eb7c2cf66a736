// Package agents holds the channel executor registry and the built-in
// executors (webhook, email, telegram, sms, inapp). Every failure an executor
// path can produce is returned as a models.AgentResult value so callers only
// ever handle one failure representation.
package agents

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

// Agent is the fixed capability contract a channel executor satisfies.
type Agent interface {
	Send(ctx context.Context, sub models.ChannelSubscription, payload models.NotificationPayload) models.AgentResult
	HandleCommand(ctx context.Context, sub models.ChannelSubscription, cmd models.AgentCommand) models.AgentResult
	Test(ctx context.Context, sub models.ChannelSubscription) models.AgentResult
}

// SubscriptionStore resolves a user's configuration for a channel type.
type SubscriptionStore interface {
	GetChannelSubscription(ctx context.Context, userID int64, channelType string) (models.ChannelSubscription, error)
}

// Registry maps channel-type identifiers to executors. It is populated once
// at startup before any job consumption begins; registration afterwards is
// additive and last-write-wins.
type Registry struct {
	subs   SubscriptionStore
	logger *logrus.Logger
	agents map[string]Agent
}

func NewRegistry(subs SubscriptionStore, logger *logrus.Logger) *Registry {
	return &Registry{
		subs:   subs,
		logger: logger,
		agents: make(map[string]Agent),
	}
}

// Register adds an executor for a channel type. Re-registering overwrites the
// previous executor with a warning, which is how runtime-injected plugins
// replace built-ins.
func (r *Registry) Register(channelType string, agent Agent) {
	if _, exists := r.agents[channelType]; exists {
		r.logger.Warnf("Executor for channel %q re-registered, overwriting", channelType)
	}
	r.agents[channelType] = agent
}

// Types returns the registered channel types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.agents))
	for t := range r.agents {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Execute delivers a payload through a user's channel. A missing or disabled
// subscription, an unregistered channel type, and an executor panic are all
// per-channel conditions returned as structured failures, never errors.
func (r *Registry) Execute(ctx context.Context, channelType string, userID int64, payload models.NotificationPayload) models.AgentResult {
	sub, res := r.resolveSubscription(ctx, channelType, userID)
	if !res.Success {
		return res
	}
	if !sub.Enabled {
		return models.AgentFailure("channel %s is disabled for user %d", channelType, userID)
	}

	agent, ok := r.agents[channelType]
	if !ok {
		return r.unknownChannel(channelType)
	}
	return guard(func() models.AgentResult {
		return agent.Send(ctx, sub, payload)
	})
}

// HandleCommand routes an inbound command to a user's channel executor. It
// does not require the subscription to be enabled: a disabled channel can
// still deliver a command, e.g. a reply that re-enables itself.
func (r *Registry) HandleCommand(ctx context.Context, channelType string, userID int64, cmd models.AgentCommand) models.AgentResult {
	sub, res := r.resolveSubscription(ctx, channelType, userID)
	if !res.Success {
		return res
	}

	agent, ok := r.agents[channelType]
	if !ok {
		return r.unknownChannel(channelType)
	}
	return guard(func() models.AgentResult {
		return agent.HandleCommand(ctx, sub, cmd)
	})
}

// TestAgent exercises the executor for the subscription's channel type.
func (r *Registry) TestAgent(ctx context.Context, sub models.ChannelSubscription) models.AgentResult {
	agent, ok := r.agents[sub.ChannelType]
	if !ok {
		return r.unknownChannel(sub.ChannelType)
	}
	return guard(func() models.AgentResult {
		return agent.Test(ctx, sub)
	})
}

func (r *Registry) resolveSubscription(ctx context.Context, channelType string, userID int64) (models.ChannelSubscription, models.AgentResult) {
	sub, err := r.subs.GetChannelSubscription(ctx, userID, channelType)
	if err != nil {
		return models.ChannelSubscription{}, models.AgentFailure("user %d is not subscribed to channel %s: %v", userID, channelType, err)
	}
	return sub, models.AgentSuccess()
}

func (r *Registry) unknownChannel(channelType string) models.AgentResult {
	return models.AgentFailure("no executor registered for channel %q (registered: %s)",
		channelType, strings.Join(r.Types(), ", "))
}

// guard converts an executor panic into the structured failure shape.
func guard(fn func() models.AgentResult) (res models.AgentResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = models.AgentFailure("executor panic: %v", rec)
		}
	}()
	return fn()
}
