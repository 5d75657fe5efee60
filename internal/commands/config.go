package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/store"
	"github.com/Priya8975/status-relay/internal/webhook"
)

const notConfigured = ":x: No subscription configured! Use `/invite` to add the status feed to one of your channels."

// Config lets server managers inspect and change their subscription.
type Config struct {
	Store     store.SubscriptionStore
	Endpoints webhook.DestinationFactory
	Logger    *slog.Logger
}

func (Config) Name() string { return "config" }

func (c Config) Run(ctx context.Context, i *Interaction) (*Response, error) {
	if i.GuildID == "" {
		return Ephemeral(":x: This command can only be used in a server."), nil
	}
	if !i.HasPermission(PermissionManageWebhooks) {
		return Ephemeral(":x: You need the **Manage Webhooks** permission to do that."), nil
	}

	sub, err := c.Store.Get(ctx, i.GuildID)
	if err != nil {
		return nil, fmt.Errorf("loading subscription: %w", err)
	}
	if sub == nil {
		return Ephemeral(notConfigured), nil
	}

	group, name, opts := i.Data.Subcommand()
	switch group {
	case "roles":
		return c.roles(ctx, sub, name, opts)
	case "mode":
		return c.mode(ctx, sub, name)
	}

	switch name {
	case "get":
		return c.get(sub), nil
	case "unsubscribe":
		return c.unsubscribe(ctx, sub)
	default:
		return Ephemeral(":x: Unknown subcommand"), nil
	}
}

func (c Config) get(sub *domain.Subscription) *Response {
	channel := "unknown"
	if sub.ChannelID != "" {
		channel = fmt.Sprintf("<#%s>", sub.ChannelID)
	}

	msg := strings.Join([]string{
		"**Current configuration**",
		fmt.Sprintf("> **Channel:** %s", channel),
		fmt.Sprintf("> **Mode:** `%s`", strings.ToUpper(string(sub.Mode))),
		fmt.Sprintf("> **Roles:** %s", formatRoles(sub.RolePings, ", ")),
		fmt.Sprintf("> **Webhook:** `%s`", sub.Endpoint.ID),
	}, "\n")
	return Ephemeral(msg)
}

func (c Config) roles(ctx context.Context, sub *domain.Subscription, name string, opts []Option) (*Response, error) {
	if name == "get" {
		return Message("When the status page receives an update, the following roles will be pinged:\n>>> " + formatRoles(sub.RolePings, "\n")), nil
	}

	role, ok := StringOption(opts, "role")
	if !ok {
		return Ephemeral(":x: Missing role"), nil
	}

	switch name {
	case "add":
		if !sub.AddRolePing(role) {
			return Ephemeral(fmt.Sprintf(":x: <@&%s> is already pinged for updates", role)), nil
		}
		if err := c.Store.Upsert(ctx, sub); err != nil {
			return nil, err
		}
		return Message(fmt.Sprintf(":white_check_mark: <@&%s> will now be pinged for updates", role)), nil

	case "remove":
		if !sub.RemoveRolePing(role) {
			return Ephemeral(fmt.Sprintf(":x: <@&%s> is not pinged for updates", role)), nil
		}
		if err := c.Store.Upsert(ctx, sub); err != nil {
			return nil, err
		}
		return Message(fmt.Sprintf(":white_check_mark: <@&%s> will no longer be pinged for updates", role)), nil
	}

	return Ephemeral(":x: Unknown subcommand"), nil
}

func (c Config) mode(ctx context.Context, sub *domain.Subscription, name string) (*Response, error) {
	mode, err := domain.ParseMode(name)
	if err != nil {
		return Ephemeral(":x: Unknown mode"), nil
	}
	if sub.Mode == mode {
		return Ephemeral(fmt.Sprintf(":x: Mode is already set to `%s`", strings.ToUpper(string(mode)))), nil
	}

	sub.Mode = mode
	if err := c.Store.Upsert(ctx, sub); err != nil {
		return nil, err
	}

	if mode == domain.ModeEdit {
		return Message(":white_check_mark: Mode is now set to `EDIT`. Each incident will get one message in your status page feed, which will be edited every time an update is published."), nil
	}
	return Message(":white_check_mark: Mode is now set to `POST`. Every update will get its own message in your status page feed."), nil
}

func (c Config) unsubscribe(ctx context.Context, sub *domain.Subscription) (*Response, error) {
	if _, err := c.Store.Delete(ctx, sub.GuildID); err != nil {
		return nil, fmt.Errorf("deleting subscription: %w", err)
	}

	if c.Endpoints != nil && !c.Endpoints.Destination(sub.Endpoint).Delete(ctx) {
		c.Logger.Warn("could not delete webhook on unsubscribe", "guild_id", sub.GuildID, "webhook_id", sub.Endpoint.ID)
	}

	return Message(":white_check_mark: Unsubscribed from status page updates"), nil
}

func formatRoles(roles []string, sep string) string {
	if len(roles) == 0 {
		return "no roles configured"
	}
	mentions := make([]string, len(roles))
	for n, r := range roles {
		mentions[n] = fmt.Sprintf("<@&%s>", r)
	}
	return strings.Join(mentions, sep)
}
