package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Priya8975/status-relay/internal/store"
)

const sourceURL = "https://github.com/Priya8975/status-relay"

// About reports the bot's source and subscription count.
type About struct {
	Store store.SubscriptionStore
}

func (About) Name() string { return "about" }

func (a About) Run(ctx context.Context, i *Interaction) (*Response, error) {
	subs, err := a.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting subscriptions: %w", err)
	}

	msg := strings.Join([]string{
		"**Discord Status**",
		fmt.Sprintf("> **Source Code:** <%s>", sourceURL),
		fmt.Sprintf("> **Subscriptions:** %d", len(subs)),
	}, "\n")
	return Ephemeral(msg), nil
}

// Invite links to the webhook install flow, or to a plain application
// invite when the install flow is not configured.
type Invite struct {
	InstallURL string
}

func (Invite) Name() string { return "invite" }

func (v Invite) Run(ctx context.Context, i *Interaction) (*Response, error) {
	if v.InstallURL != "" {
		return Ephemeral(v.InstallURL), nil
	}
	q := url.Values{}
	q.Set("client_id", i.ApplicationID)
	q.Set("scope", "applications.commands")
	return Ephemeral("https://discord.com/oauth2/authorize?" + q.Encode()), nil
}

// Support links to the support server.
type Support struct {
	URL string
}

func (Support) Name() string { return "support" }

func (s Support) Run(ctx context.Context, i *Interaction) (*Response, error) {
	if s.URL == "" {
		return Ephemeral("No support server is configured."), nil
	}
	return Ephemeral(s.URL), nil
}
