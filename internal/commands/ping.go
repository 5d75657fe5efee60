package commands

import (
	"context"
)

type Ping struct{}

func (Ping) Name() string { return "ping" }

func (Ping) Run(ctx context.Context, i *Interaction) (*Response, error) {
	return Ephemeral("Pong!"), nil
}
