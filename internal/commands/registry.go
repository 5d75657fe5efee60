package commands

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Priya8975/status-relay/internal/metrics"
)

// Command is a slash command handler.
type Command interface {
	Name() string
	Run(ctx context.Context, i *Interaction) (*Response, error)
}

// Limiter decides whether a user may run a command right now.
type Limiter interface {
	Allow(ctx context.Context, userID, command string) bool
}

// Registry maps command names to handlers. It is assembled once at startup.
type Registry struct {
	commands map[string]Command
	limiter  Limiter
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger, rec metrics.Recorder, limiter Limiter, cmds ...Command) *Registry {
	if rec == nil {
		rec = metrics.Nop{}
	}
	r := &Registry{
		commands: make(map[string]Command, len(cmds)),
		limiter:  limiter,
		metrics:  rec,
		logger:   logger,
	}
	for _, c := range cmds {
		r.commands[c.Name()] = c
	}
	return r
}

func (r *Registry) Get(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the command named in i. Unknown commands, cooldowns and
// handler errors all become ephemeral replies.
func (r *Registry) Dispatch(ctx context.Context, i *Interaction) *Response {
	if i.Data == nil {
		return Ephemeral(":x: Unsupported interaction")
	}

	cmd, ok := r.commands[i.Data.Name]
	if !ok {
		r.logger.Warn("unknown command", "command", i.Data.Name)
		return Ephemeral(":x: Unknown command")
	}

	if r.limiter != nil && !r.limiter.Allow(ctx, i.UserID(), cmd.Name()) {
		return Ephemeral(":hourglass: You're doing that too fast, try again in a few seconds.")
	}

	r.metrics.RecordCommand(cmd.Name())

	resp, err := cmd.Run(ctx, i)
	if err != nil {
		r.logger.Error("command failed",
			"command", cmd.Name(),
			"guild_id", i.GuildID,
			"user_id", i.UserID(),
			"error", err,
		)
		return Ephemeral(":x: Something went wrong running that command, please try again.")
	}
	return resp
}
