package commands

import (
	"context"
	"fmt"
	"slices"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Sweeper runs a maintenance sweep.
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (domain.SweepReport, error)
}

// Purge lets bot operators validate every stored webhook and drop the dead
// ones on demand.
type Purge struct {
	Sweeper   Sweeper
	Operators []string
}

func (Purge) Name() string { return "purge" }

func (p Purge) Run(ctx context.Context, i *Interaction) (*Response, error) {
	if !slices.Contains(p.Operators, i.UserID()) {
		return Ephemeral(":x: This command is restricted to bot operators."), nil
	}

	dryRun := BoolOption(i.Data.Options, "dry_run", false)

	report, err := p.Sweeper.Sweep(ctx, dryRun)
	if err != nil && report.Total == 0 {
		return nil, err
	}

	title := "Purged invalid webhooks"
	if dryRun {
		title = "Dry run, nothing was deleted"
	}
	msg := fmt.Sprintf("**%s**\n> **Total:** %d\n> **Valid:** %d\n> **Invalid:** %d\n> **Deleted:** %d",
		title, report.Total, report.Valid, report.Invalid, report.Deleted)
	if err != nil {
		msg += "\n:warning: " + err.Error()
	}
	return Ephemeral(msg), nil
}
