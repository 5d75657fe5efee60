package commands

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Priya8975/status-relay/internal/render"
	"github.com/Priya8975/status-relay/internal/statuspage"
)

const voiceGroupName = "Voice"

// SummarySource fetches the status page summary.
type SummarySource interface {
	Summary(ctx context.Context) (*statuspage.Summary, error)
}

// Status shows live component states from the status page.
type Status struct {
	Source SummarySource
}

func (Status) Name() string { return "status" }

func (s Status) Run(ctx context.Context, i *Interaction) (*Response, error) {
	summary, err := s.Source.Summary(ctx)
	if err != nil {
		return nil, err
	}

	var voiceIDs []string
	for _, c := range summary.Components {
		if c.Name == voiceGroupName && c.Group {
			voiceIDs = c.Components
			break
		}
	}

	_, sub, _ := i.Data.Subcommand()
	switch sub {
	case "voice":
		var voice []statuspage.Component
		for _, c := range summary.Components {
			if slices.Contains(voiceIDs, c.ID) {
				voice = append(voice, c)
			}
		}
		return Ephemeral("**Voice Server Status:**\n" + formatComponents(voice)), nil

	case "summary":
		var rest []statuspage.Component
		for _, c := range summary.Components {
			if !slices.Contains(voiceIDs, c.ID) {
				rest = append(rest, c)
			}
		}
		return Ephemeral(fmt.Sprintf("**Status:** %s\n%s", summary.Status.Description, formatComponents(rest))), nil

	default:
		return Ephemeral(":x: Unknown subcommand"), nil
	}
}

func formatComponents(components []statuspage.Component) string {
	if len(components) == 0 {
		return "No component data available"
	}

	sort.Slice(components, func(a, b int) bool { return components[a].Name < components[b].Name })

	lines := make([]string, len(components))
	for n, c := range components {
		lines[n] = fmt.Sprintf("> %s **%s**: %s", render.ComponentEmoji(c.Status), c.Name, humanize(c.Status))
	}
	return strings.Join(lines, "\n")
}

// humanize turns "partial_outage" into "Partial outage".
func humanize(status string) string {
	s := strings.ReplaceAll(status, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
