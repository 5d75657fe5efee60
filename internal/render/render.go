// Package render turns status-page incidents into Discord webhook messages.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/webhook"
)

const (
	authorName    = "Discord Status"
	authorIconURL = "https://discord.com/assets/2c21aeda16de354ba5334551a883b481.png"
	authorURL     = "https://discordstatus.com"
	fallbackTitle = "Discord Status Update"
	emptyBody     = "no information available."

	maxTitleLen   = 256
	maxFieldValue = 1024
	maxFields     = 25
)

const (
	colorOrange = 0xED9932
	colorRed    = 0xF15832
	colorYellow = 0xF2EF42
	colorGreen  = 0x43B581
	colorBlue   = 0x4287F5
)

const (
	emojiOrange = "<:statusorange:797222239979700263>"
	emojiRed    = "<:statusred:797222239661457478>"
	emojiYellow = "<:statusyellow:797222239522390056>"
	emojiGreen  = "<:statusgreen:797222239418187786>"
	emojiBlue   = "<:statusblue:797222239942475786>"
)

var stripHTML = bluemonday.StrictPolicy()

// StatusColor returns the embed color for a status.
func StatusColor(s domain.IncidentStatus) int {
	switch s {
	case domain.StatusInvestigating:
		return colorOrange
	case domain.StatusIdentified:
		return colorRed
	case domain.StatusMonitoring:
		return colorYellow
	case domain.StatusResolved:
		return colorGreen
	default:
		return colorBlue
	}
}

// StatusEmoji returns the custom emoji shown next to an update.
func StatusEmoji(s domain.IncidentStatus) string {
	switch s {
	case domain.StatusInvestigating:
		return emojiOrange
	case domain.StatusIdentified:
		return emojiRed
	case domain.StatusMonitoring:
		return emojiYellow
	case domain.StatusResolved:
		return emojiGreen
	default:
		return emojiBlue
	}
}

// ComponentEmoji returns the emoji for a component status or page indicator.
func ComponentEmoji(status string) string {
	switch status {
	case "operational", "none", "resolved":
		return emojiGreen
	case "degraded_performance", "minor", "monitoring":
		return emojiYellow
	case "partial_outage", "major", "investigating":
		return emojiOrange
	case "major_outage", "critical", "identified":
		return emojiRed
	default:
		return emojiBlue
	}
}

// RelativeTimestamp formats t as a Discord relative timestamp tag.
func RelativeTimestamp(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}

// RenderIncidentMessage builds the message for an incident. In post mode the
// embed carries only the latest update and takes its color; in edit mode it
// carries up to the 25 most recent updates, oldest first, colored by the
// incident status.
func RenderIncidentMessage(mode domain.Mode, incident domain.Incident, rolePings []string) webhook.Message {
	embed := baseEmbed(incident)

	switch mode {
	case domain.ModePost:
		if len(incident.Updates) > 0 {
			latest := incident.Updates[0]
			embed.Color = StatusColor(latest.Status)
			embed.Fields = []webhook.Field{updateField(latest)}
		}
	default:
		n := min(len(incident.Updates), maxFields)
		embed.Fields = make([]webhook.Field, 0, n)
		for i := n - 1; i >= 0; i-- {
			embed.Fields = append(embed.Fields, updateField(incident.Updates[i]))
		}
	}

	return webhook.Message{
		Content: RolePingContent(rolePings),
		Embeds:  []webhook.Embed{embed},
		AllowedMentions: &webhook.AllowedMentions{
			Parse: []string{},
			Roles: append([]string{}, rolePings...),
		},
	}
}

// RolePingContent renders role ids as space separated role mentions.
func RolePingContent(rolePings []string) string {
	mentions := make([]string, len(rolePings))
	for i, id := range rolePings {
		mentions[i] = fmt.Sprintf("<@&%s>", id)
	}
	return strings.Join(mentions, " ")
}

func baseEmbed(incident domain.Incident) webhook.Embed {
	status := incident.Status
	if status == "" && len(incident.Updates) > 0 {
		status = incident.Updates[0].Status
	}

	embed := webhook.Embed{
		URL:   incident.Shortlink,
		Color: StatusColor(status),
		Author: &webhook.Author{
			Name:    authorName,
			URL:     authorURL,
			IconURL: authorIconURL,
		},
		Footer: &webhook.Footer{Text: "Started"},
	}

	if !incident.CreatedAt.IsZero() {
		embed.Timestamp = incident.CreatedAt.UTC().Format(time.RFC3339)
	}

	if utf8.RuneCountInString(incident.Name) > maxTitleLen {
		embed.Title = fallbackTitle
		embed.Description = fmt.Sprintf("**%s**", incident.Name)
	} else {
		embed.Title = incident.Name
	}

	return embed
}

func updateField(u domain.IncidentUpdate) webhook.Field {
	ts := u.UpdatedAt
	if ts.IsZero() {
		ts = u.CreatedAt
	}

	return webhook.Field{
		Name:  fmt.Sprintf("%s %s (%s)", StatusEmoji(u.Status), u.Status.Title(), RelativeTimestamp(ts)),
		Value: fieldValue(u.Body),
	}
}

// fieldValue strips markup from an update body and fits it in an embed field.
func fieldValue(body string) string {
	text := strings.TrimSpace(html.UnescapeString(stripHTML.Sanitize(body)))
	if text == "" {
		return emptyBody
	}
	return truncate(text, maxFieldValue)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

// WelcomeMessage is posted once through a freshly installed webhook.
func WelcomeMessage() webhook.Message {
	return webhook.Message{
		Embeds: []webhook.Embed{{
			Description: fmt.Sprintf("Subscribed to [Discord Status](%s) updates!", authorURL),
			Color:       colorGreen,
			Author:      &webhook.Author{Name: authorName, URL: authorURL, IconURL: authorIconURL},
			Footer:      &webhook.Footer{Text: "To unsubscribe, use /config unsubscribe or delete the integration in Server Settings > Integrations"},
		}},
		AllowedMentions: &webhook.AllowedMentions{Parse: []string{}, Roles: []string{}},
	}
}
