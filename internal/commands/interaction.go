// Package commands implements the bot's slash commands behind a static
// registry.
package commands

import (
	"encoding/json"
	"strconv"

	"github.com/Priya8975/status-relay/internal/webhook"
)

type InteractionType int

const (
	InteractionPing               InteractionType = 1
	InteractionApplicationCommand InteractionType = 2
)

type ResponseType int

const (
	ResponsePong                     ResponseType = 1
	ResponseChannelMessageWithSource ResponseType = 4
)

// Permission bits and message flags used by the commands.
const (
	PermissionAdministrator  uint64 = 1 << 3
	PermissionManageWebhooks uint64 = 1 << 29

	FlagEphemeral = 1 << 6
)

// OptionType values for subcommand options.
const (
	OptionSubcommand      = 1
	OptionSubcommandGroup = 2
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Member struct {
	User        *User    `json:"user"`
	Roles       []string `json:"roles"`
	Permissions string   `json:"permissions"`
}

type Option struct {
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Options []Option        `json:"options,omitempty"`
}

type CommandData struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Options []Option `json:"options,omitempty"`
}

// Interaction is the subset of Discord's interaction payload the bot reads.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Data          *CommandData    `json:"data,omitempty"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
	Token         string          `json:"token"`
}

// UserID returns the invoking user whether the command ran in a guild or DM.
func (i *Interaction) UserID() string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// HasPermission reports whether the invoking member holds perm or is an
// administrator. It is always false outside a guild.
func (i *Interaction) HasPermission(perm uint64) bool {
	if i.Member == nil {
		return false
	}
	bits, err := strconv.ParseUint(i.Member.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return bits&PermissionAdministrator != 0 || bits&perm == perm
}

// Subcommand walks the option tree and returns the selected subcommand
// group (may be empty), subcommand and its options.
func (d *CommandData) Subcommand() (group, name string, opts []Option) {
	opts = d.Options
	for len(opts) > 0 {
		switch opts[0].Type {
		case OptionSubcommandGroup:
			group = opts[0].Name
			opts = opts[0].Options
		case OptionSubcommand:
			return group, opts[0].Name, opts[0].Options
		default:
			return group, name, opts
		}
	}
	return group, name, opts
}

// StringOption returns the string value of the named option.
func StringOption(opts []Option, name string) (string, bool) {
	for _, o := range opts {
		if o.Name != name {
			continue
		}
		var s string
		if err := json.Unmarshal(o.Value, &s); err != nil {
			return "", false
		}
		return s, true
	}
	return "", false
}

// BoolOption returns the boolean value of the named option, or def.
func BoolOption(opts []Option, name string, def bool) bool {
	for _, o := range opts {
		if o.Name != name {
			continue
		}
		var b bool
		if err := json.Unmarshal(o.Value, &b); err != nil {
			return def
		}
		return b
	}
	return def
}

type ResponseData struct {
	Content         string                   `json:"content,omitempty"`
	Embeds          []webhook.Embed          `json:"embeds,omitempty"`
	Flags           int                      `json:"flags,omitempty"`
	AllowedMentions *webhook.AllowedMentions `json:"allowed_mentions,omitempty"`
}

// Response is an interaction callback body.
type Response struct {
	Type ResponseType  `json:"type"`
	Data *ResponseData `json:"data,omitempty"`
}

// Pong answers a PING interaction.
func Pong() *Response {
	return &Response{Type: ResponsePong}
}

// Message is a public channel reply with mentions disabled.
func Message(content string) *Response {
	return &Response{
		Type: ResponseChannelMessageWithSource,
		Data: &ResponseData{
			Content:         content,
			AllowedMentions: &webhook.AllowedMentions{Parse: []string{}, Roles: []string{}},
		},
	}
}

// Ephemeral is a reply only the invoking user can see.
func Ephemeral(content string) *Response {
	r := Message(content)
	r.Data.Flags = FlagEphemeral
	return r
}
