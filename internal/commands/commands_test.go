package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/statuspage"
	"github.com/Priya8975/status-relay/internal/store"
	"github.com/Priya8975/status-relay/internal/webhook"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func raw(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// command builds an interaction from a guild member with the given
// permission bits. path is "name", "name sub" or "name group sub".
func command(path string, perms string, opts ...Option) *Interaction {
	parts := strings.Fields(path)
	data := &CommandData{Name: parts[0]}
	switch len(parts) {
	case 2:
		data.Options = []Option{{Name: parts[1], Type: OptionSubcommand, Options: opts}}
	case 3:
		data.Options = []Option{{Name: parts[1], Type: OptionSubcommandGroup, Options: []Option{
			{Name: parts[2], Type: OptionSubcommand, Options: opts},
		}}}
	default:
		data.Options = opts
	}
	return &Interaction{
		Type:    InteractionApplicationCommand,
		Data:    data,
		GuildID: "G1",
		Member:  &Member{User: &User{ID: "user-1"}, Permissions: perms},
	}
}

const manageWebhooks = "536870912"

type fakeEndpoints struct {
	deleted []string
}

func (f *fakeEndpoints) Destination(ep domain.Endpoint) webhook.Destination {
	return &fakeDestination{f: f, id: ep.ID}
}

type fakeDestination struct {
	f  *fakeEndpoints
	id string
}

func (d *fakeDestination) Validate(ctx context.Context) bool { return true }
func (d *fakeDestination) Send(ctx context.Context, msg webhook.Message) (domain.DeliveryResult, error) {
	return domain.DeliveryResult{}, nil
}
func (d *fakeDestination) Edit(ctx context.Context, id string, msg webhook.Message) (domain.DeliveryResult, error) {
	return domain.DeliveryResult{}, nil
}
func (d *fakeDestination) Delete(ctx context.Context) bool {
	d.f.deleted = append(d.f.deleted, d.id)
	return true
}

func setupConfig(t *testing.T) (Config, *store.MemoryStore, *fakeEndpoints) {
	t.Helper()
	st := store.NewMemoryStore()
	eps := &fakeEndpoints{}
	st.Upsert(context.Background(), &domain.Subscription{
		GuildID:   "G1",
		ChannelID: "C1",
		Endpoint:  domain.Endpoint{ID: "wh-1", Token: "tok"},
		Mode:      domain.ModeEdit,
	})
	return Config{Store: st, Endpoints: eps, Logger: testLogger()}, st, eps
}

func TestInteraction_HasPermission(t *testing.T) {
	tests := []struct {
		perms string
		want  bool
	}{
		{manageWebhooks, true},
		{"8", true},
		{"2048", false},
		{"", false},
		{"not-a-number", false},
	}
	for _, tt := range tests {
		i := &Interaction{Member: &Member{Permissions: tt.perms}}
		if got := i.HasPermission(PermissionManageWebhooks); got != tt.want {
			t.Errorf("HasPermission(%q) = %v, want %v", tt.perms, got, tt.want)
		}
	}

	if (&Interaction{}).HasPermission(PermissionManageWebhooks) {
		t.Error("DM interactions have no permissions")
	}
}

func TestCommandData_Subcommand(t *testing.T) {
	i := command("config roles add", manageWebhooks, Option{Name: "role", Type: 8, Value: raw("R1")})

	group, name, opts := i.Data.Subcommand()
	if group != "roles" || name != "add" {
		t.Errorf("got %q/%q, want roles/add", group, name)
	}
	if role, ok := StringOption(opts, "role"); !ok || role != "R1" {
		t.Errorf("unexpected role option %q, %v", role, ok)
	}
}

func TestConfig_RequiresPermission(t *testing.T) {
	cfg, _, _ := setupConfig(t)

	resp, err := cfg.Run(context.Background(), command("config get", "0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Data.Content, "Manage Webhooks") || resp.Data.Flags != FlagEphemeral {
		t.Errorf("expected ephemeral permission error, got %+v", resp.Data)
	}
}

func TestConfig_NotConfigured(t *testing.T) {
	cfg := Config{Store: store.NewMemoryStore(), Logger: testLogger()}

	resp, _ := cfg.Run(context.Background(), command("config get", manageWebhooks))
	if resp.Data.Content != notConfigured {
		t.Errorf("unexpected response %q", resp.Data.Content)
	}
}

func TestConfig_Get(t *testing.T) {
	cfg, _, _ := setupConfig(t)

	resp, _ := cfg.Run(context.Background(), command("config get", manageWebhooks))
	for _, want := range []string{"<#C1>", "`EDIT`", "no roles configured", "wh-1"} {
		if !strings.Contains(resp.Data.Content, want) {
			t.Errorf("expected %q in %q", want, resp.Data.Content)
		}
	}
}

func TestConfig_RolesAddRemove(t *testing.T) {
	cfg, st, _ := setupConfig(t)
	ctx := context.Background()
	role := Option{Name: "role", Type: 8, Value: raw("R1")}

	cfg.Run(ctx, command("config roles add", manageWebhooks, role))
	resp, _ := cfg.Run(ctx, command("config roles add", manageWebhooks, role))
	if !strings.Contains(resp.Data.Content, "already") {
		t.Errorf("expected duplicate notice, got %q", resp.Data.Content)
	}

	sub, _ := st.Get(ctx, "G1")
	if len(sub.RolePings) != 1 || sub.RolePings[0] != "R1" {
		t.Fatalf("unexpected role pings %v", sub.RolePings)
	}

	resp, _ = cfg.Run(ctx, command("config roles get", manageWebhooks))
	if !strings.Contains(resp.Data.Content, "<@&R1>") {
		t.Errorf("expected role listed, got %q", resp.Data.Content)
	}
	if len(resp.Data.AllowedMentions.Roles) != 0 {
		t.Error("listing roles must not ping them")
	}

	cfg.Run(ctx, command("config roles remove", manageWebhooks, role))
	sub, _ = st.Get(ctx, "G1")
	if len(sub.RolePings) != 0 {
		t.Errorf("expected role removed, got %v", sub.RolePings)
	}
}

func TestConfig_Mode(t *testing.T) {
	cfg, st, _ := setupConfig(t)
	ctx := context.Background()

	resp, _ := cfg.Run(ctx, command("config mode edit", manageWebhooks))
	if !strings.Contains(resp.Data.Content, "already set") {
		t.Errorf("expected already-set notice, got %q", resp.Data.Content)
	}

	resp, _ = cfg.Run(ctx, command("config mode post", manageWebhooks))
	if !strings.Contains(resp.Data.Content, "`POST`") {
		t.Errorf("unexpected response %q", resp.Data.Content)
	}
	sub, _ := st.Get(ctx, "G1")
	if sub.Mode != domain.ModePost {
		t.Errorf("expected post mode stored, got %q", sub.Mode)
	}
}

func TestConfig_Unsubscribe(t *testing.T) {
	cfg, st, eps := setupConfig(t)
	ctx := context.Background()

	cfg.Run(ctx, command("config unsubscribe", manageWebhooks))

	if sub, _ := st.Get(ctx, "G1"); sub != nil {
		t.Error("subscription should be deleted")
	}
	if len(eps.deleted) != 1 || eps.deleted[0] != "wh-1" {
		t.Errorf("expected webhook deleted, got %v", eps.deleted)
	}
}

type fakeSweeper struct {
	dryRuns []bool
}

func (f *fakeSweeper) Sweep(ctx context.Context, dryRun bool) (domain.SweepReport, error) {
	f.dryRuns = append(f.dryRuns, dryRun)
	r := domain.SweepReport{Total: 3, Valid: 2, Invalid: 1}
	if !dryRun {
		r.Deleted = 1
	}
	return r, nil
}

func TestPurge_OperatorOnly(t *testing.T) {
	sw := &fakeSweeper{}
	p := Purge{Sweeper: sw, Operators: []string{"op-1"}}

	resp, _ := p.Run(context.Background(), command("purge", "8"))
	if !strings.Contains(resp.Data.Content, "restricted") {
		t.Errorf("expected restriction, got %q", resp.Data.Content)
	}
	if len(sw.dryRuns) != 0 {
		t.Error("sweeper must not run for non-operators")
	}
}

func TestPurge_DryRun(t *testing.T) {
	sw := &fakeSweeper{}
	p := Purge{Sweeper: sw, Operators: []string{"user-1"}}

	resp, err := p.Run(context.Background(), command("purge", "0", Option{Name: "dry_run", Type: 5, Value: raw(true)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sw.dryRuns) != 1 || !sw.dryRuns[0] {
		t.Fatalf("expected a dry run, got %v", sw.dryRuns)
	}
	for _, want := range []string{"Total:** 3", "Invalid:** 1", "Deleted:** 0"} {
		if !strings.Contains(resp.Data.Content, want) {
			t.Errorf("expected %q in %q", want, resp.Data.Content)
		}
	}
}

type fakeSummary struct {
	summary *statuspage.Summary
	err     error
}

func (f fakeSummary) Summary(ctx context.Context) (*statuspage.Summary, error) {
	return f.summary, f.err
}

func TestStatus(t *testing.T) {
	src := fakeSummary{summary: &statuspage.Summary{
		Status: statuspage.PageStatus{Description: "Partial System Outage"},
		Components: []statuspage.Component{
			{ID: "api", Name: "API", Status: "partial_outage"},
			{ID: "voice", Name: "Voice", Status: "operational", Group: true, Components: []string{"us-east", "europe"}},
			{ID: "us-east", Name: "US East", Status: "operational"},
			{ID: "europe", Name: "Europe", Status: "major_outage"},
		},
	}}
	s := Status{Source: src}

	resp, _ := s.Run(context.Background(), command("status summary", "0"))
	if !strings.Contains(resp.Data.Content, "**Status:** Partial System Outage") ||
		!strings.Contains(resp.Data.Content, "**API**: Partial outage") {
		t.Errorf("unexpected summary %q", resp.Data.Content)
	}
	if strings.Contains(resp.Data.Content, "Europe") {
		t.Error("summary should exclude voice servers")
	}

	resp, _ = s.Run(context.Background(), command("status voice", "0"))
	lines := strings.Split(resp.Data.Content, "\n")
	if len(lines) != 3 || !strings.Contains(lines[1], "Europe") || !strings.Contains(lines[2], "US East") {
		t.Errorf("unexpected voice status %q", resp.Data.Content)
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry(testLogger(), nil, nil, Ping{}, failing{})

	resp := r.Dispatch(context.Background(), command("ping", "0"))
	if resp.Data.Content != "Pong!" {
		t.Errorf("unexpected ping response %q", resp.Data.Content)
	}

	resp = r.Dispatch(context.Background(), command("nope", "0"))
	if !strings.Contains(resp.Data.Content, "Unknown command") {
		t.Errorf("unexpected response %q", resp.Data.Content)
	}

	resp = r.Dispatch(context.Background(), command("fail", "0"))
	if resp.Data.Flags != FlagEphemeral || !strings.Contains(resp.Data.Content, "Something went wrong") {
		t.Errorf("expected ephemeral error reply, got %+v", resp.Data)
	}

	if names := r.Names(); len(names) != 2 || names[0] != "fail" || names[1] != "ping" {
		t.Errorf("unexpected names %v", names)
	}
}

type failing struct{}

func (failing) Name() string { return "fail" }
func (failing) Run(ctx context.Context, i *Interaction) (*Response, error) {
	return nil, errors.New("boom")
}

func setupCooldown(t *testing.T, window time.Duration) (*Cooldown, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCooldown(client, window, 1, testLogger()), mr
}

func TestCooldown(t *testing.T) {
	cd, _ := setupCooldown(t, time.Minute)
	ctx := context.Background()

	if !cd.Allow(ctx, "user-1", "ping") {
		t.Fatal("first call should be allowed")
	}
	if cd.Allow(ctx, "user-1", "ping") {
		t.Error("second call within window should be denied")
	}
	if !cd.Allow(ctx, "user-2", "ping") {
		t.Error("other users are not affected")
	}
	if !cd.Allow(ctx, "user-1", "status") {
		t.Error("other commands are not affected")
	}
}

func TestCooldown_RedisDownFailsOpen(t *testing.T) {
	cd, mr := setupCooldown(t, time.Minute)
	mr.Close()

	if !cd.Allow(context.Background(), "user-1", "ping") {
		t.Error("expected fail-open when redis is unavailable")
	}
}

func TestRegistry_CooldownApplies(t *testing.T) {
	cd, _ := setupCooldown(t, time.Minute)
	r := NewRegistry(testLogger(), nil, cd, Ping{})

	r.Dispatch(context.Background(), command("ping", "0"))
	resp := r.Dispatch(context.Background(), command("ping", "0"))

	if !strings.Contains(resp.Data.Content, "too fast") {
		t.Errorf("expected cooldown notice, got %q", resp.Data.Content)
	}
}
