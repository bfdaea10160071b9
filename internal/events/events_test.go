package events

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/moderation"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/bwmarrin/discordgo"
)

type call struct {
	name   string
	guild  string
	user   string
	before []string
	after  []string
}

type fakeWatcher struct {
	calls []call
	botID string
}

func (f *fakeWatcher) OnMemberBan(_ context.Context, g string, u modlog.User) error {
	f.calls = append(f.calls, call{name: "ban", guild: g, user: u.ID})
	return nil
}

func (f *fakeWatcher) OnMemberUnban(_ context.Context, g string, u modlog.User) error {
	f.calls = append(f.calls, call{name: "unban", guild: g, user: u.ID})
	return nil
}

func (f *fakeWatcher) OnMemberRemove(_ context.Context, g string, m *moderation.Member) error {
	f.calls = append(f.calls, call{name: "remove", guild: g, user: m.User.ID, before: m.Roles})
	return nil
}

func (f *fakeWatcher) OnMemberUpdate(_ context.Context, g string, u modlog.User, before, after []string) error {
	f.calls = append(f.calls, call{name: "update", guild: g, user: u.ID, before: before, after: after})
	return nil
}

func (f *fakeWatcher) OnMemberJoin(_ context.Context, g string, u modlog.User) {
	f.calls = append(f.calls, call{name: "join", guild: g, user: u.ID})
}

func (f *fakeWatcher) SetBotID(id string) { f.botID = id }

func newHandlers() (*Handlers, *fakeWatcher) {
	w := &fakeWatcher{}
	h := NewHandlers(w, nil)
	h.run = func(fn func()) { fn() }
	return h, w
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{GuildID: "g", User: &discordgo.User{ID: id, Username: id}, Roles: roles}
}

func TestBanEvents(t *testing.T) {
	h, w := newHandlers()
	h.onGuildBanAdd(nil, &discordgo.GuildBanAdd{GuildID: "g", User: &discordgo.User{ID: "alice"}})
	h.onGuildBanRemove(nil, &discordgo.GuildBanRemove{GuildID: "g", User: &discordgo.User{ID: "alice"}})
	h.onGuildBanAdd(nil, &discordgo.GuildBanAdd{GuildID: "g"})

	want := []call{{name: "ban", guild: "g", user: "alice"}, {name: "unban", guild: "g", user: "alice"}}
	if !reflect.DeepEqual(w.calls, want) {
		t.Errorf("calls = %+v, want %+v", w.calls, want)
	}
}

func TestMemberRemoveUsesCachedRoles(t *testing.T) {
	tests := []struct {
		name  string
		event *discordgo.GuildMemberRemove
		want  []string
	}{
		{"cached", &discordgo.GuildMemberRemove{Member: member("bob"), BeforeDelete: member("bob", "muted")}, []string{"muted"}},
		{"payload only", &discordgo.GuildMemberRemove{Member: member("bob", "member")}, []string{"member"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, w := newHandlers()
			h.onGuildMemberRemove(nil, tt.event)
			if len(w.calls) != 1 || !reflect.DeepEqual(w.calls[0].before, tt.want) {
				t.Errorf("calls = %+v, want roles %v", w.calls, tt.want)
			}
		})
	}
}

func TestMemberUpdateOnlyOnRoleChange(t *testing.T) {
	tests := []struct {
		name  string
		event *discordgo.GuildMemberUpdate
		calls int
	}{
		{"role added", &discordgo.GuildMemberUpdate{Member: member("bob", "a", "muted"), BeforeUpdate: member("bob", "a")}, 1},
		{"reordered", &discordgo.GuildMemberUpdate{Member: member("bob", "b", "a"), BeforeUpdate: member("bob", "a", "b")}, 0},
		{"swapped", &discordgo.GuildMemberUpdate{Member: member("bob", "b"), BeforeUpdate: member("bob", "a")}, 1},
		{"not cached", &discordgo.GuildMemberUpdate{Member: member("bob", "muted")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, w := newHandlers()
			h.onGuildMemberUpdate(nil, tt.event)
			if len(w.calls) != tt.calls {
				t.Errorf("calls = %d, want %d", len(w.calls), tt.calls)
			}
		})
	}
}

func TestMemberAddSkipsBots(t *testing.T) {
	h, w := newHandlers()
	bot := member("beemo")
	bot.User.Bot = true
	h.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: bot})
	h.onGuildMemberAdd(nil, &discordgo.GuildMemberAdd{Member: member("alice")})

	if len(w.calls) != 1 || w.calls[0].name != "join" || w.calls[0].user != "alice" {
		t.Errorf("calls = %+v, want one join for alice", w.calls)
	}
}

func TestReadySetsBotID(t *testing.T) {
	h, w := newHandlers()
	h.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot", Username: "Modlog"}})
	if w.botID != "bot" {
		t.Errorf("botID = %q, want bot", w.botID)
	}
}

func TestJoinedRecently(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if !joinedRecently(now.Add(-5*time.Second), now) {
		t.Error("joinedRecently(5s ago) = false, want true")
	}
	if joinedRecently(now.Add(-time.Hour), now) {
		t.Error("joinedRecently(1h ago) = true, want false")
	}
}
