package modlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/database"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/models"
)

type fakeMessages struct {
	mu       sync.Mutex
	next     int
	contents map[string]string
	sends    int
	edits    int
	failEdit bool
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{contents: make(map[string]string)}
}

func (f *fakeMessages) SendMessage(_ context.Context, channelID, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.sends++
	id := fmt.Sprintf("msg-%d", f.next)
	f.contents[id] = content
	return id, nil
}

func (f *fakeMessages) EditMessage(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEdit {
		return errors.New("403 forbidden")
	}
	f.edits++
	f.contents[messageID] = content
	return nil
}

func (f *fakeMessages) FetchMessage(_ context.Context, channelID, messageID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contents[messageID]
	if !ok {
		return "", errors.New("404 unknown message")
	}
	return c, nil
}

type fakeConfigs map[string]*models.GuildConfig

func (f fakeConfigs) GetConfig(_ context.Context, guildID string) (*models.GuildConfig, error) {
	if c, ok := f[guildID]; ok {
		return c, nil
	}
	return models.DefaultGuildConfig(guildID), nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []Record
}

func (s *recordingSink) Publish(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

type env struct {
	store    *database.Store
	messages *fakeMessages
	sink     *recordingSink
	modlog   *Modlog
}

func newEnv(t *testing.T) *env {
	t.Helper()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	store, err := database.NewStore(database.NewMemoryBackend(), database.StoreOptions{
		CacheSize: 64,
		Now:       func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	e := &env{store: store, messages: newFakeMessages(), sink: &recordingSink{}}
	configs := fakeConfigs{"g": {GuildID: "g", ModlogChannelID: "modlog"}}
	e.modlog = New(store, e.messages, configs, Options{
		Bot:   User{ID: "bot", Name: "PancyModlog"},
		Now:   func() time.Time { return now },
		Sinks: []EventSink{e.sink},
	})
	return e
}

func hours(n int) *time.Duration {
	d := time.Duration(n) * time.Hour
	return &d
}

func strPtr(s string) *string { return &s }

func TestLogCreatesInfractionAndLinksMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	inf, err := e.modlog.Log(ctx, LogEvent{
		Kind: LogMute, GuildID: "g", User: alice, Moderator: mod,
		Reason: "spam", Note: "first", Duration: hours(1),
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if inf.InfractionID != 1 || !inf.Active || inf.EndsAt == nil {
		t.Errorf("infraction = %+v, want active #1 with an expiry", inf)
	}

	stored, err := e.store.GetInfraction(ctx, "g", 1)
	if err != nil {
		t.Fatalf("GetInfraction() error = %v", err)
	}
	if stored.MessageID != "msg-1" {
		t.Errorf("MessageID = %q, want msg-1", stored.MessageID)
	}

	want := "🔇 **MEMBER MUTED (#1)**\n**User:** alice (`100`)\n**Duration:** 1 hour\n**Moderator:** mod\n**Reason:** spam\n**Note:** first\n"
	if got := e.messages.contents["msg-1"]; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}

	if len(e.sink.records) != 1 {
		t.Fatalf("published %d records, want 1", len(e.sink.records))
	}
	rec := e.sink.records[0]
	if rec.Category != CategoryLog || rec.Kind != "mute" || rec.MessageID != "msg-1" || rec.InfractionIDs[0] != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestLogIgnoresDurationForUntimedKinds(t *testing.T) {
	e := newEnv(t)
	inf, err := e.modlog.Log(context.Background(), LogEvent{
		Kind: LogKick, GuildID: "g", User: alice, Moderator: mod, Duration: hours(2),
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if inf.EndsAt != nil || inf.Active {
		t.Errorf("kick = %+v, want inactive with no expiry", inf)
	}
	if strings.Contains(e.messages.contents["msg-1"], "Duration") {
		t.Errorf("kick message renders a duration: %q", e.messages.contents["msg-1"])
	}
}

func TestLogForcebanAndAutoban(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	forced, err := e.modlog.Log(ctx, LogEvent{Kind: LogForceban, GuildID: "g", User: alice, Moderator: mod, Reason: "alt"})
	if err != nil {
		t.Fatalf("Log(forceban) error = %v", err)
	}
	if forced.Type != models.TypeBan {
		t.Errorf("forceban stored as %q, want ban", forced.Type)
	}
	if !strings.HasPrefix(e.messages.contents["msg-1"], "🔨 **USER FORCEBANNED (#1)**") {
		t.Errorf("forceban message = %q", e.messages.contents["msg-1"])
	}

	auto, err := e.modlog.Log(ctx, LogEvent{Kind: LogAutoban, GuildID: "g", User: User{ID: "200", Name: "phisher"}, Reason: "phishing"})
	if err != nil {
		t.Fatalf("Log(autoban) error = %v", err)
	}
	if auto.ModID != "bot" {
		t.Errorf("autoban ModID = %q, want bot", auto.ModID)
	}
	if !strings.Contains(e.messages.contents["msg-2"], "**Moderator:** PancyModlog") {
		t.Errorf("autoban message = %q", e.messages.contents["msg-2"])
	}
}

func TestDispatchSkipsGuildWithoutModlog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.modlog.Dispatch(ctx, LogEvent{Kind: LogWarn, GuildID: "unconfigured", User: alice, Moderator: mod})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if e.messages.sends != 0 {
		t.Errorf("sends = %d, want 0", e.messages.sends)
	}
	if h, _ := e.store.GetHistory(ctx, "unconfigured", alice.ID); h != nil {
		t.Errorf("history = %+v, want none", h)
	}
}

func TestDispatchSmallLog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.modlog.Dispatch(ctx, SmallLogEvent{Kind: SmallBanExpire, GuildID: "g", User: alice, InfractionID: 9}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got, want := e.messages.contents["msg-1"], "🔓 Ban expired for user alice (#9)"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}

	if err := e.modlog.Dispatch(ctx, SmallLogEvent{Kind: SmallExternalBan, GuildID: "g", User: alice, Moderator: &User{ID: "5", Name: "Beemo"}}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := e.messages.contents["msg-2"]; !strings.Contains(got, "has been banned by Beemo") {
		t.Errorf("message = %q", got)
	}
	if n, _ := e.store.Count(ctx, "g", database.SearchQuery{}); n != 0 {
		t.Errorf("infractions = %d, want 0 for notices", n)
	}
}

func massBan(t *testing.T, e *env, users int) []*models.Infraction {
	t.Helper()
	targets := make([]User, users)
	for i := range targets {
		targets[i] = User{ID: fmt.Sprintf("u%d", i), Name: fmt.Sprintf("user%d", i)}
	}
	infs, err := e.modlog.MassLog(context.Background(), MassActionLogEvent{
		Kind: MassBan, GuildID: "g", Users: targets, Moderator: mod, Reason: "raid",
	})
	if err != nil {
		t.Fatalf("MassLog() error = %v", err)
	}
	return infs
}

func TestMassLogSharesOneMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.store.Allocate(ctx, "g", 9); err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	infs := massBan(t, e, 6)
	if e.messages.sends != 1 {
		t.Errorf("sends = %d, want 1", e.messages.sends)
	}
	for i, inf := range infs {
		if inf.InfractionID != int64(10+i) {
			t.Errorf("infs[%d].InfractionID = %d, want %d", i, inf.InfractionID, 10+i)
		}
		if inf.BulkRange == nil || *inf.BulkRange != (models.BulkRange{Start: 10, End: 15}) {
			t.Errorf("infs[%d].BulkRange = %v, want [10,15]", i, inf.BulkRange)
		}
		stored, _ := e.store.GetInfraction(ctx, "g", inf.InfractionID)
		if stored.MessageID != "msg-1" {
			t.Errorf("#%d MessageID = %q, want msg-1", inf.InfractionID, stored.MessageID)
		}
	}
	if !strings.HasPrefix(e.messages.contents["msg-1"], "💥 **USERS MASS-BANNED (#10-15)**\n**Users:** 6\n") {
		t.Errorf("message = %q", e.messages.contents["msg-1"])
	}
}

func TestEditInfraction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inf, _ := e.modlog.Log(ctx, LogEvent{Kind: LogMute, GuildID: "g", User: alice, Moderator: mod, Reason: "spam", Duration: hours(1)})

	updated, err := e.modlog.EditInfraction(ctx, inf, Edit{Reason: strPtr("flooding"), EditedBy: "bob"})
	if err != nil {
		t.Fatalf("EditInfraction() error = %v", err)
	}
	if updated.Reason != "flooding (edited by bob)" {
		t.Errorf("Reason = %q", updated.Reason)
	}
	if got := e.messages.contents["msg-1"]; !strings.Contains(got, "**Reason:** flooding (edited by bob)\n") {
		t.Errorf("message = %q", got)
	}
	if e.messages.edits != 1 {
		t.Errorf("edits = %d, want 1", e.messages.edits)
	}
}

func TestEditDurationFromCreation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inf, _ := e.modlog.Log(ctx, LogEvent{Kind: LogBan, GuildID: "g", User: alice, Moderator: mod, Duration: hours(1)})

	updated, err := e.modlog.EditDuration(ctx, inf, hours(3), "bob")
	if err != nil {
		t.Fatalf("EditDuration() error = %v", err)
	}
	if want := inf.CreatedAt.Add(3 * time.Hour); !updated[0].EndsAt.Equal(want) {
		t.Errorf("EndsAt = %v, want %v", updated[0].EndsAt, want)
	}
	if got := e.messages.contents["msg-1"]; !strings.Contains(got, "**Duration:** 3 hours (edited by bob)\n") {
		t.Errorf("message = %q", got)
	}

	updated, err = e.modlog.EditDuration(ctx, inf, nil, "bob")
	if err != nil {
		t.Fatalf("EditDuration(permanent) error = %v", err)
	}
	if updated[0].EndsAt != nil {
		t.Errorf("EndsAt = %v, want nil", updated[0].EndsAt)
	}
	if got := e.messages.contents["msg-1"]; !strings.Contains(got, "**Duration:** permanent (edited by bob)\n") {
		t.Errorf("message = %q", got)
	}
}

func TestEditBulkRangeEditsOneMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.store.Allocate(ctx, "g", 9)
	massBan(t, e, 6)

	target, _ := e.store.GetInfraction(ctx, "g", 12)
	linked, err := e.modlog.Linked(ctx, target)
	if err != nil {
		t.Fatalf("Linked() error = %v", err)
	}
	if len(linked) != 6 {
		t.Fatalf("Linked() returned %d infractions, want 6", len(linked))
	}

	updated, edited, err := e.modlog.EditInfractionsBulk(ctx, linked, Edit{Reason: strPtr("coordinated raid")}, true)
	if err != nil {
		t.Fatalf("EditInfractionsBulk() error = %v", err)
	}
	if edited != 1 || e.messages.edits != 1 {
		t.Errorf("message edits = %d (reported %d), want 1", e.messages.edits, edited)
	}
	for _, inf := range updated {
		stored, _ := e.store.GetInfraction(ctx, "g", inf.InfractionID)
		if stored.Reason != "coordinated raid" {
			t.Errorf("#%d Reason = %q, want %q", inf.InfractionID, stored.Reason, "coordinated raid")
		}
	}
}

func TestEditBulkUnlinkedSkipsCoveredRanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	single, _ := e.modlog.Log(ctx, LogEvent{Kind: LogBan, GuildID: "g", User: User{ID: "solo"}, Moderator: mod})
	massBan(t, e, 3)

	infs, err := e.store.GetInfractionsBulk(ctx, "g", []int64{single.InfractionID, 2, 3, 4})
	if err != nil {
		t.Fatalf("GetInfractionsBulk() error = %v", err)
	}
	_, edited, err := e.modlog.EditInfractionsBulk(ctx, infs, Edit{Note: strPtr("reviewed")}, false)
	if err != nil {
		t.Fatalf("EditInfractionsBulk() error = %v", err)
	}
	if edited != 2 || e.messages.edits != 2 {
		t.Errorf("message edits = %d (reported %d), want 2", e.messages.edits, edited)
	}
}

func TestEditBulkLinkedMismatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, _ := e.modlog.Log(ctx, LogEvent{Kind: LogBan, GuildID: "g", User: alice, Moderator: mod})
	b, _ := e.modlog.Log(ctx, LogEvent{Kind: LogBan, GuildID: "g", User: User{ID: "200"}, Moderator: mod})
	c, _ := e.modlog.Log(ctx, LogEvent{Kind: LogWarn, GuildID: "g", User: User{ID: "300"}, Moderator: mod})

	tests := []struct {
		name  string
		infs  []*models.Infraction
		field string
	}{
		{"type", []*models.Infraction{a, c}, "type"},
		{"message", []*models.Infraction{a, b}, "message_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.modlog.EditInfractionsBulk(ctx, tt.infs, Edit{Reason: strPtr("x")}, true)
			var mismatch *moderrors.BulkEditMismatchError
			if !errors.As(err, &mismatch) || mismatch.Field != tt.field {
				t.Errorf("error = %v, want mismatch on %s", err, tt.field)
			}
		})
	}
}

func TestEditMessageFailureKeepsStoredEdit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inf, _ := e.modlog.Log(ctx, LogEvent{Kind: LogWarn, GuildID: "g", User: alice, Moderator: mod, Reason: "spam"})
	e.messages.failEdit = true

	updated, err := e.modlog.EditInfraction(ctx, inf, Edit{Reason: strPtr("flood")})
	var notFound *moderrors.ModlogMessageNotFoundError
	if !errors.As(err, &notFound) || notFound.InfractionID != inf.InfractionID {
		t.Fatalf("error = %v, want ModlogMessageNotFoundError", err)
	}
	if updated == nil || updated.Reason != "flood" {
		t.Errorf("updated = %+v, want reason flood", updated)
	}
	stored, _ := e.store.GetInfraction(ctx, "g", inf.InfractionID)
	if stored.Reason != "flood" {
		t.Errorf("stored Reason = %q, want flood", stored.Reason)
	}
}

func TestFetchInfractionMessage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.modlog.Log(ctx, LogEvent{Kind: LogNote, GuildID: "g", User: alice, Moderator: mod, Reason: "watch"})

	msg, err := e.modlog.FetchInfractionMessage(ctx, "g", 1)
	if err != nil {
		t.Fatalf("FetchInfractionMessage() error = %v", err)
	}
	if msg.ChannelID != "modlog" || msg.ID != "msg-1" || !strings.Contains(msg.Content, "NOTE CREATED") {
		t.Errorf("message = %+v", msg)
	}

	if _, err := e.modlog.FetchInfractionMessage(ctx, "g", 42); !errors.Is(err, moderrors.ErrNotFound) {
		t.Errorf("missing infraction error = %v, want ErrNotFound", err)
	}
	var cfg *moderrors.NotConfiguredError
	if _, err := e.modlog.FetchInfractionMessage(ctx, "other", 1); !errors.As(err, &cfg) {
		t.Errorf("unconfigured guild error = %v, want NotConfiguredError", err)
	}
}
