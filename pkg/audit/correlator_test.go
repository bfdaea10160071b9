package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string][]Entry
	err    error
	limits map[string][]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string][]Entry), limits: make(map[string][]int)}
}

func (f *fakeFetcher) FetchAuditLog(_ context.Context, guildID string, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits[guildID] = append(f.limits[guildID], limit)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[guildID]
	if len(page) > limit {
		page = page[:limit]
	}
	return append([]Entry(nil), page...), nil
}

func (f *fakeFetcher) set(guildID string, entries ...Entry) {
	f.mu.Lock()
	f.pages[guildID] = entries
	f.mu.Unlock()
}

type outcome struct {
	entry *Entry
	err   error
}

// fetchAsync starts FetchEntry and waits until the request is queued
func fetchAsync(t *testing.T, c *Correlator, action Action, guildID, userID string, pred Predicate) <-chan outcome {
	t.Helper()
	before := c.Pending()
	out := make(chan outcome, 1)
	go func() {
		e, err := c.FetchEntry(context.Background(), action, guildID, userID, pred)
		out <- outcome{e, err}
	}()

	deadline := time.Now().Add(time.Second)
	for c.Pending() <= before {
		if time.Now().After(deadline) {
			t.Fatal("request was never queued")
		}
		time.Sleep(time.Millisecond)
	}
	return out
}

func await(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("FetchEntry did not return")
	}
	return outcome{}
}

func TestFetchEntryMatchesActionAndTarget(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: time.Minute})

	f.set("g",
		Entry{ID: "1", Action: ActionBan, TargetID: "other", UserID: "mod-a"},
		Entry{ID: "2", Action: ActionUnban, TargetID: "u", UserID: "mod-b"},
		Entry{ID: "3", Action: ActionBan, TargetID: "u", UserID: "mod-c", Reason: "spam"},
		Entry{ID: "4", Action: ActionBan, TargetID: "u", UserID: "mod-d"},
	)
	ch := fetchAsync(t, c, ActionBan, "g", "u", nil)

	found, missed := c.pass(context.Background())
	if found != 1 || missed != 0 {
		t.Errorf("pass() = %d, %d, want 1, 0", found, missed)
	}

	o := await(t, ch)
	if o.err != nil {
		t.Fatalf("FetchEntry() error = %v", o.err)
	}
	if o.entry == nil || o.entry.ID != "3" {
		t.Errorf("FetchEntry() entry = %+v, want entry 3", o.entry)
	}
}

func TestFetchEntryPredicate(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: time.Minute})

	f.set("g",
		Entry{ID: "10", Action: ActionRoleUpdate, TargetID: "u", RolesAdded: []string{"vip"}},
		Entry{ID: "11", Action: ActionRoleUpdate, TargetID: "u", RolesRemoved: []string{"muted"}},
		Entry{ID: "12", Action: ActionRoleUpdate, TargetID: "u", RolesAdded: []string{"muted"}},
	)
	mute := fetchAsync(t, c, ActionMute, "g", "u", RoleAdded("muted"))
	unmute := fetchAsync(t, c, ActionUnmute, "g", "u", RoleRemoved("muted"))

	c.pass(context.Background())

	if o := await(t, mute); o.entry == nil || o.entry.ID != "12" {
		t.Errorf("mute lookup entry = %+v, want entry 12", o.entry)
	}
	if o := await(t, unmute); o.entry == nil || o.entry.ID != "11" {
		t.Errorf("unmute lookup entry = %+v, want entry 11", o.entry)
	}
}

func TestBanSupersedesPendingKick(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: time.Minute})

	// moderator "u" banning someone else must not touch the kick lookup for "u"
	f.set("g",
		Entry{ID: "1", Action: ActionBan, TargetID: "someone", UserID: "u"},
		Entry{ID: "2", Action: ActionBan, TargetID: "u", UserID: "mod"},
	)
	ch := fetchAsync(t, c, ActionKick, "g", "u", nil)

	found, missed := c.pass(context.Background())
	if found != 0 || missed != 0 {
		t.Errorf("pass() = %d, %d, want 0, 0", found, missed)
	}

	o := await(t, ch)
	if o.err != nil || o.entry == nil {
		t.Fatalf("FetchEntry() = %+v, %v, want the ban entry", o.entry, o.err)
	}
	if o.entry.Action != ActionBan || o.entry.ID != "2" {
		t.Errorf("FetchEntry() entry = %+v, want ban entry 2", o.entry)
	}
}

func TestUnmatchedKickResolvesToNil(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: time.Minute})
	f.set("g", Entry{ID: "1", Action: ActionKick, TargetID: "other"})

	ch := fetchAsync(t, c, ActionKick, "g", "u", nil)
	c.pass(context.Background())

	o := await(t, ch)
	if o.entry != nil || o.err != nil {
		t.Errorf("FetchEntry() = %+v, %v, want nil, nil", o.entry, o.err)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %v, want 0", c.Pending())
	}
}

func TestMissedRequestIsRequeuedThenTimesOut(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: 100 * time.Millisecond})

	ch := fetchAsync(t, c, ActionUnban, "g", "u", nil)
	found, missed := c.pass(context.Background())
	if found != 0 || missed != 1 {
		t.Errorf("pass() = %d, %d, want 0, 1", found, missed)
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() after miss = %v, want 1", c.Pending())
	}

	o := await(t, ch)
	var timeout *moderrors.CorrelationTimeoutError
	if !errors.As(o.err, &timeout) {
		t.Fatalf("FetchEntry() error = %v, want CorrelationTimeoutError", o.err)
	}
	if !errors.Is(o.err, moderrors.ErrTimeout) {
		t.Error("timeout error does not match ErrTimeout")
	}

	// the abandoned request is dropped rather than requeued forever
	found, missed = c.pass(context.Background())
	if found != 0 || missed != 0 || c.Pending() != 0 {
		t.Errorf("pass() after timeout = %d, %d pending %d, want 0, 0 pending 0", found, missed, c.Pending())
	}
}

func TestKickTimeoutIsSilent(t *testing.T) {
	c := NewCorrelator(newFakeFetcher(), Options{Timeout: 20 * time.Millisecond})
	e, err := c.FetchEntry(context.Background(), ActionKick, "g", "u", nil)
	if e != nil || err != nil {
		t.Errorf("FetchEntry() = %+v, %v, want nil, nil", e, err)
	}
}

func TestFetchEntryCancelled(t *testing.T) {
	c := NewCorrelator(newFakeFetcher(), Options{Timeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.FetchEntry(ctx, ActionBan, "g", "u", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchEntry() error = %v, want context.Canceled", err)
	}
}

func TestOneEntryResolvesEveryMatchingWaiter(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: time.Minute})
	f.set("g", Entry{ID: "7", Action: ActionBan, TargetID: "u"})

	first := fetchAsync(t, c, ActionBan, "g", "u", nil)
	second := fetchAsync(t, c, ActionBan, "g", "u", nil)
	c.pass(context.Background())

	for i, ch := range []<-chan outcome{first, second} {
		if o := await(t, ch); o.entry == nil || o.entry.ID != "7" {
			t.Errorf("waiter %d entry = %+v, want entry 7", i, o.entry)
		}
	}
}

func TestPageLimitScalesWithBacklog(t *testing.T) {
	tests := []struct {
		name    string
		pending int
		want    int
	}{
		{"single", 1, 7},
		{"three", 3, 11},
		{"capped", 60, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			c := NewCorrelator(f, Options{Timeout: time.Minute})
			reqs := make([]*request, tt.pending)
			for i := range reqs {
				reqs[i] = &request{guildID: "g", action: ActionUnban, userID: "u", predicate: Any, result: make(chan *Entry, 1)}
			}

			if _, err := c.passGuild(context.Background(), "g", reqs); err != nil {
				t.Fatalf("passGuild() error = %v", err)
			}
			if got := f.limits["g"]; len(got) != 1 || got[0] != tt.want {
				t.Errorf("fetch limits = %v, want [%d]", got, tt.want)
			}
		})
	}
}

func TestPassFetchesEachGuildOnce(t *testing.T) {
	f := newFakeFetcher()
	c := NewCorrelator(f, Options{Timeout: time.Minute})
	f.set("a", Entry{ID: "1", Action: ActionBan, TargetID: "x"})
	f.set("b", Entry{ID: "2", Action: ActionBan, TargetID: "y"})

	a := fetchAsync(t, c, ActionBan, "a", "x", nil)
	b := fetchAsync(t, c, ActionBan, "b", "y", nil)
	found, _ := c.pass(context.Background())

	if found != 2 {
		t.Errorf("pass() found = %v, want 2", found)
	}
	await(t, a)
	await(t, b)
	if len(f.limits["a"]) != 1 || len(f.limits["b"]) != 1 {
		t.Errorf("fetches = %v, want one per guild", f.limits)
	}
}

func TestFetchErrorRequeuesKicks(t *testing.T) {
	f := newFakeFetcher()
	f.err = errors.New("discord unavailable")
	c := NewCorrelator(f, Options{Timeout: time.Minute})

	ch := fetchAsync(t, c, ActionKick, "g", "u", nil)
	_, missed := c.pass(context.Background())
	if missed != 1 || c.Pending() != 1 {
		t.Errorf("pass() missed = %d pending %d, want 1 and 1", missed, c.Pending())
	}

	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	f.set("g", Entry{ID: "5", Action: ActionKick, TargetID: "u", UserID: "mod"})
	c.pass(context.Background())

	if o := await(t, ch); o.entry == nil || o.entry.ID != "5" {
		t.Errorf("FetchEntry() entry = %+v, want entry 5", o.entry)
	}
}

func TestPassGuildReturnsFetchError(t *testing.T) {
	f := newFakeFetcher()
	unavailable := errors.New("discord unavailable")
	f.err = unavailable
	c := NewCorrelator(f, Options{Timeout: time.Minute})
	reqs := []*request{{guildID: "g", action: ActionBan, userID: "u", predicate: Any, result: make(chan *Entry, 1)}}

	r, err := c.passGuild(context.Background(), "g", reqs)
	if !errors.Is(err, unavailable) {
		t.Errorf("passGuild() error = %v, want %v", err, unavailable)
	}
	if r.missed != 1 || len(r.requeue) != 1 {
		t.Errorf("passGuild() missed = %d requeue = %d, want 1 and 1", r.missed, len(r.requeue))
	}
}

func TestClaim(t *testing.T) {
	c := NewCorrelator(newFakeFetcher(), Options{})

	if !c.Claim("g", "1") {
		t.Error("first Claim(g, 1) = false, want true")
	}
	if c.Claim("g", "1") {
		t.Error("second Claim(g, 1) = true, want false")
	}
	if !c.Claim("h", "1") {
		t.Error("Claim(h, 1) = false, want true for another guild")
	}
	if !c.Claim("g", "2") {
		t.Error("Claim(g, 2) = false, want true")
	}
}

func TestNextSleep(t *testing.T) {
	c := NewCorrelator(newFakeFetcher(), Options{BaseSleep: 1500 * time.Millisecond})
	tests := []struct {
		name    string
		found   int
		missed  int
		lastRun bool
		want    time.Duration
	}{
		{"idle", 0, 0, false, 1500 * time.Millisecond},
		{"first burst", 3, 0, false, 1500 * time.Millisecond},
		{"continued burst", 3, 0, true, 3500 * time.Millisecond},
		{"large burst", 61, 0, false, 3500 * time.Millisecond},
		{"missed", 0, 2, true, 6500 * time.Millisecond},
		{"found and missed", 1, 1, true, 8500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.nextSleep(tt.found, tt.missed, tt.lastRun); got != tt.want {
				t.Errorf("nextSleep() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunResolvesAndStops(t *testing.T) {
	f := newFakeFetcher()
	f.set("g", Entry{ID: "9", Action: ActionUnban, TargetID: "u", UserID: "mod"})
	c := NewCorrelator(f, Options{Timeout: 2 * time.Second, BaseSleep: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	e, err := c.FetchEntry(context.Background(), ActionUnban, "g", "u", nil)
	if err != nil || e == nil || e.UserID != "mod" {
		t.Errorf("FetchEntry() = %+v, %v, want the unban by mod", e, err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		added bool
		taken bool
	}{
		{"added", Entry{RolesAdded: []string{"m"}}, true, false},
		{"removed", Entry{RolesRemoved: []string{"m"}}, false, true},
		{"other role", Entry{RolesAdded: []string{"x"}}, false, false},
		{"both", Entry{RolesAdded: []string{"m"}, RolesRemoved: []string{"m"}}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoleAdded("m")(tt.entry); got != tt.added {
				t.Errorf("RoleAdded() = %v, want %v", got, tt.added)
			}
			if got := RoleRemoved("m")(tt.entry); got != tt.taken {
				t.Errorf("RoleRemoved() = %v, want %v", got, tt.taken)
			}
		})
	}
}
