package infractions

import (
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func names(id string) string {
	switch id {
	case "1":
		return "alice#0001"
	case "2":
		return "mod#0002"
	}
	return id
}

func infraction(id int64, t models.InfractionType, created time.Time, d *time.Duration, active bool) *models.Infraction {
	inf := &models.Infraction{
		GuildID:      "g",
		InfractionID: id,
		UserID:       "1",
		ModID:        "2",
		Type:         t,
		CreatedAt:    created,
		Active:       active,
	}
	if d != nil {
		ends := created.Add(*d)
		inf.EndsAt = &ends
	}
	return inf
}

func TestFormatInfo(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name string
		inf  *models.Infraction
		want string
	}{
		{
			name: "warn",
			inf:  infraction(3, models.TypeWarn, now.Add(-2*time.Hour), nil, false),
			want: "Infraction #3 (warn, 2 hours ago):```\nUser: alice#0001\nModerator: mod#0002\nReason: None\nNote: None\nActive: false\n```",
		},
		{
			name: "active mute",
			inf:  infraction(4, models.TypeMute, now.Add(-time.Hour), &day, true),
			want: "Infraction #4 (mute, 1 hour ago):```\nUser: alice#0001\nModerator: mod#0002\nDuration: 1 day\nRemaining: 23 hours\nReason: None\nNote: None\nActive: true\n```",
		},
		{
			name: "expired ban",
			inf:  infraction(5, models.TypeBan, now.Add(-2*day), &day, false),
			want: "Infraction #5 (ban, 2 days ago):```\nUser: alice#0001\nModerator: mod#0002\nDuration: 1 day\nReason: None\nNote: None\nActive: false\n```",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatInfo(tt.inf, names, now); got != tt.want {
				t.Errorf("FormatInfo() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory("alice#0001", nil, names, now); got != "No infractions for alice#0001." {
		t.Errorf("FormatHistory(empty) = %q", got)
	}

	hour := time.Hour
	var infs []*models.Infraction
	for id := int64(1); id <= 7; id++ {
		infs = append(infs, infraction(id, models.TypeWarn, now.Add(-time.Duration(8-id)*time.Hour), nil, false))
	}
	mute := infraction(8, models.TypeMute, now.Add(-30*time.Minute), &hour, true)
	mute.Reason = "spam"
	infs = append(infs, mute)

	got := FormatHistory("alice#0001", infs, names, now)
	if !strings.HasPrefix(got, "Recent infractions for alice#0001 (showing 5/8):```\n#8: active mute by mod#0002 (30 minutes ago)\n\tduration: 1 hour (30 minutes remaining)\n\treason: spam\n#7: warn") {
		t.Errorf("FormatHistory() =\n%s", got)
	}
	if strings.Contains(got, "#3:") {
		t.Errorf("FormatHistory() shows more than %d infractions:\n%s", recentLimit, got)
	}
}

func TestFormatHistoryRaw(t *testing.T) {
	h := models.NewHistory("g", "1")
	h.Add(models.TypeWarn, 1, false)
	h.Add(models.TypeMute, 2, true)
	h.Add(models.TypeWarn, 3, false)

	want := "Infraction history for alice:```\nnote: []\nwarn: [1, 3]\nmute: [2]\nunmute: []\nkick: []\nban: []\nunban: []\nactive: [2]\n```"
	if got := FormatHistoryRaw("alice", h); got != want {
		t.Errorf("FormatHistoryRaw() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatSearch(t *testing.T) {
	text, fits := FormatSearch(nil, 1500*time.Microsecond)
	if text != "`1.50ms: []`" || !fits {
		t.Errorf("FormatSearch(nil) = %q, %v", text, fits)
	}

	infs := []*models.Infraction{
		infraction(2, models.TypeKick, now, nil, false),
		infraction(1, models.TypeWarn, now, nil, false),
	}
	text, fits = FormatSearch(infs, time.Millisecond)
	if !fits {
		t.Fatal("two rows should fit in one message")
	}
	lines := strings.Split(text, "\n")
	if !strings.HasPrefix(lines[1], "id") || !strings.HasPrefix(lines[2], "1 ") || !strings.HasPrefix(lines[3], "2 ") {
		t.Errorf("rows not sorted by id:\n%s", text)
	}
	if !strings.HasSuffix(text, "*Returned 2 rows in 1.00ms*") {
		t.Errorf("FormatSearch() footer = %q", lines[len(lines)-1])
	}

	var many []*models.Infraction
	for id := int64(1); id <= 60; id++ {
		many = append(many, infraction(id, models.TypeWarn, now, nil, false))
	}
	if _, fits := FormatSearch(many, time.Millisecond); fits {
		t.Error("60 rows should not fit in one message")
	}
}

func TestFormatRaw(t *testing.T) {
	got, err := FormatRaw(infraction(9, models.TypeNote, now, nil, false))
	if err != nil {
		t.Fatalf("FormatRaw() error = %v", err)
	}
	if !strings.HasPrefix(got, "```json\n{") || !strings.Contains(got, `"infractionId": 9`) {
		t.Errorf("FormatRaw() = %s", got)
	}
}

func TestBulkEdit(t *testing.T) {
	edit, err := bulkEdit("reason", "  spam  ")
	if err != nil || edit.Reason == nil || *edit.Reason != "spam" {
		t.Errorf("bulkEdit(reason) = %+v, %v", edit, err)
	}
	edit, err = bulkEdit("duration", "perm")
	if err != nil || edit.Duration == nil || edit.Duration.Duration != nil {
		t.Errorf("bulkEdit(duration perm) = %+v, %v", edit, err)
	}
	if _, err := bulkEdit("duration", "soon"); err == nil {
		t.Error("bulkEdit(duration soon) error = nil, want error")
	}
	if _, err := bulkEdit("type", "ban"); err == nil {
		t.Error("bulkEdit(type) error = nil, want error")
	}
}

func TestCheckDurationEdit(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name    string
		inf     *models.Infraction
		wantErr bool
	}{
		{"active mute", infraction(1, models.TypeMute, now, &day, true), false},
		{"active forceban", infraction(2, models.TypeForceban, now, nil, true), false},
		{"inactive ban", infraction(3, models.TypeBan, now, &day, false), true},
		{"warn", infraction(4, models.TypeWarn, now, nil, false), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkDurationEdit(tt.inf); (err != nil) != tt.wantErr {
				t.Errorf("checkDurationEdit() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
