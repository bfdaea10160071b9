package modlog

import "testing"

var (
	alice = User{ID: "100", Name: "alice"}
	mod   = &User{ID: "900", Name: "mod"}
)

func TestFormatLog(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		reason   string
		note     string
		want     string
	}{
		{
			name:   "warn",
			reason: "spam",
			want:   "⚠️ **MEMBER WARNED (#4)**\n**User:** alice (`100`)\n**Moderator:** mod\n**Reason:** spam\n",
		},
		{
			name:     "timed with note",
			duration: "1 hour",
			reason:   "spam",
			note:     "second time",
			want:     "⚠️ **MEMBER WARNED (#4)**\n**User:** alice (`100`)\n**Duration:** 1 hour\n**Moderator:** mod\n**Reason:** spam\n**Note:** second time\n",
		},
		{
			name: "no reason",
			want: "⚠️ **MEMBER WARNED (#4)**\n**User:** alice (`100`)\n**Moderator:** mod\n**Reason:** None\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatLog(EmojiWarn, "MEMBER WARNED", 4, tt.duration, alice, mod, tt.reason, tt.note)
			if got != tt.want {
				t.Errorf("FormatLog() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatLogUnknownModerator(t *testing.T) {
	got := FormatLog(EmojiKick, "MEMBER KICKED", 1, "", alice, nil, "bye", "")
	want := "👢 **MEMBER KICKED (#1)**\n**User:** alice (`100`)\n**Moderator:** Unknown\n**Reason:** bye\n"
	if got != want {
		t.Errorf("FormatLog() = %q, want %q", got, want)
	}
}

func TestFormatSmall(t *testing.T) {
	got := FormatSmall(EmojiUnmute, "Mute expired", alice, 12)
	if want := "🔊 Mute expired for user alice (#12)"; got != want {
		t.Errorf("FormatSmall() = %q, want %q", got, want)
	}
}

func TestFormatExternalBan(t *testing.T) {
	got := FormatExternalBan(alice, &User{ID: "5", Name: "Beemo"})
	if want := "🤖 alice (`100`) has been banned by Beemo."; got != want {
		t.Errorf("FormatExternalBan() = %q, want %q", got, want)
	}
}

func TestFormatMass(t *testing.T) {
	tests := []struct {
		name       string
		start, end int64
		header     string
	}{
		{"range", 10, 15, "💥 **USERS MASS-BANNED (#10-15)**\n"},
		{"single", 7, 7, "💥 **USERS MASS-BANNED (#7)**\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatMass(EmojiMassBan, "USERS MASS-BANNED", tt.start, tt.end, "", 6, mod, "raid", "")
			want := tt.header + "**Users:** 6\n**Moderator:** mod\n**Reason:** raid\n"
			if got != want {
				t.Errorf("FormatMass() = %q, want %q", got, want)
			}
		})
	}
}

func TestFormatEdited(t *testing.T) {
	original := FormatLog(EmojiMute, "MEMBER MUTED", 3, "1 hour", alice, mod, "spam", "")

	tests := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{
			name:   "reason",
			fields: map[string]string{FieldReason: "flood (edited by bob)"},
			want:   "🔇 **MEMBER MUTED (#3)**\n**User:** alice (`100`)\n**Duration:** 1 hour\n**Moderator:** mod\n**Reason:** flood (edited by bob)\n",
		},
		{
			name:   "adds note",
			fields: map[string]string{FieldNote: "appealed"},
			want:   "🔇 **MEMBER MUTED (#3)**\n**User:** alice (`100`)\n**Duration:** 1 hour\n**Moderator:** mod\n**Reason:** spam\n**Note:** appealed\n",
		},
		{
			name:   "permanent",
			fields: map[string]string{FieldDuration: "permanent"},
			want:   "🔇 **MEMBER MUTED (#3)**\n**User:** alice (`100`)\n**Duration:** permanent\n**Moderator:** mod\n**Reason:** spam\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatEdited(original, tt.fields); got != tt.want {
				t.Errorf("FormatEdited() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatEditedMass(t *testing.T) {
	original := FormatMass(EmojiMassBan, "USERS MASS-BANNED", 10, 15, "", 6, mod, "raid", "")
	got := FormatEdited(original, map[string]string{FieldDuration: "1 day"})
	want := "💥 **USERS MASS-BANNED (#10-15)**\n**Users:** 6\n**Duration:** 1 day\n**Moderator:** mod\n**Reason:** raid\n"
	if got != want {
		t.Errorf("FormatEdited() = %q, want %q", got, want)
	}
}
