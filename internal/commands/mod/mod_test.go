package mod

import (
	"testing"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/moderation"
)

func TestAlreadyReply(t *testing.T) {
	hour, day := time.Hour, 24*time.Hour
	inf := &models.Infraction{InfractionID: 12, Type: models.TypeMute}

	tests := []struct {
		name string
		res  *moderation.Result
		d    *time.Duration
		want string
	}{
		{
			name: "unchanged",
			res:  &moderation.Result{Infraction: inf, Existing: true, PreviousDuration: &hour},
			d:    &hour,
			want: "⚠️ User is already muted (#12).",
		},
		{
			name: "edited",
			res:  &moderation.Result{Infraction: inf, Existing: true, Edited: true, PreviousDuration: &hour},
			d:    &day,
			want: "⚠️ User is already muted (#12), changed duration instead (1 hour -> 1 day).",
		},
		{
			name: "made permanent",
			res:  &moderation.Result{Infraction: inf, Existing: true, Edited: true, PreviousDuration: &day},
			d:    nil,
			want: "⚠️ User is already muted (#12), changed duration instead (1 day -> permanent).",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := alreadyReply("muted", tt.res, tt.d); got != tt.want {
				t.Errorf("alreadyReply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMassOptionsRequireUsers(t *testing.T) {
	opts := massOptions()
	if len(opts) != 4 {
		t.Fatalf("len(massOptions()) = %d, want 4", len(opts))
	}
	if opts[0].Name != "usuarios" || !opts[0].Required {
		t.Errorf("first option = %q (required %v), want required usuarios", opts[0].Name, opts[0].Required)
	}
}
