package shared

import (
	"fmt"
	"reflect"
	"testing"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"123456789012345678", "123456789012345678"},
		{"<@123456789012345678>", "123456789012345678"},
		{"<@!123456789012345678>", "123456789012345678"},
		{" 42 ", "42"},
		{"alice", ""},
		{"<@&42>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseUserID(tt.in); got != tt.want {
				t.Errorf("ParseUserID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseUserIDs(t *testing.T) {
	got := ParseUserIDs("1, <@2>\n<@!3> nope,4")
	want := []string{"1", "2", "3", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseUserIDs() = %v, want %v", got, want)
	}
}

func TestNotified(t *testing.T) {
	yes, no := true, false
	if got := Notified(nil); got != "" {
		t.Errorf("Notified(nil) = %q, want empty", got)
	}
	if got := Notified(&yes); got != "*User was notified.*" {
		t.Errorf("Notified(true) = %q", got)
	}
	if got := Notified(&no); got != "*User was not notified.*" {
		t.Errorf("Notified(false) = %q", got)
	}
}

func TestExpected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", fmt.Errorf("lookup: %w", &moderrors.InfractionNotFoundError{InfractionID: 3}), true},
		{"conflict", &moderrors.ConflictError{UserID: "u", Type: "mute"}, true},
		{"canceled", &moderrors.ActionCanceledError{}, true},
		{"free text", moderrors.NewModerationError("nope"), true},
		{"platform failure", fmt.Errorf("ban: %w", fmt.Errorf("HTTP 500")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expected(tt.err); got != tt.want {
				t.Errorf("expected(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
