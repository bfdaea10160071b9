package modlog

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in        string
		want      time.Duration
		permanent bool
		wantErr   bool
	}{
		{in: "90s", want: 90 * time.Second},
		{in: "1w2d3h4m5s", want: Week + 2*Day + 3*time.Hour + 4*time.Minute + 5*time.Second},
		{in: "12h", want: 12 * time.Hour},
		{in: "1d6h", want: 30 * time.Hour},
		{in: "perm", permanent: true},
		{in: "PERMANENT", permanent: true},
		{in: "261w", permanent: true},
		{in: "260w", want: 260 * Week},
		{in: "1825d", permanent: true},
		{in: "99999999999999999999d", wantErr: true},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDuration) {
					t.Errorf("ParseDuration(%q) error = %v, want ErrInvalidDuration", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) error = %v", tt.in, err)
			}
			if tt.permanent {
				if got != nil {
					t.Errorf("ParseDuration(%q) = %v, want nil", tt.in, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExactDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "1 hour"},
		{Week + 2*Day + 3*time.Hour + 4*time.Minute + 5*time.Second, "1 week, 2 days, 3 hours, 4 minutes, 5 seconds"},
		{2*Day + time.Minute, "2 days, 1 minute"},
		{90 * time.Second, "1 minute, 30 seconds"},
		{0, ""},
	}
	for _, tt := range tests {
		if got := ExactDuration(tt.in); got != tt.want {
			t.Errorf("ExactDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApproximateDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{3*Day + 5*time.Hour, "3 days"},
		{Week, "1 week"},
		{59 * time.Second, "59 seconds"},
		{0, "0 seconds"},
	}
	for _, tt := range tests {
		if got := ApproximateDuration(tt.in); got != tt.want {
			t.Errorf("ApproximateDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDurationText(t *testing.T) {
	d := 2 * time.Hour
	if got := DurationText(&d); got != "2 hours" {
		t.Errorf("DurationText(2h) = %q, want %q", got, "2 hours")
	}
	if got := DurationText(nil); got != "permanent" {
		t.Errorf("DurationText(nil) = %q, want %q", got, "permanent")
	}
}

func TestDurationFromAuditReason(t *testing.T) {
	tests := []struct {
		in         string
		wantDur    time.Duration
		hasDur     bool
		wantReason string
	}{
		{in: "1d spamming links", wantDur: Day, hasDur: true, wantReason: "spamming links"},
		{in: "1d", wantReason: "1d"},
		{in: "spamming links", wantReason: "spamming links"},
		{in: "perm raiding", wantReason: "raiding"},
		{in: "", wantReason: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, reason := DurationFromAuditReason(tt.in)
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
			if tt.hasDur != (d != nil) || (d != nil && *d != tt.wantDur) {
				t.Errorf("duration = %v, want %v (set=%v)", d, tt.wantDur, tt.hasDur)
			}
		})
	}
}

func TestNoteFromAuditReason(t *testing.T) {
	tests := []struct {
		in, reason, note string
	}{
		{"spam -- second offence", "spam", "second offence"},
		{"spam", "spam", ""},
		{" spam --  a -- b ", "spam", "a -- b"},
		{"-- only a note", "", "only a note"},
	}
	for _, tt := range tests {
		r, n := NoteFromAuditReason(tt.in)
		if r != tt.reason || n != tt.note {
			t.Errorf("NoteFromAuditReason(%q) = %q, %q, want %q, %q", tt.in, r, n, tt.reason, tt.note)
		}
	}
}

func TestParseAuditReason(t *testing.T) {
	reason, note, d := ParseAuditReason("2h flooding -- warned twice", true)
	if reason != "flooding" || note != "warned twice" || d == nil || *d != 2*time.Hour {
		t.Errorf("ParseAuditReason() = %q, %q, %v", reason, note, d)
	}

	reason, _, d = ParseAuditReason("2h flooding", false)
	if reason != "2h flooding" || d != nil {
		t.Errorf("ParseAuditReason() without duration = %q, %v", reason, d)
	}
}
