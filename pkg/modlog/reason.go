package modlog

import (
	"strings"
	"time"
	"unicode"
)

// DurationFromAuditReason splits a leading duration off an audit log reason,
// as written by moderators using the platform's own tools ("1d spamming").
// The duration is only taken when more text follows it.
func DurationFromAuditReason(reason string) (*time.Duration, string) {
	trimmed := strings.TrimSpace(reason)
	i := strings.IndexFunc(trimmed, unicode.IsSpace)
	if i < 0 {
		return nil, reason
	}
	word, rest := trimmed[:i], strings.TrimSpace(trimmed[i:])
	d, err := ParseDuration(word)
	if err != nil {
		return nil, reason
	}
	return d, rest
}

// NoteFromAuditReason splits "reason -- note" into its two trimmed halves
func NoteFromAuditReason(reason string) (string, string) {
	r, note, _ := strings.Cut(reason, "--")
	return strings.TrimSpace(r), strings.TrimSpace(note)
}

// ParseAuditReason applies DurationFromAuditReason and then NoteFromAuditReason
func ParseAuditReason(raw string, withDuration bool) (reason, note string, duration *time.Duration) {
	reason = raw
	if withDuration {
		duration, reason = DurationFromAuditReason(raw)
	}
	reason, note = NoteFromAuditReason(reason)
	return reason, note, duration
}
