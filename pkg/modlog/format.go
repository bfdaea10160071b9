package modlog

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	EmojiNote    = "📝"
	EmojiWarn    = "⚠️"
	EmojiMute    = "🔇"
	EmojiUnmute  = "🔊"
	EmojiKick    = "👢"
	EmojiBan     = "🔨"
	EmojiUnban   = "🔓"
	EmojiMassBan = "💥"
	EmojiBot     = "🤖"
)

// User is a platform account as it appears in a modlog message
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u User) String() string {
	if u.Name == "" {
		return u.ID
	}
	return u.Name
}

// Field keys of a rendered log message, in display order
const (
	FieldUser      = "user"
	FieldUsers     = "users"
	FieldDuration  = "duration"
	FieldModerator = "moderator"
	FieldReason    = "reason"
	FieldNote      = "note"
)

var fieldOrder = []string{FieldUser, FieldUsers, FieldDuration, FieldModerator, FieldReason, FieldNote}

var fieldPattern = regexp.MustCompile(`^\*\*(\w+):\*\* (.*)$`)

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func moderatorText(mod *User) string {
	if mod == nil {
		return "Unknown"
	}
	return mod.String()
}

func fieldLine(key, value string) string {
	return fmt.Sprintf("**%s:** %s\n", strings.ToUpper(key[:1])+key[1:], value)
}

// FormatLog renders a single-user infraction. duration and note lines are
// left out when empty.
func FormatLog(emoji, title string, id int64, duration string, user User, mod *User, reason, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s (#%d)**\n", emoji, title, id)
	b.WriteString(fieldLine(FieldUser, fmt.Sprintf("%s (`%s`)", user, user.ID)))
	if duration != "" {
		b.WriteString(fieldLine(FieldDuration, duration))
	}
	b.WriteString(fieldLine(FieldModerator, moderatorText(mod)))
	b.WriteString(fieldLine(FieldReason, orNone(reason)))
	if note != "" {
		b.WriteString(fieldLine(FieldNote, note))
	}
	return b.String()
}

// FormatSmall renders a one-line notice such as an expiry
func FormatSmall(emoji, title string, user User, id int64) string {
	return fmt.Sprintf("%s %s for user %s (#%d)", emoji, title, user, id)
}

// FormatExternalBan renders a ban carried out by an exempt bot
func FormatExternalBan(user User, mod *User) string {
	return fmt.Sprintf("%s %s (`%s`) has been banned by %s.", EmojiBot, user, user.ID, moderatorText(mod))
}

// FormatMass renders one message for a mass action over ids start..end
func FormatMass(emoji, title string, start, end int64, duration string, users int, mod *User, reason, note string) string {
	rng := fmt.Sprintf("#%d", start)
	if start != end {
		rng = fmt.Sprintf("#%d-%d", start, end)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s (%s)**\n", emoji, title, rng)
	b.WriteString(fieldLine(FieldUsers, fmt.Sprint(users)))
	if duration != "" {
		b.WriteString(fieldLine(FieldDuration, duration))
	}
	b.WriteString(fieldLine(FieldModerator, moderatorText(mod)))
	b.WriteString(fieldLine(FieldReason, orNone(reason)))
	if note != "" {
		b.WriteString(fieldLine(FieldNote, note))
	}
	return b.String()
}

// FormatEdited re-renders an existing log message with fields overlaid on
// the values parsed from content. The header line is kept as is.
func FormatEdited(content string, fields map[string]string) string {
	header, body, _ := strings.Cut(content, "\n")

	entry := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		if m := fieldPattern.FindStringSubmatch(line); m != nil {
			entry[strings.ToLower(m[1])] = m[2]
		}
	}
	for k, v := range fields {
		entry[strings.ToLower(k)] = v
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, key := range fieldOrder {
		if v, ok := entry[key]; ok {
			b.WriteString(fieldLine(key, v))
		}
	}
	return b.String()
}
