package infractions

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/PancyStudios/PancyModlog/pkg/modlog"
	"github.com/goccy/go-json"
)

// messageLimit is the platform's message length limit
const messageLimit = 2000

// recentLimit is how many infractions the history summary shows
const recentLimit = 5

// NameFunc resolves a user id to a display name, falling back to the id
type NameFunc func(userID string) string

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// FormatInfo renders the stored fields of one infraction
func FormatInfo(inf *models.Infraction, name NameFunc, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Infraction #%d (%s, %s ago):```\n", inf.InfractionID, inf.Type, modlog.ApproximateDuration(now.Sub(inf.CreatedAt)))
	fmt.Fprintf(&b, "User: %s\n", name(inf.UserID))
	fmt.Fprintf(&b, "Moderator: %s\n", name(inf.ModID))
	if d := inf.Duration(); d != nil && *d > 0 {
		fmt.Fprintf(&b, "Duration: %s\n", modlog.ExactDuration(*d))
		if rem := inf.Remaining(now); rem > 0 {
			fmt.Fprintf(&b, "Remaining: %s\n", modlog.ExactDuration(rem))
		}
	}
	fmt.Fprintf(&b, "Reason: %s\n", orNone(inf.Reason))
	fmt.Fprintf(&b, "Note: %s\n", orNone(inf.Note))
	fmt.Fprintf(&b, "Active: %t\n", inf.Active)
	b.WriteString("```")
	return b.String()
}

// FormatRaw renders the infraction document as JSON
func FormatRaw(inf *models.Infraction) (string, error) {
	data, err := json.MarshalIndent(inf, "", "  ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(data) + "\n```", nil
}

// FormatHistory summarises the most recent infractions of a user, newest first
func FormatHistory(user string, infs []*models.Infraction, name NameFunc, now time.Time) string {
	if len(infs) == 0 {
		return fmt.Sprintf("No infractions for %s.", user)
	}
	sorted := make([]*models.Infraction, len(infs))
	copy(sorted, infs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].InfractionID > sorted[j].InfractionID })

	recent := sorted
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent infractions for %s (showing %d/%d):```\n", user, len(recent), len(sorted))
	for _, inf := range recent {
		active := ""
		if inf.Active {
			active = "active "
		}
		fmt.Fprintf(&b, "#%d: %s%s by %s (%s ago)\n", inf.InfractionID, active, inf.Type, name(inf.ModID),
			modlog.ApproximateDuration(now.Sub(inf.CreatedAt)))
		if d := inf.Duration(); d != nil && *d > 0 {
			rem := ""
			if inf.Active {
				rem = fmt.Sprintf(" (%s remaining)", modlog.ApproximateDuration(inf.Remaining(now)))
			}
			fmt.Fprintf(&b, "\tduration: %s%s\n", modlog.ExactDuration(*d), rem)
		}
		if inf.Reason != "" {
			fmt.Fprintf(&b, "\treason: %s\n", inf.Reason)
		}
	}
	b.WriteString("```")
	return b.String()
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatHistoryRaw renders every id list of a history
func FormatHistoryRaw(user string, h *models.History) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Infraction history for %s:```\n", user)
	for _, t := range models.HistoryTypes {
		fmt.Fprintf(&b, "%s: %s\n", t, idList(h.IDs(t)))
	}
	fmt.Fprintf(&b, "active: %s\n", idList(h.Active))
	b.WriteString("```")
	return b.String()
}

func timeCell(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// FormatTable renders search results as an aligned text table
func FormatTable(infs []*models.Infraction) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "id\tuser\tmod\ttype\treason\tnote\tcreated\tends\tactive")
	for _, inf := range infs {
		created := inf.CreatedAt
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			inf.InfractionID, inf.UserID, inf.ModID, inf.Type,
			orNone(inf.Reason), orNone(inf.Note), timeCell(&created), timeCell(inf.EndsAt), inf.Active)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// FormatSearch renders search results with how long the query took. The
// second return is false when the text is too long for one message.
func FormatSearch(infs []*models.Infraction, took time.Duration) (string, bool) {
	ms := float64(took.Microseconds()) / 1000
	if len(infs) == 0 {
		return fmt.Sprintf("`%.2fms: []`", ms), true
	}
	sorted := make([]*models.Infraction, len(infs))
	copy(sorted, infs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].InfractionID < sorted[j].InfractionID })

	s := ""
	if len(sorted) != 1 {
		s = "s"
	}
	text := fmt.Sprintf("```\n%s\n```\n*Returned %d row%s in %.2fms*", FormatTable(sorted), len(sorted), s, ms)
	return text, len(text) <= messageLimit
}

// JumpURL links to a message in a guild channel
func JumpURL(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
