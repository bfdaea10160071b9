package modlog

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/database"
	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
)

// Edit lists the fields to change on one or more infractions. Nil fields are left alone.
type Edit struct {
	Reason *string
	Note   *string
	// Duration with a nil inner value makes the infraction permanent
	Duration *database.DurationChange
	EditedBy string
}

// Empty reports whether the edit changes nothing
func (e Edit) Empty() bool {
	return e.Reason == nil && e.Note == nil && e.Duration == nil
}

// split returns the store changes and the message fields for e
func (e Edit) split() (database.Changes, map[string]string) {
	suffix := ""
	if e.EditedBy != "" {
		suffix = fmt.Sprintf(" (edited by %s)", e.EditedBy)
	}

	var changes database.Changes
	fields := make(map[string]string)
	if e.Reason != nil {
		r := *e.Reason + suffix
		changes.Reason = &r
		fields[FieldReason] = r
	}
	if e.Note != nil {
		n := *e.Note + suffix
		changes.Note = &n
		fields[FieldNote] = n
	}
	if e.Duration != nil {
		changes.Duration = e.Duration
		fields[FieldDuration] = DurationText(e.Duration.Duration) + suffix
	}
	return changes, fields
}

// Message is a rendered modlog message
type Message struct {
	ChannelID string
	ID        string
	Content   string
}

// FetchInfractionMessage returns the modlog message linked to an infraction
func (m *Modlog) FetchInfractionMessage(ctx context.Context, guildID string, id int64) (*Message, error) {
	channelID, err := m.channel(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, &moderrors.NotConfiguredError{Option: "modlog_channel"}
	}
	inf, err := m.store.GetInfraction(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if inf.MessageID == "" {
		return nil, &moderrors.ModlogMessageNotFoundError{InfractionID: id}
	}
	content, err := m.messages.FetchMessage(ctx, channelID, inf.MessageID)
	if err != nil {
		return nil, &moderrors.ModlogMessageNotFoundError{InfractionID: id}
	}
	return &Message{ChannelID: channelID, ID: inf.MessageID, Content: content}, nil
}

// Linked returns every infraction sharing inf's bulk range, or just inf
func (m *Modlog) Linked(ctx context.Context, inf *models.Infraction) ([]*models.Infraction, error) {
	if inf.BulkRange == nil {
		return []*models.Infraction{inf}, nil
	}
	return m.store.GetInfractionsBulk(ctx, inf.GuildID, inf.BulkRange.IDs())
}

// rerender patches the message linked to inf with fields
func (m *Modlog) rerender(ctx context.Context, inf *models.Infraction, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	channelID, err := m.channel(ctx, inf.GuildID)
	if err != nil {
		return err
	}
	if channelID == "" {
		return &moderrors.NotConfiguredError{Option: "modlog_channel"}
	}
	if inf.MessageID == "" {
		return &moderrors.ModlogMessageNotFoundError{InfractionID: inf.InfractionID}
	}

	content, err := m.messages.FetchMessage(ctx, channelID, inf.MessageID)
	if err == nil {
		content = FormatEdited(content, fields)
		err = m.messages.EditMessage(ctx, channelID, inf.MessageID, content)
	}
	if err != nil {
		logger.WithFields(logger.Fields{"guild": inf.GuildID, "case": inf.InfractionID}, "Modlog").
			Warn("No se pudo editar el mensaje del modlog: " + err.Error())
		return &moderrors.ModlogMessageNotFoundError{InfractionID: inf.InfractionID}
	}
	messageEdits.Inc()

	m.publish(ctx, Record{
		Category:      CategoryEdit,
		Kind:          string(inf.Type),
		GuildID:       inf.GuildID,
		UserIDs:       []string{inf.UserID},
		InfractionIDs: []int64{inf.InfractionID},
		MessageID:     inf.MessageID,
		Content:       content,
	})
	return nil
}

// EditInfraction stores the edit and re-renders the infraction's message.
// When only the message edit fails, the updated infraction is returned with
// a ModlogMessageNotFoundError.
func (m *Modlog) EditInfraction(ctx context.Context, inf *models.Infraction, edit Edit) (*models.Infraction, error) {
	changes, fields := edit.split()
	updated, err := m.store.EditInfraction(ctx, inf, changes)
	if err != nil {
		return nil, err
	}
	if err := m.rerender(ctx, updated, fields); err != nil {
		return updated, err
	}
	return updated, nil
}

// EditInfractionsBulk applies one edit to several infractions of the same type.
//
// Linked infractions must share a message and creation time, and that message
// is edited exactly once. Otherwise each distinct message is edited once,
// skipping infractions covered by a bulk range already re-rendered. It
// returns the updated infractions and the number of messages edited.
func (m *Modlog) EditInfractionsBulk(ctx context.Context, infs []*models.Infraction, edit Edit, linked bool) ([]*models.Infraction, int, error) {
	if len(infs) == 0 {
		return nil, 0, nil
	}
	first := infs[0]
	for _, inf := range infs[1:] {
		switch {
		case inf.GuildID != first.GuildID:
			return nil, 0, &moderrors.BulkEditMismatchError{Field: "guild"}
		case inf.Type != first.Type:
			return nil, 0, &moderrors.BulkEditMismatchError{Field: "type"}
		case linked && inf.MessageID != first.MessageID:
			return nil, 0, &moderrors.BulkEditMismatchError{Field: "message_id"}
		case linked && !inf.CreatedAt.Equal(first.CreatedAt):
			return nil, 0, &moderrors.BulkEditMismatchError{Field: "created_at"}
		}
	}

	ids := make([]int64, len(infs))
	for i, inf := range infs {
		ids[i] = inf.InfractionID
	}
	changes, fields := edit.split()
	updated, err := m.store.EditInfractions(ctx, first.GuildID, ids, changes)
	if err != nil {
		return nil, 0, err
	}

	if linked {
		if err := m.rerender(ctx, updated[0], fields); err != nil {
			return updated, 0, err
		}
		return updated, 1, nil
	}

	edited := 0
	skip := make(map[int64]bool)
	seen := make(map[string]bool)
	for _, inf := range updated {
		if skip[inf.InfractionID] || (inf.MessageID != "" && seen[inf.MessageID]) {
			continue
		}
		if inf.BulkRange != nil {
			for _, id := range inf.BulkRange.IDs() {
				skip[id] = true
			}
		}
		seen[inf.MessageID] = true
		if err := m.rerender(ctx, inf, fields); err != nil {
			return updated, edited, err
		}
		edited++
	}
	return updated, edited, nil
}

// EditDuration changes how long an infraction lasts, measured from when it was created
func (m *Modlog) EditDuration(ctx context.Context, inf *models.Infraction, d *time.Duration, editedBy string) ([]*models.Infraction, error) {
	infs, err := m.Linked(ctx, inf)
	if err != nil {
		return nil, err
	}
	edit := Edit{Duration: &database.DurationChange{Duration: d}, EditedBy: editedBy}
	if len(infs) == 1 {
		updated, err := m.EditInfraction(ctx, infs[0], edit)
		if updated == nil {
			return nil, err
		}
		return []*models.Infraction{updated}, err
	}
	updated, _, err := m.EditInfractionsBulk(ctx, infs, edit, true)
	return updated, err
}
