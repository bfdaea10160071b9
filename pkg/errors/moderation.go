package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinels matched through errors.Is by the typed errors below
var (
	ErrNotFound = stderrors.New("not found")
	ErrTimeout  = stderrors.New("timed out")
)

// InfractionNotFoundError is returned when a case id does not exist in a guild
type InfractionNotFoundError struct {
	InfractionID int64
}

func (e *InfractionNotFoundError) Error() string {
	return fmt.Sprintf("I couldn't find infraction #%d for this guild.", e.InfractionID)
}

func (e *InfractionNotFoundError) Is(target error) bool { return target == ErrNotFound }

// HistoryNotFoundError is returned when a user has no recorded history
type HistoryNotFoundError struct {
	UserID string
}

func (e *HistoryNotFoundError) Error() string {
	if e.UserID == "" {
		return "That user has no past infractions."
	}
	return fmt.Sprintf("I couldn't find any past infractions for user %s.", e.UserID)
}

func (e *HistoryNotFoundError) Is(target error) bool { return target == ErrNotFound }

// ModlogMessageNotFoundError is returned when the rendered modlog message is gone
type ModlogMessageNotFoundError struct {
	InfractionID int64
}

func (e *ModlogMessageNotFoundError) Error() string {
	return fmt.Sprintf("I couldn't find a message for infraction #%d. Try `/infraction info %d` instead.", e.InfractionID, e.InfractionID)
}

func (e *ModlogMessageNotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotConfiguredError is returned when a guild is missing a required option
type NotConfiguredError struct {
	Option string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("This guild is missing the **%s** configuration option.", e.Option)
}

// CorrelationTimeoutError is returned when no audit entry matched within the wait window
type CorrelationTimeoutError struct {
	Action  string
	GuildID string
	UserID  string
}

func (e *CorrelationTimeoutError) Error() string {
	return fmt.Sprintf("audit log lookup timed out for (%s, %s, %s)", e.Action, e.GuildID, e.UserID)
}

func (e *CorrelationTimeoutError) Is(target error) bool { return target == ErrTimeout }

// ConflictError is returned when an ongoing infraction of the same type is already active
type ConflictError struct {
	UserID string
	Type   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("User %s already has an active %s infraction.", e.UserID, e.Type)
}

// ModerationError carries a message meant for the moderator who ran the action
type ModerationError struct {
	Message string
}

func (e *ModerationError) Error() string { return e.Message }

// NewModerationError creates a ModerationError from a format string
func NewModerationError(format string, args ...interface{}) error {
	return &ModerationError{Message: fmt.Sprintf(format, args...)}
}

// UserNotInGuildError is returned when an action requires membership
type UserNotInGuildError struct {
	UserID string
}

func (e *UserNotInGuildError) Error() string {
	return fmt.Sprintf("User **%s** is not in this guild.", e.UserID)
}

// BotMissingPermissionError is returned when the bot lacks a platform permission
type BotMissingPermissionError struct {
	Permission string
}

func (e *BotMissingPermissionError) Error() string {
	return fmt.Sprintf("I could not perform that action because I'm missing the **%s** permission.", e.Permission)
}

// RoleHierarchyError is returned when the target outranks the bot
type RoleHierarchyError struct{}

func (e *RoleHierarchyError) Error() string {
	return "I could not execute that action due to role hierarchy."
}

// ModActionOnModError is returned when a moderator targets another moderator
type ModActionOnModError struct{}

func (e *ModActionOnModError) Error() string {
	return "You cannot perform moderation actions on other server moderators!"
}

// ActionCanceledError is returned when a confirmation prompt is declined or times out
type ActionCanceledError struct {
	TimedOut bool
}

func (e *ActionCanceledError) Error() string {
	if e.TimedOut {
		return "Timed out!"
	}
	return "Canceled!"
}

// BulkEditMismatchError is returned when linked infractions disagree on a shared field
type BulkEditMismatchError struct {
	Field string
}

func (e *BulkEditMismatchError) Error() string {
	return fmt.Sprintf("Infraction %s mismatch during bulk edit.", e.Field)
}

// UserMessage returns the text safe to show to the moderator for err
func UserMessage(err error) string {
	var (
		notFound *InfractionNotFoundError
		history  *HistoryNotFoundError
		message  *ModlogMessageNotFoundError
		config   *NotConfiguredError
		conflict *ConflictError
		mod      *ModerationError
		member   *UserNotInGuildError
		perm     *BotMissingPermissionError
		mismatch *BulkEditMismatchError
		rank     *RoleHierarchyError
		modOnMod *ModActionOnModError
		canceled *ActionCanceledError
	)
	switch {
	case stderrors.As(err, &notFound):
		return notFound.Error()
	case stderrors.As(err, &history):
		return history.Error()
	case stderrors.As(err, &message):
		return message.Error()
	case stderrors.As(err, &config):
		return config.Error()
	case stderrors.As(err, &conflict):
		return conflict.Error()
	case stderrors.As(err, &mod):
		return mod.Error()
	case stderrors.As(err, &member):
		return member.Error()
	case stderrors.As(err, &perm):
		return perm.Error()
	case stderrors.As(err, &mismatch):
		return mismatch.Error()
	case stderrors.As(err, &rank):
		return rank.Error()
	case stderrors.As(err, &modOnMod):
		return modOnMod.Error()
	case stderrors.As(err, &canceled):
		return canceled.Error()
	}
	return "An unexpected error occurred."
}
