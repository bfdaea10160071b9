package discord

import (
	"context"
	"sync"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// InteractionPredicate selects the interaction a waiter is interested in
type InteractionPredicate func(i *discordgo.InteractionCreate) bool

type waiter struct {
	predicate InteractionPredicate
	result    chan *discordgo.InteractionCreate
}

// Waiter hands component interactions to the goroutines waiting for them
type Waiter struct {
	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewWaiter creates an empty Waiter
func NewWaiter() *Waiter {
	return &Waiter{waiters: make(map[string]*waiter)}
}

// Wait blocks until an interaction matching predicate arrives, the timeout
// passes or ctx is done
func (w *Waiter) Wait(ctx context.Context, timeout time.Duration, predicate InteractionPredicate) (*discordgo.InteractionCreate, error) {
	id := uuid.NewString()
	wt := &waiter{predicate: predicate, result: make(chan *discordgo.InteractionCreate, 1)}

	w.mu.Lock()
	w.waiters[id] = wt
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.waiters, id)
		w.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case i := <-wt.result:
		return i, nil
	case <-timer.C:
		return nil, &moderrors.ActionCanceledError{TimedOut: true}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatch offers i to the pending waiters. It returns true when one took it.
func (w *Waiter) Dispatch(i *discordgo.InteractionCreate) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, wt := range w.waiters {
		if !wt.predicate(i) {
			continue
		}
		select {
		case wt.result <- i:
			delete(w.waiters, id)
			return true
		default:
		}
	}
	return false
}

// Pending returns the number of goroutines waiting
func (w *Waiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters)
}

const confirmTimeout = 60 * time.Second

// confirmButtons builds the Confirm/Cancel row for a prompt
func confirmButtons(confirmID, cancelID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Confirm", Style: discordgo.DangerButton, CustomID: confirmID},
			discordgo.Button{Label: "Cancel", Style: discordgo.SecondaryButton, CustomID: cancelID},
		}},
	}
}

// clickedBy matches a button press on one of ids by userID
func clickedBy(userID string, ids ...string) InteractionPredicate {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		var presser string
		if i.Member != nil && i.Member.User != nil {
			presser = i.Member.User.ID
		} else if i.User != nil {
			presser = i.User.ID
		}
		if presser != userID {
			return false
		}
		custom := i.MessageComponentData().CustomID
		for _, id := range ids {
			if custom == id {
				return true
			}
		}
		return false
	}
}

// Confirm asks the invoking user to confirm prompt with buttons. The
// interaction must already be deferred. It returns nil once confirmed and an
// ActionCanceledError when cancelled or timed out.
func (ctx *CommandContext) Confirm(prompt string) error {
	confirmID, cancelID := "confirm:"+uuid.NewString(), "cancel:"+uuid.NewString()
	components := confirmButtons(confirmID, cancelID)
	if _, err := ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{
		Content:    &prompt,
		Components: &components,
	}); err != nil {
		return err
	}

	click, err := ctx.Client.Waiter.Wait(ctx.Context(), confirmTimeout, clickedBy(ctx.User().ID, confirmID, cancelID))
	none := []discordgo.MessageComponent{}
	if err != nil {
		msg := moderrors.UserMessage(err)
		ctx.Session.InteractionResponseEdit(ctx.Interaction.Interaction, &discordgo.WebhookEdit{Content: &msg, Components: &none})
		return err
	}

	ctx.Session.InteractionRespond(click.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: prompt, Components: none},
	})
	if click.MessageComponentData().CustomID == cancelID {
		return &moderrors.ActionCanceledError{}
	}
	return nil
}
