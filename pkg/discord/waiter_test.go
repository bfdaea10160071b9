package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	moderrors "github.com/PancyStudios/PancyModlog/pkg/errors"
	"github.com/bwmarrin/discordgo"
)

func buttonClick(userID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionMessageComponent,
		Member: &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data:   discordgo.MessageComponentInteractionData{CustomID: customID},
	}}
}

func waitForPending(t *testing.T, w *Waiter, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for w.Pending() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Pending() = %d, want %d", w.Pending(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWaiterDeliversMatchingClick(t *testing.T) {
	w := NewWaiter()
	got := make(chan *discordgo.InteractionCreate, 1)
	go func() {
		i, err := w.Wait(context.Background(), time.Second, clickedBy("mod", "confirm:1", "cancel:1"))
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
		got <- i
	}()
	waitForPending(t, w, 1)

	if w.Dispatch(buttonClick("someone", "confirm:1")) {
		t.Error("Dispatch(other user) = true, want false")
	}
	if w.Dispatch(buttonClick("mod", "confirm:2")) {
		t.Error("Dispatch(other prompt) = true, want false")
	}
	if !w.Dispatch(buttonClick("mod", "cancel:1")) {
		t.Fatal("Dispatch(match) = false, want true")
	}

	i := <-got
	if id := i.MessageComponentData().CustomID; id != "cancel:1" {
		t.Errorf("CustomID = %q, want cancel:1", id)
	}
	if w.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", w.Pending())
	}
}

func TestWaiterTimeout(t *testing.T) {
	w := NewWaiter()
	_, err := w.Wait(context.Background(), 10*time.Millisecond, clickedBy("mod", "x"))
	var canceled *moderrors.ActionCanceledError
	if !errors.As(err, &canceled) || !canceled.TimedOut {
		t.Errorf("Wait() error = %v, want timed out ActionCanceledError", err)
	}
	if w.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", w.Pending())
	}
}

func TestWaiterContextCancel(t *testing.T) {
	w := NewWaiter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Wait(ctx, time.Second, clickedBy("mod", "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestClickedByIgnoresCommands(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{User: &discordgo.User{ID: "mod"}},
	}}
	if clickedBy("mod", "x")(i) {
		t.Error("clickedBy(command) = true, want false")
	}
}
