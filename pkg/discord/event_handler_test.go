package discord

import (
	"reflect"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestEventHandlerRemoveAll(t *testing.T) {
	client, err := NewClient("token")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	eh := client.EventHandler

	eh.OnGuildBanAdd(func(*discordgo.Session, *discordgo.GuildBanAdd) {})
	eh.OnGuildBanRemove(func(*discordgo.Session, *discordgo.GuildBanRemove) {})
	eh.Register("Resumed", func(*discordgo.Session, *discordgo.Resumed) {})

	want := []string{"GuildBanAdd", "GuildBanRemove", "Resumed"}
	if got := eh.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	eh.RemoveAll()
	if got := eh.Names(); len(got) != 0 {
		t.Errorf("Names() after RemoveAll = %v, want none", got)
	}
}
