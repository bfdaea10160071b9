package discord

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
)

// TestCommandCreation verifies that commands can be created with the builder pattern
func TestCommandCreation(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler)

	if cmd == nil {
		t.Fatal("NewCommand returned nil")
	}

	if cmd.Name != "test" {
		t.Errorf("Name = %v, want %v", cmd.Name, "test")
	}

	if cmd.Description != "Test command" {
		t.Errorf("Description = %v, want %v", cmd.Description, "Test command")
	}

	if cmd.Category != "test" {
		t.Errorf("Category = %v, want %v", cmd.Category, "test")
	}

	if cmd.Run == nil {
		t.Error("Run function is nil")
	}
}

// TestCommandWithOptions verifies the WithOptions builder method
func TestCommandWithOptions(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	option := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "test-option",
		Description: "Test option",
		Required:    true,
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithOptions(option)

	if cmd.Options == nil {
		t.Fatal("Options is nil")
	}

	if len(cmd.Options) != 1 {
		t.Fatalf("Options length = %v, want %v", len(cmd.Options), 1)
	}

	if cmd.Options[0].Name != "test-option" {
		t.Errorf("Option name = %v, want %v", cmd.Options[0].Name, "test-option")
	}
}

// TestCommandWithPermissions verifies the permission builder methods
func TestCommandWithPermissions(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithUserPermissions(discordgo.PermissionAdministrator).
		WithBotPermissions(discordgo.PermissionSendMessages)

	if cmd.UserPermissions != discordgo.PermissionAdministrator {
		t.Errorf("UserPermissions = %v, want %v", cmd.UserPermissions, discordgo.PermissionAdministrator)
	}

	if cmd.BotPermissions != discordgo.PermissionSendMessages {
		t.Errorf("BotPermissions = %v, want %v", cmd.BotPermissions, discordgo.PermissionSendMessages)
	}
}

// TestCommandAsDev verifies the AsDev builder method
func TestCommandAsDev(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	cmd := NewCommand("test", "Test command", "test", handler).AsDev()

	if !cmd.IsDev {
		t.Error("IsDev should be true after calling AsDev()")
	}
}

// TestToApplicationCommand verifies conversion to Discord application command
func TestToApplicationCommand(t *testing.T) {
	handler := func(ctx *CommandContext) error {
		return nil
	}

	option := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "test-option",
		Description: "Test option",
		Required:    true,
	}

	cmd := NewCommand("test", "Test command", "test", handler).
		WithOptions(option)

	appCmd := cmd.ToApplicationCommand()

	if appCmd == nil {
		t.Fatal("ToApplicationCommand returned nil")
	}

	if appCmd.Name != "test" {
		t.Errorf("ApplicationCommand Name = %v, want %v", appCmd.Name, "test")
	}

	if appCmd.Description != "Test command" {
		t.Errorf("ApplicationCommand Description = %v, want %v", appCmd.Description, "Test command")
	}

	if len(appCmd.Options) != 1 {
		t.Fatalf("ApplicationCommand Options length = %v, want %v", len(appCmd.Options), 1)
	}
}

// TestToApplicationCommandPermissions verifies user permissions become the default member permissions
func TestToApplicationCommandPermissions(t *testing.T) {
	cmd := NewCommand("ban", "Ban a user", "mod", func(ctx *CommandContext) error { return nil }).
		WithUserPermissions(discordgo.PermissionBanMembers)

	appCmd := cmd.ToApplicationCommand()
	if appCmd.DefaultMemberPermissions == nil || *appCmd.DefaultMemberPermissions != discordgo.PermissionBanMembers {
		t.Errorf("DefaultMemberPermissions = %v, want %v", appCmd.DefaultMemberPermissions, discordgo.PermissionBanMembers)
	}
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{
			name: "plain",
			data: discordgo.ApplicationCommandInteractionData{Name: "ping"},
			want: "ping",
		},
		{
			name: "subcommand",
			data: discordgo.ApplicationCommandInteractionData{Name: "infraction", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "reason", Type: discordgo.ApplicationCommandOptionSubCommand},
			}},
			want: "infraction.reason",
		},
		{
			name: "group",
			data: discordgo.ApplicationCommandInteractionData{Name: "config", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "set", Type: discordgo.ApplicationCommandOptionSubCommandGroup, Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "modlog", Type: discordgo.ApplicationCommandOptionSubCommand},
				}},
			}},
			want: "config.set.modlog",
		},
		{
			name: "options only",
			data: discordgo.ApplicationCommandInteractionData{Name: "warn", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "user", Type: discordgo.ApplicationCommandOptionUser},
			}},
			want: "warn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := commandName(tt.data); got != tt.want {
				t.Errorf("commandName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMissingPermission(t *testing.T) {
	tests := []struct {
		name string
		have int64
		want int64
		out  string
	}{
		{"granted", discordgo.PermissionBanMembers | discordgo.PermissionKickMembers, discordgo.PermissionBanMembers, ""},
		{"administrator", discordgo.PermissionAdministrator, discordgo.PermissionManageGuild, ""},
		{"missing", discordgo.PermissionKickMembers, discordgo.PermissionBanMembers, "Ban Members"},
		{"unnamed", 0, discordgo.PermissionManageWebhooks, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := missingPermission(tt.have, tt.want); got != tt.out {
				t.Errorf("missingPermission() = %q, want %q", got, tt.out)
			}
		})
	}
}

func TestBuildCommandGroupPermissions(t *testing.T) {
	noop := func(ctx *CommandContext) error { return nil }
	tests := []struct {
		name  string
		perms []int64
		want  *int64
	}{
		{"shared", []int64{discordgo.PermissionModerateMembers, discordgo.PermissionModerateMembers}, ptr(discordgo.PermissionModerateMembers)},
		{"disjoint", []int64{discordgo.PermissionModerateMembers, discordgo.PermissionAdministrator}, nil},
		{"unrestricted", []int64{0, discordgo.PermissionBanMembers}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &ExtendedClient{Commands: NewCommandCollection()}
			ch := NewCommandHandler(client)
			subs := make([]*Command, len(tt.perms))
			for i, p := range tt.perms {
				subs[i] = NewCommand(fmt.Sprintf("sub%d", i), "sub", "test", noop).WithUserPermissions(p)
			}
			group := ch.BuildCommandGroup("group", "Group", subs...)

			got := group.DefaultMemberPermissions
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("DefaultMemberPermissions = %v, want %v", got, tt.want)
			}
			if _, ok := client.Commands.Get("group.sub0"); !ok {
				t.Error("subcommand group.sub0 not registered")
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }
