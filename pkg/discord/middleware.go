package discord

import (
	"fmt"

	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// permissionNames covers the permissions commands ask for
var permissionNames = []struct {
	bit  int64
	name string
}{
	{discordgo.PermissionAdministrator, "Administrator"},
	{discordgo.PermissionManageGuild, "Manage Server"},
	{discordgo.PermissionManageRoles, "Manage Roles"},
	{discordgo.PermissionKickMembers, "Kick Members"},
	{discordgo.PermissionBanMembers, "Ban Members"},
	{discordgo.PermissionManageMessages, "Manage Messages"},
}

// missingPermission returns the name of the first bit of want not in have
func missingPermission(have, want int64) string {
	if have&discordgo.PermissionAdministrator != 0 {
		return ""
	}
	for _, p := range permissionNames {
		if want&p.bit != 0 && have&p.bit == 0 {
			return p.name
		}
	}
	if have&want != want {
		return "Unknown"
	}
	return ""
}

// CommandMiddleware rejects commands the invoking user may not run. The user
// has already been answered when it returns an error.
func (c *ExtendedClient) CommandMiddleware(ctx *CommandContext, cmd *Command) error {
	user := ctx.User()
	if user == nil {
		return fmt.Errorf("interaction without user")
	}

	if cmd.IsDev && !config.Get().IsDev(user.ID) {
		ctx.ReplyEphemeral("This command is restricted to the bot developers.")
		logger.Warn(fmt.Sprintf("Usuario %s intentó usar un comando de desarrollo: %s", user.ID, cmd.Name), "Middleware")
		return fmt.Errorf("user is not a developer")
	}

	if cmd.UserPermissions == 0 {
		return nil
	}
	member := ctx.Member()
	if member == nil {
		ctx.ReplyEphemeral("This command can only be used in a server.")
		return fmt.Errorf("guild command used outside a guild")
	}
	if missing := missingPermission(member.Permissions, cmd.UserPermissions); missing != "" {
		ctx.ReplyEphemeral(fmt.Sprintf("You need the **%s** permission to use this command.", missing))
		return fmt.Errorf("user %s lacks %s", user.ID, missing)
	}
	return nil
}
