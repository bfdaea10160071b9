package models

// MiscData holds per-guild counters
type MiscData struct {
	GuildID    string `bson:"_id" json:"guildId"`
	LastCaseID int64  `bson:"last_case_id" json:"lastCaseId"`
}

// GuildConfig holds the per-guild settings the modlog engine consumes
type GuildConfig struct {
	GuildID         string `bson:"_id" json:"guildId"`
	ModlogChannelID string `bson:"modlog_channel_id,omitempty" json:"modlogChannelId,omitempty"`
	MuteRoleID      string `bson:"mute_role_id,omitempty" json:"muteRoleId,omitempty"`
	DMOnInfraction  bool   `bson:"dm_on_infraction" json:"dmOnInfraction"`
}

// DefaultGuildConfig returns the settings used before a guild configures anything
func DefaultGuildConfig(guildID string) *GuildConfig {
	return &GuildConfig{GuildID: guildID, DMOnInfraction: true}
}

// HasModlog reports whether a modlog channel is configured
func (c *GuildConfig) HasModlog() bool {
	return c != nil && c.ModlogChannelID != ""
}
