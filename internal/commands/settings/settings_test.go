package settings

import (
	"testing"

	"github.com/PancyStudios/PancyModlog/pkg/models"
)

func TestFormatConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *models.GuildConfig
		want string
	}{
		{
			name: "defaults",
			cfg:  &models.GuildConfig{GuildID: "g", DMOnInfraction: true},
			want: "This server's configuration:```\nmodlog_channel: 0\nmute_role: 0\ndm_on_infraction: true\n```",
		},
		{
			name: "configured",
			cfg:  &models.GuildConfig{GuildID: "g", ModlogChannelID: "10", MuteRoleID: "20"},
			want: "This server's configuration:```\nmodlog_channel: 10\nmute_role: 20\ndm_on_infraction: false\n```",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatConfig(tt.cfg); got != tt.want {
				t.Errorf("FormatConfig() = %q, want %q", got, tt.want)
			}
		})
	}
}
