package discord

import "github.com/bwmarrin/discordgo"

var (
	minStudy     = float64(1)
	minBreak     = float64(0)
	maxMinutes   = float64(1440)
	historyLimit = float64(25)
)

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "learn",
		Description: "Start a study/break cycle in the study voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "study",
				Description: "Study minutes (everyone muted)",
				Required:    true,
				MinValue:    &minStudy,
				MaxValue:    maxMinutes,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "break",
				Description: "Break minutes (0 = no break)",
				Required:    true,
				MinValue:    &minBreak,
				MaxValue:    maxMinutes,
			},
		},
	},
	{
		Name:        "stop",
		Description: "Stop the running cycle and unmute everyone",
	},
	{
		Name:        "extendbreak",
		Description: "Extend the current or next break once",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "minutes",
			Description: "Extra break minutes",
			Required:    true,
			MinValue:    &minStudy,
			MaxValue:    maxMinutes,
		}},
	},
	{
		Name:        "cyclestatus",
		Description: "Show the current phase and remaining time",
	},
	{
		Name:        "unmute",
		Description: "Server-unmute a member, or everyone in voice (admins)",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to unmute",
		}},
	},
	{
		Name:        "clear",
		Description: "Delete this bot's messages in every text channel (admins)",
	},
	{
		Name:        "history",
		Description: "Recent study sessions in this server",
		Options: []*discordgo.ApplicationCommandOption{{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "limit",
			Description: "How many sessions (default 5)",
			MinValue:    &minStudy,
			MaxValue:    historyLimit,
		}},
	},
}
