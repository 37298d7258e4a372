package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
)

func findOpt(ic *discordgo.InteractionCreate, name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name {
			return o, true
		}
		// subcommand
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name {
					return so, true
				}
			}
		}
	}
	return nil, false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(o.IntValue()), true
}

func optUser(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionUser {
		return "", false
	}
	// sin session: sólo nos interesa el id
	return o.UserValue(nil).ID, true
}

func fmtMinutes(n int) string {
	if n < 0 {
		n = 0
	}
	return fmt.Sprintf("%02d", n)
}

func fmtElapsed(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func formatSnapshot(s cycle.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", s.Label)
	if s.TotalMinutes > 0 {
		fmt.Fprintf(&b, " · %s/%s min left", fmtMinutes(s.RemainingMinutes), fmtMinutes(s.TotalMinutes))
	}
	fmt.Fprintf(&b, "\nCompleted study phases: %d", s.StudyCount)
	fmt.Fprintf(&b, "\nPlan: study %dm / break %dm", s.StudyMinutes, s.BreakMinutes)
	if s.PendingExtension > 0 {
		fmt.Fprintf(&b, "\nQueued break extension: %dm", s.PendingExtension)
	}
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "\nRunning for %s", fmtElapsed(time.Since(s.StartedAt)))
	}
	return b.String()
}
