package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// isAdmin: owner, bit Administrator/ManageGuild en algún rol, o uno de los roles configurados.
func isAdmin(userID, ownerID string, memberRoles []string, roles []*discordgo.Role, adminRoleIDs []string) bool {
	if ownerID != "" && userID == ownerID {
		return true
	}
	var perms int64
	for _, ro := range roles {
		if ro != nil && slices.Contains(memberRoles, ro.ID) {
			perms |= ro.Permissions
		}
	}
	if perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0 {
		return true
	}
	for _, want := range adminRoleIDs {
		if slices.Contains(memberRoles, want) {
			return true
		}
	}
	return false
}

func (r *Router) requireAdminOrRoles(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	// permisos ya resueltos por Discord en la interacción
	if ic.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	var ownerID string
	var roles []*discordgo.Role
	if g, err := s.State.Guild(ic.GuildID); err == nil && g != nil {
		ownerID = g.OwnerID
		s.State.RLock()
		roles = append(roles, g.Roles...)
		s.State.RUnlock()
	}
	if len(roles) == 0 {
		roles, _ = s.GuildRoles(ic.GuildID)
	}

	if isAdmin(ic.Member.User.ID, ownerID, ic.Member.Roles, roles, r.adminRoleIDs) {
		return true
	}
	ReplyEphemeral(s, ic, "🔒 You don't have permission for this action.")
	return false
}
