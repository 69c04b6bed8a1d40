package common

import (
	"github.com/bwmarrin/discordgo"
)

// HasPermission reports whether the invoking member holds permission in the
// interaction's channel. Administrators hold every permission.
func HasPermission(i *discordgo.InteractionCreate, permission int64) bool {
	if i.Member == nil {
		return false
	}
	perms := i.Member.Permissions
	return perms&discordgo.PermissionAdministrator != 0 || perms&permission == permission
}
