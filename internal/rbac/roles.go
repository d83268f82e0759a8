package rbac

// Role names. Keep these stable; they are stored on users and embedded in tokens.
const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleTeamMember     = "team_member"
	RoleClient         = "client"
)

var roles = []string{RoleAdmin, RoleProjectManager, RoleTeamMember, RoleClient}

func Roles() []string { return append([]string(nil), roles...) }

func ValidRole(role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
