package rbac

// Permission is a single named capability.
type Permission = string

const (
	ProjectCreate Permission = "project:create"
	ProjectRead   Permission = "project:read"
	ProjectUpdate Permission = "project:update"
	ProjectDelete Permission = "project:delete"

	StageUpdate Permission = "stage:update"
	StageDelete Permission = "stage:delete"

	TeamManage Permission = "team:manage"
	TeamInvite Permission = "team:invite"

	ClientManage Permission = "client:manage"

	UserManage   Permission = "user:manage"
	SystemConfig Permission = "system:config"
)

// AllPermissions lists every permission in declaration order.
func AllPermissions() []Permission {
	return []Permission{
		ProjectCreate, ProjectRead, ProjectUpdate, ProjectDelete,
		StageUpdate, StageDelete,
		TeamManage, TeamInvite,
		ClientManage,
		UserManage, SystemConfig,
	}
}

// Table maps roles to permissions. It is built once at startup and never
// mutated; lookups hand out copies.
type Table struct {
	byRole map[string][]Permission
}

func NewTable(m map[string][]Permission) *Table {
	t := &Table{byRole: make(map[string][]Permission, len(m))}
	for role, perms := range m {
		t.byRole[role] = append([]Permission(nil), perms...)
	}
	return t
}

// DefaultTable is the production role mapping.
func DefaultTable() *Table {
	return NewTable(map[string][]Permission{
		RoleAdmin: AllPermissions(),
		RoleProjectManager: {
			ProjectCreate, ProjectRead, ProjectUpdate,
			StageUpdate,
			TeamManage,
			ClientManage,
		},
		RoleTeamMember: {ProjectRead, StageUpdate},
		RoleClient:     {ProjectRead},
	})
}

// Permissions returns the role's permissions, or nil for an unknown role.
func (t *Table) Permissions(role string) []Permission {
	perms, ok := t.byRole[role]
	if !ok {
		return nil
	}
	return append([]Permission(nil), perms...)
}
