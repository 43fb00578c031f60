package types

type Role string

const (
	RolePlayer Role = "player"
	RoleGM     Role = "gm"
	RoleNPC    Role = "npc"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePlayer, RoleGM, RoleNPC:
		return true
	}
	return false
}

type User struct {
	Id        string  `json:"id"`
	Name      string  `json:"name"`
	AvatarUrl string  `json:"avatarUrl,omitempty"`
	Role      Role    `json:"role"`
	OrgId     *string `json:"orgId,omitempty"` // null when the user left an organization
}

// UserUpdate is a profile edit; nil fields are left untouched.
type UserUpdate struct {
	Name      *string `json:"name,omitempty"`
	AvatarUrl *string `json:"avatarUrl,omitempty"`
	Role      *Role   `json:"role,omitempty"`
}
