package authz

// Role is one of the ordered member < maintainer < owner set.
type Role string

const (
	RoleNone       Role = ""
	RoleMember     Role = "member"
	RoleMaintainer Role = "maintainer"
	RoleOwner      Role = "owner"
)

func (r Role) Rank() int {
	switch r {
	case RoleMember:
		return 1
	case RoleMaintainer:
		return 2
	case RoleOwner:
		return 3
	}
	return 0
}

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleMaintainer, RoleOwner:
		return true
	}
	return false
}

func Max(a, b Role) Role {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func Min(a, b Role) Role {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}

// Effective resolves the role a user holds at package scope: the
// stronger of the package-scope row and the channel-scope row. A
// channel owner or maintainer therefore holds that role at every
// package in the channel without a package-level membership row.
func Effective(packageRole, channelRole Role) Role {
	return Max(packageRole, channelRole)
}
