package domain

// Role is the channel-scoped authority level of a user.
// It is meaningful only while the user is a member of a channel.
type Role int

const (
	RoleNone Role = iota
	RoleNormal
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleNormal:
		return "normal"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "none"
	}
}

// ParseRole maps a persisted role column back to the enum.
// Unknown values collapse to RoleNone.
func ParseRole(s string) Role {
	switch s {
	case "normal":
		return RoleNormal
	case "admin":
		return RoleAdmin
	case "owner":
		return RoleOwner
	default:
		return RoleNone
	}
}

// CanModerate reports whether the role may issue moderation actions at all.
func (r Role) CanModerate() bool {
	return r == RoleAdmin || r == RoleOwner
}

// CanTransition validates a role change. Legal moves:
// none->normal (join), any->none (leave/eviction),
// normal<->admin (promote/demote), normal|admin->owner (ownership grant),
// owner->normal (ownership transferred away).
func (r Role) CanTransition(to Role) bool {
	if r == to {
		return false
	}
	switch to {
	case RoleNone:
		return true
	case RoleNormal:
		return r == RoleNone || r == RoleAdmin || r == RoleOwner
	case RoleAdmin:
		return r == RoleNormal
	case RoleOwner:
		return r == RoleNormal || r == RoleAdmin
	default:
		return false
	}
}
