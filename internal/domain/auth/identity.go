package auth

import "time"

// Role mirrors the server-defined role vocabulary. Unrecognized values map
// to RoleUnknown instead of propagating raw strings through the UI.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleHR       Role = "RRHH"
	RoleTreasury Role = "TREASURY"
	RoleLeader   Role = "LEADER"
	RoleEmployee Role = "EMPLOYEE"
	RoleUnknown  Role = "UNKNOWN"
)

func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleAdmin, RoleHR, RoleTreasury, RoleLeader, RoleEmployee:
		return Role(raw)
	default:
		return RoleUnknown
	}
}

func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "System Administrator"
	case RoleHR:
		return "Human Resources"
	case RoleTreasury:
		return "Treasury"
	case RoleLeader:
		return "Team Leader"
	case RoleEmployee:
		return "Employee"
	default:
		return "Unknown Role"
	}
}

// CanManageIncapacities reports whether the role may drive the status
// workflow and register payments. The server re-validates on every call;
// this only gates what the UI offers.
func (r Role) CanManageIncapacities() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleTreasury:
		return true
	default:
		return false
	}
}

// Identity is the decoded content of the access credential. The console
// never verifies the signature; the server is the authority and rejects a
// bad token on the next request.
type Identity struct {
	UserID    int64
	Username  string
	Role      Role
	ExpiresAt time.Time
}
