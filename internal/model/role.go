package model

import "slices"

type Role string

const (
	RoleUser   Role = "user"
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSeller:
		return true
	}
	return false
}

// Roles is the set of roles granted to a user. It is the only place role
// membership is stored.
type Roles []Role

func (rs Roles) Has(r Role) bool {
	return slices.Contains(rs, r)
}

// HasAny reports whether at least one of want is granted.
func (rs Roles) HasAny(want ...Role) bool {
	for _, w := range want {
		if rs.Has(w) {
			return true
		}
	}
	return false
}

// With returns the set with r added, keeping it free of duplicates.
func (rs Roles) With(r Role) Roles {
	if rs.Has(r) {
		return rs
	}
	out := make(Roles, 0, len(rs)+1)
	out = append(out, rs...)
	return append(out, r)
}

// Primary is the single role shown to clients: admin > seller > user.
func (rs Roles) Primary() Role {
	switch {
	case rs.Has(RoleAdmin):
		return RoleAdmin
	case rs.Has(RoleSeller):
		return RoleSeller
	default:
		return RoleUser
	}
}

func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

func RolesFromStrings(in []string) Roles {
	out := make(Roles, 0, len(in))
	for _, s := range in {
		r := Role(s)
		if r.Valid() && !out.Has(r) {
			out = append(out, r)
		}
	}
	return out
}
