package model

import "strings"

// Role is the caller's stakeholder kind. The zero value is not a valid role.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleAgency
	RoleContractor
)

// ParseRole is case-insensitive; tokens in the wild carry "admin", "Admin" and "Contractor".
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "authority", "nhai":
		return RoleAdmin, true
	case "agency":
		return RoleAgency, true
	case "contractor":
		return RoleContractor, true
	}
	return RoleUnknown, false
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleAgency:
		return "agency"
	case RoleContractor:
		return "contractor"
	}
	return "unknown"
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	role, _ := ParseRole(string(b))
	*r = role
	return nil
}

// Actor is the authenticated caller as supplied by the identity layer.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name,omitempty"`
}
