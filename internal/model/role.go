package model

// Role is the closed set of privilege levels an account can hold. The zero
// value is not a valid role; use ParseRole when converting untrusted input.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a raw string onto the role enumeration. The boolean reports
// whether the value named a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Valid reports whether r is a member of the enumeration.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }
