package enums

import (
	"fmt"
	"strings"
)

// UserRole is the closed set of dashboard roles recognised by the backend.
type UserRole string

const (
	UserRoleAdministrator UserRole = "administrator"
	UserRoleMerchant      UserRole = "merchant"
	UserRoleAssistant     UserRole = "assistant"
)

var validUserRoles = []UserRole{
	UserRoleAdministrator,
	UserRoleMerchant,
	UserRoleAssistant,
}

// roleAliases maps the labels the CMS has used for each role onto the enum.
var roleAliases = map[string]UserRole{
	"administrator": UserRoleAdministrator,
	"administrador": UserRoleAdministrator,
	"admin":         UserRoleAdministrator,
	"merchant":      UserRoleMerchant,
	"comercio":      UserRoleMerchant,
	"assistant":     UserRoleAssistant,
	"asistente":     UserRoleAssistant,
	"auxiliar":      UserRoleAssistant,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole normalizes a raw role label (any case, Spanish or English) into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if role, ok := roleAliases[key]; ok {
		return role, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
