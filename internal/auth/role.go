package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/domiciliarios-backend/pkg/enums"
)

// roleFromCMS normalizes the CMS role, which arrives either as a bare string or as an
// object carrying name and type.
func roleFromCMS(raw json.RawMessage) (enums.UserRole, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", fmt.Errorf("user has no role")
	}

	var label string
	if err := json.Unmarshal(trimmed, &label); err == nil {
		return enums.ParseUserRole(label)
	}

	var object struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &object); err != nil {
		return "", fmt.Errorf("decode role: %w", err)
	}
	for _, candidate := range []string{object.Type, object.Name} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		if role, err := enums.ParseUserRole(candidate); err == nil {
			return role, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", object.Name)
}
