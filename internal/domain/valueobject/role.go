package valueobject

import (
	"strings"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// Role — роль участника, которую передаёт слой аутентификации.
type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleOperator Role = "operator"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleOperator:
		return true
	}
	return false
}

// ParseRole разбирает роль из токена. "admin" считается оператором.
func ParseRole(raw string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "client":
		return RoleClient, nil
	case "provider", "freelancer":
		return RoleProvider, nil
	case "operator", "admin":
		return RoleOperator, nil
	}
	return "", apperror.New(apperror.ErrCodeForbidden, "неизвестная роль пользователя")
}
