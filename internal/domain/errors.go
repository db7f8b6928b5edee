package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrSignature         = errors.New("invalid webhook signature")
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrOptimisticLock is returned when the caller presented a stale version.
	ErrOptimisticLock = errors.New("stale data - reload and retry")

	// ErrInvalidState satisfies errors.Is for both itself and ErrInvalidTransition.
	ErrInvalidState = fmt.Errorf("invalid state: %w", ErrInvalidTransition)
)

// Role is resolved from the bearer token; nothing else about the session is kept.
type Role string

const (
	RoleTalent   Role = "talent"
	RoleBusiness Role = "business"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleTalent, RoleBusiness, RoleAdmin:
		return true
	default:
		return false
	}
}
