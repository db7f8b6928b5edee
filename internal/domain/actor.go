package domain

import "github.com/google/uuid"

// Actor is whoever causes a transition. The zero value is the system itself
// (webhooks, sweeps).
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func SystemActor() Actor { return Actor{} }

func (a Actor) IsSystem() bool { return a.ID == uuid.Nil }

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Ref returns nil for the system actor so it can be stored in nullable columns.
func (a Actor) Ref() *uuid.UUID {
	if a.IsSystem() {
		return nil
	}
	id := a.ID
	return &id
}
