package auth

import (
	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/enum"
)

// Principal is an authenticated caller. It is resolved once per request by the
// middleware and handed explicitly to every service operation.
type Principal struct {
	UserID uuid.UUID
	Role   enum.Role
}

// Has reports whether the principal holds one of the given roles.
func (p Principal) Has(roles ...enum.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
