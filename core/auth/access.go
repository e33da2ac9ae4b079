package auth

import (
	"fmt"

	"musicshare/core/apperr"
	"musicshare/model"
)

// Identity is an authenticated caller. It is built only after a token was
// validated, so guards never see anonymous callers.
type Identity struct {
	UserID   int64
	Username string
	Rights   model.Rights
}

// IdentityOf builds the identity of a stored user.
func IdentityOf(u *model.User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Rights: u.Rights}
}

// IsAdmin reports whether the identity holds admin rights.
func (id Identity) IsAdmin() bool {
	return id.Rights == model.RightsAdmin
}

// RequireAdmin fails with apperr.ErrForbidden unless the identity is an admin.
func RequireAdmin(id Identity) error {
	if id.IsAdmin() {
		return nil
	}
	return fmt.Errorf("%w: admin rights required", apperr.ErrForbidden)
}

// RequireOwnerOrAdmin fails with apperr.ErrForbidden unless the identity is an
// admin or owns the resource.
func RequireOwnerOrAdmin(id Identity, ownerID int64) error {
	if id.IsAdmin() || id.UserID == ownerID {
		return nil
	}
	return fmt.Errorf("%w: not the owner of this resource", apperr.ErrForbidden)
}
