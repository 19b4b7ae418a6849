package licensing

import "github.com/google/uuid"

// Permission names carried in access token claims
const (
	PermissionReview = "license:review"
	PermissionAdmin  = "license:admin"
)

// Actor identifies the authenticated caller of a service operation
type Actor struct {
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	Permissions []string
}

// NewActor creates an actor from token claims
func NewActor(userID, companyID uuid.UUID, permissions ...string) Actor {
	return Actor{UserID: userID, CompanyID: companyID, Permissions: permissions}
}

// SystemActor is used by background jobs
func SystemActor() Actor {
	return Actor{Permissions: []string{PermissionReview, PermissionAdmin}}
}

// Has reports whether the actor holds permission
func (a Actor) Has(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CanReview reports whether the actor may act as a reviewer
func (a Actor) CanReview() bool {
	return a.Has(PermissionReview) || a.Has(PermissionAdmin)
}

// IsAdmin reports whether the actor may manage issued licenses
func (a Actor) IsAdmin() bool {
	return a.Has(PermissionAdmin)
}
