package domain

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a user account.
type Status string

// Account status values.
const (
	StatusPendingVerification Status = "PENDING_VERIFICATION"
	StatusActive              Status = "ACTIVE"
	StatusInReview            Status = "IN_REVIEW"
	StatusDeclined            Status = "DECLINED"
	StatusSuspended           Status = "SUSPENDED"
)

// Role constants define the allowed user roles. Buyers and landlords use the
// customer portal; agents and admins use the agency portal.
const (
	RoleBuyer    = "buyer"
	RoleLandlord = "landlord"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
)

// Portal constants identify which login surface a request came through.
const (
	PortalCustomer = "customer"
	PortalAgency   = "agency"
)

// User represents a registered account in the system.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FullName         string     `json:"full_name"`
	Status           Status     `json:"status"`
	Roles            []string   `json:"roles"`
	LoginAttempts    int        `json:"-"`
	LoginLockedUntil *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleBuyer, RoleLandlord, RoleAgent, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	return slices.Contains(ValidRoles(), role)
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether the user holds at least one of the given roles.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// HasElevatedRole reports whether any of the user's roles belongs to the
// agency portal (agent, admin). Elevated sessions get a shorter lifetime.
func (u *User) HasElevatedRole() bool {
	return u.HasAnyRole(RoleAgent, RoleAdmin)
}

// PortalForRole maps a role to the portal it may log in through.
func PortalForRole(role string) string {
	if role == RoleAgent || role == RoleAdmin {
		return PortalAgency
	}
	return PortalCustomer
}

// MayUsePortal reports whether the user holds any role admitted by the portal.
func (u *User) MayUsePortal(portal string) bool {
	for _, r := range u.Roles {
		if PortalForRole(r) == portal {
			return true
		}
	}
	return false
}

// RequiresReview reports whether any of the roles needs manual approval
// before the account becomes active.
func RequiresReview(roles []string) bool {
	return slices.Contains(roles, RoleAgent)
}

// StatusAfterVerification returns the status a PENDING_VERIFICATION user
// transitions to once their email is verified: IN_REVIEW when a role needs
// manual approval, ACTIVE otherwise.
func StatusAfterVerification(roles []string) Status {
	if RequiresReview(roles) {
		return StatusInReview
	}
	return StatusActive
}

// LockedAt reports whether the account is under an active login lock at the
// given instant.
func (u *User) LockedAt(now time.Time) bool {
	return u.LoginLockedUntil != nil && now.Before(*u.LoginLockedUntil)
}
