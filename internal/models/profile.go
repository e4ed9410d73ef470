package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RolePublic          UserRole = "PUBLIC"
	RoleCollector       UserRole = "COLLECTOR"
	RoleRecyclingCenter UserRole = "RECYCLING_CENTER"
	RoleAdmin           UserRole = "ADMIN"
)

// ProfileStatus tracks the approval state of a profile.
type ProfileStatus string

const (
	ProfileStatusPendingApproval ProfileStatus = "pending_approval"
	ProfileStatusActive          ProfileStatus = "active"
	ProfileStatusRejected        ProfileStatus = "rejected"
)

// Profile is a user, collector or recycling center account stored in the profiles table.
type Profile struct {
	ID               string        `db:"id" json:"id"`
	Email            string        `db:"email" json:"email"`
	PasswordHash     string        `db:"password_hash" json:"-"`
	FullName         string        `db:"full_name" json:"full_name"`
	Role             UserRole      `db:"role" json:"role"`
	Status           ProfileStatus `db:"status" json:"status"`
	Phone            *string       `db:"phone" json:"phone,omitempty"`
	Address          *string       `db:"address" json:"address,omitempty"`
	FacilityName     *string       `db:"facility_name" json:"facility_name,omitempty"`
	FacilityCapacity *int          `db:"facility_capacity" json:"facility_capacity,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// IsActiveRole reports whether the profile is active and holds the given role.
func (p *Profile) IsActiveRole(role UserRole) bool {
	return p != nil && p.Role == role && p.Status == ProfileStatusActive
}

// ProfileFilter captures filtering criteria for listing profiles.
type ProfileFilter struct {
	Role     *UserRole
	Status   *ProfileStatus
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
