package dto

// ReviewProfileRequest approves or rejects a pending collector or recycling center.
type ReviewProfileRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// ProfileQuery mirrors supported listing filters.
type ProfileQuery struct {
	Role     string
	Status   string
	Page     int
	PageSize int
}
