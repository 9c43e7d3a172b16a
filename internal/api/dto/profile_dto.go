package dto

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	Company  string `json:"company"`
	PhotoURL string `json:"photo_url"`
}

// ProfileResponse is the merged profile view of a user.
type ProfileResponse struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Bio      string `json:"bio,omitempty"`
	Company  string `json:"company,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// StatsResponse is the per-status ticket count document for a user.
type StatsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}
