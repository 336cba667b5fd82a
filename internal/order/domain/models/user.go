package models

// UserProfile is the slice of the user record the order core consumes:
// display name defaulting and push-token lookup.
type UserProfile struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	DeviceToken string `json:"deviceToken,omitempty"`
}
