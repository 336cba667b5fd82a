package dto

type CreateOrderRequest struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Items    []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// CollectedRequest carries the staff decision at pickup time. The pointer
// distinguishes a missing field from an explicit false.
type CollectedRequest struct {
	Collected *bool `json:"collected"`
}

type FeedbackRequest struct {
	ItemID   string `json:"itemId"`
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

type DeviceTokenRequest struct {
	Email       string `json:"email"`
	DeviceToken string `json:"deviceToken"`
}

type NotifyUserRequest struct {
	Email string `json:"email"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
