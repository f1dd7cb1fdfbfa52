package models

// Feedback is a message sent from the picker page's feedback form.
type Feedback struct {
	Message string `json:"message" validate:"required,max=2000"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}
