package domain

import "time"

// ContactInput is a visitor's contact form submission.
type ContactInput struct {
	Name    string `json:"name" validate:"min=2"`
	Email   string `json:"email" validate:"email"`
	Subject string `json:"subject" validate:"min=5"`
	Message string `json:"message" validate:"min=10"`
}

// ContactMessage is a stored contact form submission.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Remote    string    `json:"remote,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginInput is the admin login form.
type LoginInput struct {
	Password string `json:"password" validate:"min=1"`
}
