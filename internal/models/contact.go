package models

import "time"

// ContactRequest is the JSON body of POST /api/contact.
type ContactRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Message        string  `json:"message"`
	TurnstileToken string  `json:"turnstileToken"`
	Geolocation    *string `json:"geolocation,omitempty"`
}

// ContactResponse acknowledges an accepted submission.
type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ContactSubmission is one row of the append-only submission log. Rows are
// only ever inserted.
type ContactSubmission struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name             string    `gorm:"type:varchar(100);not null" json:"name"`
	Email            string    `gorm:"type:varchar(320);not null;index" json:"email"`
	Message          string    `gorm:"type:text;not null" json:"message"`
	IPAddress        string    `gorm:"type:varchar(45);not null" json:"ip_address"`
	Geolocation      string    `gorm:"type:varchar(200);not null" json:"geolocation"`
	UserAgent        string    `gorm:"type:varchar(255)" json:"user_agent"`
	ConfirmationSent bool      `gorm:"not null;default:false" json:"confirmation_sent"`
	Timestamp        string    `gorm:"type:varchar(40);not null" json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName pins the table name.
func (ContactSubmission) TableName() string {
	return "contact_submissions"
}
