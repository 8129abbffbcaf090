package domain

import "time"

// Applicant is one ingested job application. GmailMessageID is the dedup
// key: the mail provider's immutable message id, unique across the table, so
// re-processing the same message can never create a second record.
type Applicant struct {
	ID             string `json:"id" gorm:"primaryKey"`
	GmailMessageID string `json:"gmail_message_id" gorm:"uniqueIndex;not null"`
	ThreadID       string `json:"thread_id"`

	// Best-effort fields parsed from the message; any of them may be empty.
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Subject   string  `json:"subject"`
	Snippet   string  `json:"snippet"`
	BodyText  string  `json:"body_text"`
	BodyHTML  string  `json:"body_html"`
	SiteKey   string  `json:"site_key"`
	CompanyID *string `json:"company_id" gorm:"index"`

	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Applicant) TableName() string {
	return "applicants"
}
