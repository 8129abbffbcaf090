package domain

import "time"

// Company is a client business receiving applications. ApplicationEmail is
// the inbox address job boards deliver to for that company; incoming mail is
// matched against it to attribute applicants.
type Company struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"not null"`
	ApplicationEmail string    `json:"application_email" gorm:"uniqueIndex"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// ClientUser links a user account to a company. Only active links receive
// new-applicant notifications.
type ClientUser struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	CompanyID string    `json:"company_id" gorm:"index;not null"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClientUser) TableName() string {
	return "client_users"
}
