// internal/models/user.go
package models

import "time"

// User is the portal account owning trademark applications. Credentials are
// managed by the identity provider; only contact data lives here.
type User struct {
	BaseModel
	Email           string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Phone           string     `json:"phone,omitempty" gorm:"size:32"`
	DisplayName     string     `json:"display_name" gorm:"size:100"`
	CompanyName     string     `json:"company_name,omitempty" gorm:"size:255"`
	Role            UserRole   `json:"role" gorm:"type:varchar(20);default:'client'"`
	Locale          string     `json:"locale" gorm:"size:8;default:'en'"`
	ProfileData     JSONB      `json:"profile_data" gorm:"type:jsonb"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`

	// Relationships
	Applications []Application `json:"applications,omitempty" gorm:"foreignKey:UserID"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// Name returns the best available greeting name.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.CompanyName != "" {
		return u.CompanyName
	}
	return u.Email
}
