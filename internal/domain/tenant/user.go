package tenant

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash *string   `json:"-"`
	FullName     *string   `json:"full_name,omitempty"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	GoogleID     *string   `json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsDemo       bool      `gorm:"not null;default:false" json:"is_demo"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }
