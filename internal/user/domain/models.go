package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"
)

// User is a registered participant. Authentication lives outside this service.
type User struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Username    string       `json:"username" gorm:"type:text;not null;uniqueIndex:ux_users_username"`
	DisplayName string       `json:"display_name" gorm:"type:text"`
	Status      string       `json:"status" gorm:"type:text;not null;default:ACTIVE"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string { return "users" }
