package models

import (
	"time"
)

type Role string

const (
	AdminRole Role = "ADMIN"
	UserRole  Role = "USER"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null" binding:"required,email"`
	Password  string    `json:"password,omitempty" binding:"required,min=6"`
	Name      string    `json:"name"`
	Role      Role      `json:"role" gorm:"type:varchar(20);default:'USER'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserLogin is the credential payload for /login
type UserLogin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
