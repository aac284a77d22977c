package models

import (
	"time"
)

// Course is a purchasable offering. Price is stored in minor currency units
// (cents); capacity nil means unlimited seats.
type Course struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Slug        string     `json:"slug" gorm:"uniqueIndex;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	Price       int64      `json:"price" gorm:"not null"`
	Currency    string     `json:"currency" gorm:"type:varchar(3);default:'EUR'"`
	IsPublished bool       `json:"isPublished" gorm:"default:false"`
	IsPublic    bool       `json:"isPublic" gorm:"default:true"`
	Capacity    *int       `json:"capacity"`
	Date        *time.Time `json:"date"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
