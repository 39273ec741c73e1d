package models

import (
	"time"
)

// User 表示透過外部身分提供者登入過的用戶
type User struct {
	ID        string    `gorm:"primaryKey;size:128" json:"id"` // 身分提供者的 uid
	Name      string    `gorm:"not null" json:"name"`
	Avatar    string    `gorm:"not null" json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
