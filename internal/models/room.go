package models

import (
	"time"
)

// Room 表示一個問答房間，ID 即為房間代碼
type Room struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Title     string     `gorm:"not null" json:"title"`
	AuthorID  string     `gorm:"size:128" json:"authorId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Questions []Question `gorm:"foreignKey:RoomID" json:"-"` // 問題列表
}
