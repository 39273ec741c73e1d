package models

import (
	"time"
)

// Question 表示房間內的一個提問
// ID 是建立時產生的推送鍵，依時間排序，因此也決定了問題的先後順序
type Question struct {
	ID            string    `gorm:"primaryKey;size:64" json:"id"`
	RoomID        string    `gorm:"index;size:64;not null" json:"roomId"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	AuthorName    string    `gorm:"not null" json:"authorName"`
	AuthorAvatar  string    `gorm:"not null" json:"authorAvatar"`
	IsHighlighted bool      `gorm:"not null;default:false" json:"isHighlighted"`
	IsAnswered    bool      `gorm:"not null;default:false" json:"isAnswered"`
	CreatedAt     time.Time `json:"createdAt"`
}
