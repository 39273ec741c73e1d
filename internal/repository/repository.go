package repository

import (
	"errors"

	"letmeask/internal/storage"
)

// ErrNotFound 表示查詢的資料不存在
var ErrNotFound = errors.New("repository: record not found")

type Repositories struct {
	User     UserRepository
	Room     RoomRepository
	Question QuestionRepository
}

func NewRepositories(db *storage.PostgresDB) *Repositories {
	return &Repositories{
		User:     NewUserRepository(db),
		Room:     NewRoomRepository(db),
		Question: NewQuestionRepository(db),
	}
}

// NewMemoryRepositories 建立不需要資料庫的記憶體實作，用於測試與本機開發
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		User:     NewMemoryUserRepository(),
		Room:     NewMemoryRoomRepository(),
		Question: NewMemoryQuestionRepository(),
	}
}
