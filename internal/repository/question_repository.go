package repository

import (
	"context"

	"letmeask/internal/models"
	"letmeask/internal/storage"
)

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	// FindByRoomID 依推送鍵遞增排序，也就是寫入的先後順序
	FindByRoomID(ctx context.Context, roomID string) ([]models.Question, error)
}

type questionRepository struct {
	db *storage.PostgresDB
}

func NewQuestionRepository(db *storage.PostgresDB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) FindByRoomID(ctx context.Context, roomID string) ([]models.Question, error) {
	var questions []models.Question
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id asc").Find(&questions).Error
	return questions, err
}
