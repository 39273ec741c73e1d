package service

import (
	"context"
	"fmt"

	"letmeask/internal/models"
	"letmeask/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// RecordSignIn 在每次登入成功後保存身分提供者回傳的最新資料
func (s *UserService) RecordSignIn(ctx context.Context, id, name, avatar string) (*models.User, error) {
	user := &models.User{ID: id, Name: name, Avatar: avatar}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("record sign in: %w", err)
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}
