package service

import (
	"log/slog"

	"letmeask/internal/realtime"
	"letmeask/internal/repository"
)

type Services struct {
	User *UserService
	Room *RoomService
	Hub  *realtime.Hub
}

func NewServices(repos *repository.Repositories, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	hub := realtime.NewHub()

	userService := NewUserService(repos.User)
	roomService := NewRoomService(repos.Room, repos.Question, hub, logger)
	return &Services{
		User: userService,
		Room: roomService,
		Hub:  hub,
	}
}
