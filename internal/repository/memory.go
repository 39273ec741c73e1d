package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"letmeask/internal/models"
)

// 記憶體版本的 repository，行為與 PostgreSQL 版本一致（排序、找不到時回傳 ErrNotFound）

type memoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]models.Room
}

func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{rooms: make(map[string]models.Room)}
}

func (r *memoryRoomRepository) Create(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.ID]; exists {
		return fmt.Errorf("room %q already exists", room.ID)
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	r.rooms[room.ID] = *room
	return nil
}

func (r *memoryRoomRepository) FindByID(_ context.Context, id string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &room, nil
}

type memoryQuestionRepository struct {
	mu     sync.RWMutex
	byRoom map[string][]models.Question
}

func NewMemoryQuestionRepository() QuestionRepository {
	return &memoryQuestionRepository{byRoom: make(map[string][]models.Question)}
}

func (r *memoryQuestionRepository) Create(_ context.Context, question *models.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byRoom[question.RoomID] {
		if existing.ID == question.ID {
			return fmt.Errorf("question %q already exists", question.ID)
		}
	}
	if question.CreatedAt.IsZero() {
		question.CreatedAt = time.Now().UTC()
	}
	r.byRoom[question.RoomID] = append(r.byRoom[question.RoomID], *question)
	return nil
}

func (r *memoryQuestionRepository) FindByRoomID(_ context.Context, roomID string) ([]models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	questions := make([]models.Question, len(r.byRoom[roomID]))
	copy(questions, r.byRoom[roomID])
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]models.User)}
}

func (r *memoryUserRepository) Upsert(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *memoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}
