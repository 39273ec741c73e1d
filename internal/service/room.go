package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"letmeask/internal/logging"
	"letmeask/internal/models"
	"letmeask/internal/realtime"
	"letmeask/internal/repository"
)

// RoomService 負責房間紀錄的讀寫，並在每次變更後推送完整快照給訂閱者
type RoomService struct {
	roomRepo     repository.RoomRepository
	questionRepo repository.QuestionRepository
	hub          *realtime.Hub
	logger       *slog.Logger

	// 每個房間一把鎖：讀取快照與推送必須成對完成，
	// 訂閱者才不會在收到新快照之後又收到較舊的快照
	locks sync.Map
}

func NewRoomService(roomRepo repository.RoomRepository, questionRepo repository.QuestionRepository, hub *realtime.Hub, logger *slog.Logger) *RoomService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomService{
		roomRepo:     roomRepo,
		questionRepo: questionRepo,
		hub:          hub,
		logger:       logger,
	}
}

// CreateRoom 建立新房間，房間 ID 是新的推送鍵
func (s *RoomService) CreateRoom(ctx context.Context, title, authorID string) (*realtime.Snapshot, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	id, err := realtime.NewPushKey()
	if err != nil {
		return nil, fmt.Errorf("generate room id: %w", err)
	}

	room := &models.Room{
		ID:       id,
		Title:    title,
		AuthorID: authorID,
	}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.log(ctx, "CreateRoom").Info("room created", "room_id", id)
	return &realtime.Snapshot{RoomID: room.ID, Title: room.Title, AuthorID: room.AuthorID}, nil
}

// Snapshot 讀取 rooms/{id} 目前的完整內容
func (s *RoomService) Snapshot(ctx context.Context, roomID string) (realtime.Snapshot, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return realtime.Snapshot{}, ErrRoomNotFound
	}
	if err != nil {
		return realtime.Snapshot{}, fmt.Errorf("load room: %w", err)
	}

	questions, err := s.questionRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		return realtime.Snapshot{}, fmt.Errorf("load questions: %w", err)
	}

	snap := realtime.Snapshot{
		RoomID:   room.ID,
		Title:    room.Title,
		AuthorID: room.AuthorID,
	}
	for _, q := range questions {
		snap.SetQuestion(q.ID, realtime.QuestionRecord{
			Content:       q.Content,
			Author:        realtime.Author{Name: q.AuthorName, Avatar: q.AuthorAvatar},
			IsHighlighted: q.IsHighlighted,
			IsAnswered:    q.IsAnswered,
		})
	}
	return snap, nil
}

// Subscribe 訂閱房間，訂閱者會立即收到目前的快照，之後每次變更再收到一次
func (s *RoomService) Subscribe(ctx context.Context, roomID string) (*realtime.Subscriber, error) {
	mu := s.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	snap, err := s.Snapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}

	sub := s.hub.Subscribe(roomID)
	s.hub.Deliver(sub, snap)

	s.log(ctx, "Subscribe").Debug("room subscribed", "room_id", roomID, "subscribers", s.hub.Count(roomID))
	return sub, nil
}

// PushQuestion 在 rooms/{id}/questions 下新增一筆紀錄並回傳產生的鍵
func (s *RoomService) PushQuestion(ctx context.Context, roomID string, record realtime.QuestionRecord) (string, error) {
	if strings.TrimSpace(record.Content) == "" {
		return "", ErrEmptyContent
	}
	if record.Author.Name == "" || record.Author.Avatar == "" {
		return "", ErrMissingAuthor
	}

	if _, err := s.roomRepo.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrRoomNotFound
		}
		return "", fmt.Errorf("load room: %w", err)
	}

	key, err := realtime.NewPushKey()
	if err != nil {
		return "", fmt.Errorf("generate question key: %w", err)
	}

	question := &models.Question{
		ID:            key,
		RoomID:        roomID,
		Content:       record.Content,
		AuthorName:    record.Author.Name,
		AuthorAvatar:  record.Author.Avatar,
		IsHighlighted: record.IsHighlighted,
		IsAnswered:    record.IsAnswered,
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return "", fmt.Errorf("create question: %w", err)
	}

	// 寫入已經成功，推送失敗只記錄，下一次變更會帶上完整內容
	if err := s.publish(ctx, roomID); err != nil {
		s.log(ctx, "PushQuestion").Error("publish snapshot failed", "room_id", roomID, "error", err, "kind", ErrorKind(err))
	}
	return key, nil
}

func (s *RoomService) publish(ctx context.Context, roomID string) error {
	mu := s.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	snap, err := s.Snapshot(ctx, roomID)
	if err != nil {
		return err
	}
	s.hub.Publish(snap)
	return nil
}

func (s *RoomService) roomLock(roomID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(roomID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *RoomService) log(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == slog.Default() {
		logger = s.logger
	}
	return logger.With("service", "room", "operation", operation)
}
