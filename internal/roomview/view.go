// Package roomview 是房間頁面的核心：訂閱 rooms/{id}、把問題整理成有序清單、送出新問題。
// 它不依賴任何畫面框架，終端機介面只負責顯示這裡的狀態。
package roomview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"letmeask/internal/auth"
	"letmeask/internal/realtime"
)

// 通知訊息
const (
	MessageNotSignedIn    = "You must be logged in"
	MessageQuestionSent   = "Question sent successfully"
	MessageRoomCodeCopied = "Room code copied to clipboard"
)

var (
	// ErrEmptyQuestion 表示輸入只有空白，不會送出也不會通知
	ErrEmptyQuestion = errors.New("roomview: question is empty")
	// ErrNotSignedIn 表示目前沒有登入，不會送出
	ErrNotSignedIn = errors.New("roomview: not signed in")
)

// Question 是畫面上的一個問題，ID 是資料庫產生的推送鍵
type Question struct {
	ID            string
	Author        realtime.Author
	Content       string
	IsHighlighted bool
	IsAnswered    bool
}

// Subscription 是對 rooms/{id} 的即時訂閱。
// 每次變更都會收到完整快照；Cancel 之後或連線中斷時通道會被關閉。
type Subscription interface {
	Snapshots() <-chan realtime.Snapshot
	Cancel()
}

// Database 是遠端即時資料庫
type Database interface {
	// Subscribe 的 ctx 只用於建立訂閱，訂閱本身持續到 Cancel 為止
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
	PushQuestion(ctx context.Context, roomID string, record realtime.QuestionRecord) (string, error)
}

// Sessions 提供目前登入的用戶，*auth.Provider 實作這個介面
type Sessions interface {
	CurrentSession() (auth.Session, bool)
}

// Notifier 顯示短暫的提示訊息
type Notifier interface {
	Success(message string)
	Error(message string)
}

// State 只由是否有工作階段決定
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

type Option func(*View)

func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		v.logger = logger
	}
}

// WithChangeHandler 在每次套用快照之後呼叫
func WithChangeHandler(fn func()) Option {
	return func(v *View) {
		v.onChange = fn
	}
}

// WithDropHandler 在訂閱被遠端關閉（不是 Unmount 或 SetRoomID 造成的）時呼叫
func WithDropHandler(fn func()) Option {
	return func(v *View) {
		v.onDropped = fn
	}
}

// View 保存一個房間的標題、問題清單與輸入框內容
type View struct {
	db       Database
	sessions Sessions
	notifier Notifier
	logger   *slog.Logger

	onChange  func()
	onDropped func()

	mu          sync.Mutex
	roomID      string
	title       string
	questions   []Question
	newQuestion string
	sub         Subscription
	gen         uint64
}

// New 建立房間頁面，呼叫 Mount 之前不會訂閱
func New(db Database, sessions Sessions, notifier Notifier, roomID string, opts ...Option) *View {
	v := &View{
		db:        db,
		sessions:  sessions,
		notifier:  notifier,
		logger:    slog.Default(),
		onChange:  func() {},
		onDropped: func() {},
		roomID:    roomID,
		questions: []Question{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Mount 訂閱目前的房間，已有的訂閱會先被取消
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	roomID := v.roomID
	v.mu.Unlock()

	sub, err := v.db.Subscribe(ctx, roomID)
	if err != nil {
		return fmt.Errorf("subscribe to rooms/%s: %w", roomID, err)
	}

	v.mu.Lock()
	if v.roomID != roomID {
		// 訂閱期間房間已經換掉
		v.mu.Unlock()
		sub.Cancel()
		return nil
	}
	old := v.sub
	v.gen++
	gen := v.gen
	v.sub = sub
	v.mu.Unlock()

	if old != nil {
		old.Cancel()
	}
	go v.pump(sub, gen, roomID)

	v.logger.Debug("room subscribed", "room_id", roomID)
	return nil
}

// SetRoomID 換到另一個房間：取消舊的訂閱並訂閱新的房間
func (v *View) SetRoomID(ctx context.Context, roomID string) error {
	v.mu.Lock()
	if v.roomID == roomID && v.sub != nil {
		v.mu.Unlock()
		return nil
	}
	v.roomID = roomID
	v.mu.Unlock()

	v.Unmount()
	return v.Mount(ctx)
}

// Unmount 取消訂閱
func (v *View) Unmount() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.gen++
	v.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
}

func (v *View) pump(sub Subscription, gen uint64, roomID string) {
	for snap := range sub.Snapshots() {
		if v.applyIfCurrent(gen, snap) {
			v.onChange()
		}
	}

	v.mu.Lock()
	dropped := v.gen == gen && v.sub != nil
	if dropped {
		v.sub = nil
	}
	v.mu.Unlock()

	if dropped {
		v.logger.Warn("room subscription dropped", "room_id", roomID)
		v.onDropped()
	}
}

func (v *View) applyIfCurrent(gen uint64, snap realtime.Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.gen != gen {
		return false
	}
	v.applyLocked(snap)
	return true
}

// ApplySnapshot 以快照整個取代標題與問題清單。
// 問題的順序就是快照中的鍵順序，不會依時間重新排序。
func (v *View) ApplySnapshot(snap realtime.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.applyLocked(snap)
}

func (v *View) applyLocked(snap realtime.Snapshot) {
	questions := make([]Question, 0, snap.QuestionCount())
	if snap.Questions != nil {
		for pair := snap.Questions.Oldest(); pair != nil; pair = pair.Next() {
			questions = append(questions, Question{
				ID:            pair.Key,
				Author:        pair.Value.Author,
				Content:       pair.Value.Content,
				IsHighlighted: pair.Value.IsHighlighted,
				IsAnswered:    pair.Value.IsAnswered,
			})
		}
	}
	v.title = snap.Title
	v.questions = questions
}

// HandleSendNewQuestion 送出輸入框的內容。
// 空白輸入回傳 ErrEmptyQuestion；沒有登入時通知用戶並回傳 ErrNotSignedIn。
// 寫入在背景進行且不受 ctx 取消影響，結果只會送到回傳的通道一次。
// 輸入框在寫入發出後立即清空，新問題只會透過下一個快照出現在清單中。
func (v *View) HandleSendNewQuestion(ctx context.Context) (<-chan error, error) {
	v.mu.Lock()
	content := v.newQuestion
	roomID := v.roomID
	v.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyQuestion
	}

	session, ok := v.sessions.CurrentSession()
	if !ok {
		v.notifier.Error(MessageNotSignedIn)
		return nil, ErrNotSignedIn
	}

	record := realtime.QuestionRecord{
		Content: content,
		Author: realtime.Author{
			Name:   session.Name,
			Avatar: session.Avatar,
		},
		IsHighlighted: false,
		IsAnswered:    false,
	}

	result := make(chan error, 1)
	writeCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(result)

		key, err := v.db.PushQuestion(writeCtx, roomID, record)
		if err != nil {
			v.logger.Error("push question failed", "room_id", roomID, "error", err)
			result <- err
			return
		}
		v.logger.Debug("question pushed", "room_id", roomID, "key", key)
		v.notifier.Success(MessageQuestionSent)
		result <- nil
	}()

	v.mu.Lock()
	v.newQuestion = ""
	v.mu.Unlock()

	return result, nil
}

// SetNewQuestion 更新輸入框內容
func (v *View) SetNewQuestion(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.newQuestion = text
}

func (v *View) NewQuestion() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.newQuestion
}

func (v *View) RoomID() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.roomID
}

func (v *View) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.title
}

// Questions 回傳問題清單的副本
func (v *View) Questions() []Question {
	v.mu.Lock()
	defer v.mu.Unlock()

	questions := make([]Question, len(v.questions))
	copy(questions, v.questions)
	return questions
}

// Session 回傳目前的工作階段
func (v *View) Session() (auth.Session, bool) {
	return v.sessions.CurrentSession()
}

func (v *View) State() State {
	if _, ok := v.sessions.CurrentSession(); ok {
		return Authenticated
	}
	return Anonymous
}
