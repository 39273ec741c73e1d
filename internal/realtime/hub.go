package realtime

import (
	"sync"
)

// Subscriber 是某個房間的一個訂閱者
// 通道容量為 1，只保留最新的快照：快照是完整副本，舊的可以直接丟棄
type Subscriber struct {
	hub    *Hub
	roomID string
	ch     chan Snapshot
	once   sync.Once
}

// Snapshots 回傳接收快照的通道，Cancel 之後會被關閉
func (s *Subscriber) Snapshots() <-chan Snapshot {
	return s.ch
}

// RoomID 回傳訂閱的房間 ID
func (s *Subscriber) RoomID() string {
	return s.roomID
}

// Cancel 取消訂閱，可重複呼叫
func (s *Subscriber) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// offer 以最新快照取代尚未被讀取的舊快照，永不阻塞
func (s *Subscriber) offer(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

// Hub 管理所有房間的訂閱者
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{} // roomID -> subscribers
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe 註冊一個新的訂閱者
func (h *Hub) Subscribe(roomID string) *Subscriber {
	sub := &Subscriber{
		hub:    h,
		roomID: roomID,
		ch:     make(chan Snapshot, 1),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Subscriber]struct{})
	}
	h.rooms[roomID][sub] = struct{}{}
	return sub
}

// Deliver 只送給單一訂閱者，用於訂閱當下的初始快照
func (h *Hub) Deliver(sub *Subscriber, snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.rooms[sub.roomID][sub]; ok {
		sub.offer(snap)
	}
}

// Publish 將快照送給房間內所有訂閱者
func (h *Hub) Publish(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[snap.RoomID] {
		sub.offer(snap)
	}
}

// Count 回傳房間目前的訂閱者數量
func (h *Hub) Count(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[roomID])
}

func (h *Hub) remove(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.rooms[sub.roomID]; ok {
		delete(subs, sub)
		// 房間沒有訂閱者時移除
		if len(subs) == 0 {
			delete(h.rooms, sub.roomID)
		}
	}
	close(sub.ch)
}
