// Package realtime 定義房間紀錄的快照格式，以及將快照推送給訂閱者的 Hub。
//
// 房間紀錄位於 rooms/{id}，形狀為
//
//	{ "title": "...", "questions": { "<key>": { "content": ..., "author": {...}, ... } } }
//
// questions 是有順序的物件：鍵的順序就是寫入順序，編碼與解碼時都會保留。
package realtime

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Author 是提問者的公開資料
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// QuestionRecord 是儲存在 rooms/{id}/questions/{key} 的內容，不含鍵本身
type QuestionRecord struct {
	Content       string `json:"content"`
	Author        Author `json:"author"`
	IsHighlighted bool   `json:"isHighlighted"`
	IsAnswered    bool   `json:"isAnswered"`
}

// QuestionEntry 將推送鍵與紀錄配對
type QuestionEntry struct {
	Key    string
	Record QuestionRecord
}

// QuestionMap 是保留鍵順序的 questions 物件
type QuestionMap = orderedmap.OrderedMap[string, QuestionRecord]

// NewQuestionMap 建立空的 questions 物件
func NewQuestionMap() *QuestionMap {
	return orderedmap.New[string, QuestionRecord]()
}

// Snapshot 是 rooms/{id} 在某個時間點的完整副本
type Snapshot struct {
	RoomID    string       `json:"id"`
	Title     string       `json:"title"`
	AuthorID  string       `json:"authorId,omitempty"`
	Questions *QuestionMap `json:"questions,omitempty"`
}

// SetQuestion 更新既有的鍵，或在尾端加入新的鍵
func (s *Snapshot) SetQuestion(key string, record QuestionRecord) {
	if s.Questions == nil {
		s.Questions = NewQuestionMap()
	}
	s.Questions.Set(key, record)
}

// Question 依鍵查詢紀錄
func (s Snapshot) Question(key string) (QuestionRecord, bool) {
	if s.Questions == nil {
		return QuestionRecord{}, false
	}
	return s.Questions.Get(key)
}

// QuestionCount 回傳問題數量
func (s Snapshot) QuestionCount() int {
	if s.Questions == nil {
		return 0
	}
	return s.Questions.Len()
}

// Entries 依鍵順序列出所有問題
func (s Snapshot) Entries() []QuestionEntry {
	if s.Questions == nil {
		return nil
	}
	entries := make([]QuestionEntry, 0, s.Questions.Len())
	for pair := s.Questions.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, QuestionEntry{Key: pair.Key, Record: pair.Value})
	}
	return entries
}

// RoomPath 回傳房間紀錄的路徑
func RoomPath(roomID string) string {
	return "rooms/" + roomID
}

// QuestionsPath 回傳房間問題集合的路徑，新增問題即是對此路徑的 append-write
func QuestionsPath(roomID string) string {
	return RoomPath(roomID) + "/questions"
}
