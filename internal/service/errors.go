package service

import (
	"errors"
)

var (
	// ErrRoomNotFound 表示 rooms/{id} 不存在
	ErrRoomNotFound = errors.New("service: room not found")
	// ErrEmptyTitle 表示建立房間時標題為空白
	ErrEmptyTitle = errors.New("service: room title is required")
	// ErrEmptyContent 表示提問內容為空白
	ErrEmptyContent = errors.New("service: question content is required")
	// ErrMissingAuthor 表示提問缺少作者名稱或頭像
	ErrMissingAuthor = errors.New("service: question author is incomplete")
)

// ErrorKind 將錯誤對應成穩定的日誌標籤
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRoomNotFound):
		return "not_found"
	case errors.Is(err, ErrEmptyTitle), errors.Is(err, ErrEmptyContent), errors.Is(err, ErrMissingAuthor):
		return "validation"
	default:
		return "unexpected"
	}
}
