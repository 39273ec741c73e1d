package roomview

import (
	"github.com/atotto/clipboard"
)

// Clipboard 是系統剪貼簿
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard 使用作業系統的剪貼簿
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// RoomCode 顯示房間代碼，並可以複製到剪貼簿
type RoomCode struct {
	Code string

	clipboard Clipboard
	notifier  Notifier
}

func NewRoomCode(code string, cb Clipboard, notifier Notifier) *RoomCode {
	if cb == nil {
		cb = SystemClipboard{}
	}
	return &RoomCode{Code: code, clipboard: cb, notifier: notifier}
}

// CopyRoomCodeToClipboard 在背景寫入剪貼簿並立即通知成功，不等待也不檢查寫入結果
func (r *RoomCode) CopyRoomCodeToClipboard() {
	code := r.Code
	go func() {
		_ = r.clipboard.WriteAll(code)
	}()
	r.notifier.Success(MessageRoomCodeCopied)
}
