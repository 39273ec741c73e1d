package realtime

import (
	"github.com/google/uuid"
)

// NewPushKey 產生新的推送鍵。
// UUIDv7 以毫秒時間戳開頭且在同一程序內單調遞增，字串排序即為產生順序。
func NewPushKey() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
