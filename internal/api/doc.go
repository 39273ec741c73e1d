// Package api 處理 HTTP 請求路由。
//
// 房間紀錄 rooms/{id} 以 REST 讀寫，並透過 WebSocket 推送即時快照；
// 登入使用 Google OAuth 授權碼流程並簽發 JWT token。
package api
