// Package middleware 提供 gin 的中間件。
//
// 包含工作階段解析（從 Bearer token 取得目前用戶）、要求登入的路由保護，
// 以及使用 slog 的請求日誌。
package middleware
