package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"letmeask/internal/logging"
	"letmeask/internal/middleware"
	"letmeask/internal/realtime"
	"letmeask/internal/service"
)

// RoomHandler 處理與問答房間相關的請求
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoom 處理創建新房間的請求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, _ := middleware.CurrentSession(c)
	room, err := h.roomService.CreateRoom(c.Request.Context(), input.Title, session.ID)
	if err != nil {
		respondServiceError(c, err, "創建房間失敗")
		return
	}

	c.JSON(http.StatusCreated, room)
}

// GetRoom 回傳 rooms/{id} 目前的快照
func (h *RoomHandler) GetRoom(c *gin.Context) {
	snap, err := h.roomService.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "讀取房間失敗")
		return
	}

	c.JSON(http.StatusOK, snap)
}

// PushQuestion 在 rooms/{id}/questions 新增問題。
// 作者一律取自目前的工作階段，新問題不會被標記為重點或已回答。
func (h *RoomHandler) PushQuestion(c *gin.Context) {
	var input struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, _ := middleware.CurrentSession(c)
	record := realtime.QuestionRecord{
		Content: input.Content,
		Author: realtime.Author{
			Name:   session.Name,
			Avatar: session.Avatar,
		},
	}

	key, err := h.roomService.PushQuestion(c.Request.Context(), c.Param("id"), record)
	if err != nil {
		respondServiceError(c, err, "新增問題失敗")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"name": key})
}

// respondServiceError 將 service 的錯誤對應為 HTTP 狀態碼
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "房間不存在"})
	case errors.Is(err, service.ErrEmptyTitle), errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrMissingAuthor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).Error(fallback, "error", err, "kind", service.ErrorKind(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
